// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/gammalab/corefmt"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/buf"
	"github.com/zintix-labs/gammalab/spec"
)

type SampleRequest struct {
	UID       string       `json:"uid"`                 // 唯一識別碼
	SceneName string       `json:"scene"`               // 要取樣的場景
	SceneId   spec.SID     `json:"sid"`                 // 場景編號
	Mode      spec.ModeKey `json:"mode"`                // forward / backward
	Count     int          `json:"count"`               // 要初始化的狀態數
	Alpha     float64      `json:"alpha,omitempty"`     // 可選：backward photo-peak 分支機率（允許為 0）。
	HasAlpha  bool         `json:"has_alpha,omitempty"` // 可選：是否有「提供 alpha」。
	// Contract（強硬約束，避免 alpha=0 的雙重語意）：
	//   - 若 has_alpha 為 false（或未提供），則 alpha 必須省略；否則視為 request 格式錯誤。
	//   - 若 has_alpha 為 true，則視為有指定；alpha 若省略則視為 0。
	StartState *StartState `json:"start_state,omitempty"` // 可選：由業務端帶入的引擎狀態（nil=新抽樣；帶 start_b64u=回放/續抽）。
}

// DecodeSampleRequest 會把 HTTP 請求解碼成 SampleRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（uid/scene/sid/mode/count/alpha/has_alpha）。
//     注意：GET 建議僅用於「新抽樣」或簡單測試；巢狀狀態（start_state）建議使用 POST。
//   - POST：從 JSON body 反序列化（支援 start_state）。
//
// StartState（start_state）語意：
//   - start_state 缺省 / 為 null / 為空物件：視為「新抽樣」。
//   - start_state.start_b64u 有值：視為「回放（replay）/ 續抽（resume）」：
//   - 回放：帶入當初記錄的 start_b64u，可在相同輸入條件下重現該批狀態。
//   - 續抽：帶入上一批回傳的 after_b64u 作為新的 start_b64u，以延續 RNG 流水。
//   - 引擎的輸入只接受 start_b64u（Start）；after_b64u 只會出現在回應，請求端不得自行填寫 after。
//
// Alpha / HasAlpha Contract（強硬約束，避免 alpha=0 的雙重語意）：
//   - 若 has_alpha 為 false（或未提供），則 alpha 必須省略；否則視為 request 格式錯誤。
//   - 若 has_alpha 為 true，則視為有指定；alpha 若省略則視為 0。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何場景合法性校驗；
//     合法性（例如該 SID 是否存在、count 是否可用）應由上層（Generator/Runtime）決定。
//   - 為避免過大 body 影響服務，POST 會對 body 做大小限制（預設 1MiB）。
//   - POST 會開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeSampleRequest(r *http.Request) (*SampleRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(SampleRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.UID = q.Get("uid")
		req.SceneName = q.Get("scene")

		if s := q.Get("sid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid sid: %v", err))
			}
			req.SceneId = spec.SID(u)
		}

		if s := q.Get("mode"); s != "" {
			req.Mode = spec.ModeKey(s)
		}

		if s := q.Get("count"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid count: %v", err))
			}
			req.Count = v
		}

		if s := q.Get("alpha"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid alpha: %v", err))
			}
			req.Alpha = v
		}

		if s := q.Get("has_alpha"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid has_alpha value " + err.Error())
			}
			req.HasAlpha = v
		}

		return req, nil

	case http.MethodPost:
		// 防止 body 過大（預設 1MiB）
		const maxBody = 1 << 20
		body := io.LimitReader(r.Body, maxBody)
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// StartState 是由業務端帶入的「引擎可恢復狀態」（可選）。
//
// 設計目標：
//   - 讓引擎維持純計算器（stateless / deterministic），而「可回放/可續抽」所需的狀態由業務端保存與回送。
//   - 新抽樣：start_state 缺省即可；引擎會自行產生本批的 RNG 內部狀態並在回應中回傳 Start/After。
//   - 回放（Replay）：業務端帶入當初記錄的 start_b64u，即可重現該批初始狀態（bit 級一致）。
//   - 續抽（Resume）：業務端把上一批回應的 after_b64u 當作下一批的 start_b64u 送入，以延續 RNG 流水。
//
// 重要約束：
//   - Request 只允許提供 Start（start_b64u）；After（after_b64u）只會由引擎在 Response 回傳。
type StartState struct {
	// StartCoreSnapB64U：RNG Core 的「起始快照」Base64URL（URL-safe base64）字串。
	//   - 缺省：視為新抽樣（引擎自行起始 RNG）。
	//   - 有值：視為回放/續抽（引擎從該快照 restore RNG）。
	StartCoreSnapB64U string `json:"start_b64u,omitempty"`
}

func (ss *StartState) HasPayload() bool {
	if ss == nil {
		return false
	}
	return ss.StartCoreSnapB64U != ""
}

func (sr *SampleRequest) Parse() (*buf.SampleRequest, error) {
	var state *buf.StartState
	start := sr.StartState
	if start.HasPayload() {
		state = new(buf.StartState)
		snap, err := corefmt.DecodeBase64URL(start.StartCoreSnapB64U)
		if err != nil {
			return nil, errs.NewWarn("core snap decode failed " + err.Error())
		}
		state.StartCoreSnap = snap
	}
	if !sr.HasAlpha && sr.Alpha != 0 {
		return nil, errs.NewWarn("has_alpha is false but alpha is not zero")
	}

	req := &buf.SampleRequest{
		UID:        sr.UID,
		SceneName:  sr.SceneName,
		SceneId:    sr.SceneId,
		Mode:       sr.Mode,
		Count:      sr.Count,
		Alpha:      sr.Alpha,
		HasAlpha:   sr.HasAlpha,
		StartState: state,
	}
	return req, nil
}
