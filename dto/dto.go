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
	"github.com/zintix-labs/gammalab/corefmt"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/buf"
	"github.com/zintix-labs/gammalab/sdk/source"
	"github.com/zintix-labs/gammalab/spec"
)

type SampleResult struct {
	SceneName string                 `json:"scene"`                     // 場景名稱
	SceneID   spec.SID               `json:"sid"`                       // 場景編號
	Mode      spec.ModeKey           `json:"mode"`                      // 取樣模式
	Alpha     float64                `json:"alpha,omitempty"`           // backward photo-peak 分支機率
	Count     int                    `json:"count"`                     // 狀態數
	States    []source.ParticleState `json:"states"`                    // 初始化完成的狀態陣列
	Energies  []float64              `json:"source_energies,omitempty"` // backward 每個狀態對應的譜線能量 E0
	State     SampleState            `json:"sample_state"`              // RNG 快照
}

// SampleState 是本批取樣前後的 RNG Core 快照（Base64URL）。
//
// start_b64u 可用於回放本批；after_b64u 當作下一批的 start_b64u 可續抽。
type SampleState struct {
	StartCoreSnapB64U string `json:"start_b64u"`
	AfterCoreSnapB64U string `json:"after_b64u"`
}

// NewSampleResultDTO 將內部 SampleResult 轉為對外輸出結構。
//
// 內部 buffer 會被下一次取樣覆寫，這裡必須複製 States / Energies。
func NewSampleResultDTO(sr *buf.SampleResult) (SampleResult, error) {
	if sr == nil {
		return SampleResult{}, errs.NewWarn("sample result is nil")
	}
	state := SampleState{
		StartCoreSnapB64U: corefmt.EncodeBase64URL(sr.State.StartCoreSnap),
		AfterCoreSnapB64U: corefmt.EncodeBase64URL(sr.State.AfterCoreSnap),
	}

	dto := SampleResult{
		SceneName: sr.SceneName,
		SceneID:   sr.SceneId,
		Mode:      sr.Mode,
		Alpha:     sr.Alpha,
		Count:     len(sr.States),
		States:    append([]source.ParticleState(nil), sr.States...),
		State:     state,
	}
	if len(sr.SourceEnergies) != 0 {
		dto.Energies = append([]float64(nil), sr.SourceEnergies...)
	}
	return dto, nil
}
