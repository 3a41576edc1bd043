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

package gammalab

import (
	"crypto/rand"
	"math"
	"math/big"
	"sync"

	"github.com/zintix-labs/gammalab/dto"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/buf"
	"github.com/zintix-labs/gammalab/sdk/core"
	"github.com/zintix-labs/gammalab/sdk/source"
	"github.com/zintix-labs/gammalab/spec"
)

// maxSampleCount 單次請求可初始化的狀態數上限（保護 buffer 配置）。
const maxSampleCount = 1 << 20

// Generator 封裝一台「可對外提供 Sample 的取樣機」。
//
// 你可以把 Generator 視為取樣核心的「外殼（shell）」：
//   - 對外：提供 Sample 入口（HTTP/模擬器通常只操作 Generator）。
//   - 對內：持有 RNG（Core）與已編譯的場景幾何（source.Scene）及發射譜（source.Spectrum）。
//
// 並發語意：
//   - Generator 預設不是 lock-free 結構；它內含可重用的 result buffer（熱路徑），因此同一台 Generator 不應被多 goroutine 同時 Sample。
//   - 若要併發模擬，由更高層建立多台 Generator 分散到不同 worker 並管理其生命週期。
//
// Buffer 語意（非常重要，影響 DX 與正確性）：
//   - SampleResult 會被重用（避免 GC），每次 Sample 會覆寫內容。
//   - 你若需要在 Sample 後保留結果，請在離開臨界區前轉成 DTO（或自行 copy 你需要的欄位）。
//
// initseed 用於記錄出生時的 seed（追溯/重現的基礎資訊）；完整審計仍以 Core 的 Snapshot/Restore 為準。
type Generator struct {
	sceneName    string                 // 場景名稱（來自 SceneSetting.SceneName，主要用於觀測/日誌）
	sceneId      spec.SID               // 場景 ID（Catalog 內唯一；用於路由與查表）
	modes        []spec.ModeKey         // 場景允許的取樣模式
	alpha        float64                // 場景預設的 photo-peak 分支機率
	core         *core.Core             // RNG 核心（PRNG + Snapshot/Restore 合約；熱路徑會頻繁取樣）
	scene        *source.Scene          // 已編譯的場景幾何（world/detector/面抽樣表）
	spectrum     *source.Spectrum       // 已編譯的發射譜（累積強度表）
	SampleResult *buf.SampleResult      // 可重用的結果 buffer（熱路徑；每次 Sample 會覆寫）
	mu           sync.Mutex             // 防併發鎖：保護可重用 buffers 與核心狀態一致性
	initseed     int64                  // 出生 seed（便於追溯；完整重現請用 Snapshot/Restore）
}

// newGenerator 以「隨機 seed」建立 Generator。
//
// 這裡使用 crypto/rand 產生 seed 是為了：
//   - 在對外服務情境避免可預測 RNG
//   - 同時保留可追溯性（seed 會被記錄在 Generator.initseed）
//
// seed 只保證了新建的Generator起點，如果需要在任意批後將取樣機"重設"到任意Core節點，請利用Snapshot Restore來操作
func newGenerator(ss *spec.SceneSetting, cf core.PRNGFactory) (*Generator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newGeneratorWithSeed(ss, cf, seed.Int64())
}

// newGeneratorWithSeed 以指定 seed 建立 Generator。
//
// 這是最常用的「可重現」入口：同一份 SceneSetting + 同一個 seed，應能得到一致的隨機序列（取決於 Core 實作）。
//
// 建立流程（概念）：
//  1. core.New(cf.New(seed)) 建出 RNG 核心
//  2. SceneSetting.BuildScene / BuildSpectrum 依設定編譯幾何與發射譜
//  3. 初始化 Generator 需要的 buffer（SampleResult）
func newGeneratorWithSeed(ss *spec.SceneSetting, cf core.PRNGFactory, seed int64) (*Generator, error) {
	sc, err := ss.BuildScene()
	if err != nil {
		return nil, err
	}
	sp, err := ss.BuildSpectrum()
	if err != nil {
		return nil, err
	}
	g := &Generator{
		sceneName:    ss.SceneName,
		sceneId:      ss.SceneID,
		modes:        append([]spec.ModeKey(nil), ss.Modes...),
		alpha:        ss.Sampling.Alpha,
		core:         core.New(cf.New(seed)),
		scene:        sc,
		spectrum:     sp,
		SampleResult: buf.NewSampleResult(ss.SceneName, ss.SceneID),
		initseed:     seed,
	}
	return g, nil
}

// SceneName 回傳場景名稱。
func (g *Generator) SceneName() string { return g.sceneName }

// SceneId 回傳場景 ID。
func (g *Generator) SceneId() spec.SID { return g.sceneId }

// Modes 回傳場景允許的取樣模式。
func (g *Generator) Modes() []spec.ModeKey {
	return append([]spec.ModeKey(nil), g.modes...)
}

// Alpha 回傳場景預設的 photo-peak 分支機率。
func (g *Generator) Alpha() float64 { return g.alpha }

// Scene 回傳已編譯的場景幾何（唯讀使用）。
func (g *Generator) Scene() *source.Scene { return g.scene }

// Spectrum 回傳已編譯的發射譜（唯讀使用）。
func (g *Generator) Spectrum() *source.Spectrum { return g.spectrum }

// Sample 為主要公開入口，會驗證取樣請求，執行批次初始化並回傳結果。
func (g *Generator) Sample(r *dto.SampleRequest) (dto.SampleResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. 校驗請求合法性
	if err := g.valid(r); err != nil {
		return dto.SampleResult{}, err
	}
	// 2. parse dto to inner sample request
	req, err := r.Parse()
	if err != nil {
		return dto.SampleResult{}, err
	}

	// 3. get start snapshot
	startsnap, err := g.SnapshotCore()
	if err != nil {
		return dto.SampleResult{}, errs.NewFatal("before snapshot error " + err.Error())
	}
	rem := startsnap
	if req.StartState != nil && len(req.StartState.StartCoreSnap) != 0 {
		startsnap = req.StartState.StartCoreSnap
		if err := g.RestoreCore(req.StartState.StartCoreSnap); err != nil {
			return dto.SampleResult{}, errs.NewWarn("restore core err " + err.Error())
		}
	}

	// 4. run the batch into the reusable buffer
	alpha := g.alpha
	if req.HasAlpha {
		alpha = req.Alpha
	}
	sr, err := g.sample(req.Mode, req.Count, alpha)
	if err != nil {
		if e := g.RestoreCore(rem); e != nil {
			return dto.SampleResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.SampleResult{}, err
	}

	// 5. get after snapshot
	aftersnap, err := g.SnapshotCore()
	if err != nil {
		if e := g.RestoreCore(rem); e != nil {
			return dto.SampleResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.SampleResult{}, errs.NewWarn("after snapshot error " + err.Error())
	}
	sr.State.StartCoreSnap = startsnap
	sr.State.AfterCoreSnap = aftersnap

	// 6. restore if needed
	if req.StartState != nil && len(req.StartState.StartCoreSnap) != 0 {
		if err := g.RestoreCore(rem); err != nil {
			return dto.SampleResult{}, errs.NewFatal("restore core back err " + err.Error())
		}
	}

	// 7. dto
	return dto.NewSampleResultDTO(sr)
}

// SampleInternal 直接取得內部 SampleResult；常用於模擬器或測試
//
// 請勿在正式環境使用
//
// 此行為跳過請求校驗與快照協議，直接在當前 RNG 流水上取樣
func (g *Generator) SampleInternal(mode spec.ModeKey, count int, alpha float64) (*buf.SampleResult, error) {
	return g.sample(mode, count, alpha)
}

// sample 把一個批次寫入可重用 buffer。呼叫端負責鎖與快照協議。
func (g *Generator) sample(mode spec.ModeKey, count int, alpha float64) (*buf.SampleResult, error) {
	sr := g.SampleResult
	backward := mode == spec.ModeBackward
	sr.Resize(count, backward)
	sr.Mode = mode
	sr.Alpha = 0

	switch mode {
	case spec.ModeForward:
		if err := source.InitialiseForward(g.core, g.scene, g.spectrum, sr.States); err != nil {
			return nil, err
		}
	case spec.ModeBackward:
		sr.Alpha = alpha
		if err := source.InitialiseBackward(g.core, g.scene, g.spectrum, alpha, sr.States, sr.SourceEnergies); err != nil {
			return nil, err
		}
	default:
		return nil, errs.Warnf("unknown sample mode %q", mode)
	}
	return sr, nil
}

func (g *Generator) valid(req *dto.SampleRequest) error {
	if g.sceneId != req.SceneId {
		return errs.NewWarn("scene id is not matched")
	}
	if g.sceneName != req.SceneName {
		return errs.NewWarn("scene name is not matched")
	}
	if !g.allows(req.Mode) {
		return errs.NewWarn("mode is not allowed for this scene")
	}
	if req.Count <= 0 || req.Count > maxSampleCount {
		return errs.NewWarn("count out of range")
	}
	if req.HasAlpha && !(req.Alpha >= 0 && req.Alpha <= 1) {
		return errs.NewWarn("alpha out of range")
	}
	return nil
}

func (g *Generator) allows(m spec.ModeKey) bool {
	for _, v := range g.modes {
		if v == m {
			return true
		}
	}
	return false
}

// SnapshotCore 取得Core狀態暫存 當前僅提供取得Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// SnapShot() <- 保留語意
func (g *Generator) SnapshotCore() ([]byte, error) {
	return g.core.Snapshot()
}

// RestoreCore 恢復Core狀態暫存 當前僅提供恢復Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// Restore() <- 保留語意
func (g *Generator) RestoreCore(src []byte) error {
	return g.core.Restore(src)
}
