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

// Package gammalab 提供 Gammalab 引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Gammalab 視為一個「可被後端/模擬器使用的 runtime」，它負責把下列兩個必需的地基組裝在一起，並提供建立 Generator 的入口：
//  1. Catalog：場景目錄（Single Source of Truth / SSOT），定義有哪些取樣場景、各自對應的設定檔名稱（ConfigName）。
//  2. PRNGFactory：亂數核心工廠，保證可重現（reproducible）與可審計（auditable）。
//
// 設計重點：
//   - Gammalab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - Gammalab 會持有一份 Catalog（你要跑哪一批場景/設定檔）。
//   - Generator 是對外提供 Sample 的最小單位；場景開發者（物理組）主要操作的是 source 與 spec 內的型別與資料結構。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Gammalab 建立 Generator，Generator 對外提供 Sample。
//   - 模擬器（sim）：由 Gammalab 建立多台 Generator 進行大量取樣統計。
//
// 注意：此套引擎以伽瑪射線輸運的初始狀態取樣為中心（Sample -> Result），不是泛用蒙地卡羅框架。
package gammalab

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/gammalab/catalog"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/core"
	"github.com/zintix-labs/gammalab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//   - 甚至可以用自製的 MultiFS 來合併多個來源。
//
// Gammalab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Gammalab 是「組裝器（assembler）」與「運行入口（runtime entry）」：
//
// 它把兩個必需的地基組合起來：
//  1. Catalog：場景目錄（SSOT），定義有哪些取樣場景、各自對應的設定檔名稱。
//  2. PRNGFactory：亂數核心工廠，保證可重現（reproducible）與可審計（auditable）。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、檢查重複與缺漏。
//   - 執行階段（runtime）：依據場景 ID 產生 Generator，並在 Generator 上執行 Sample。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Gammalab instance」內（不同 Gammalab 之間不做全域保證）。
//   - 你要跑哪一批場景、哪一套設定檔，必須由 New() 的參數明確決定。
//   - runtime 一旦開始（例如已建立 Generator 並對外服務），不建議再變更 Catalog（避免非預期行為）。
//
// 實務例子（概念示意，細節依你的實作為準）：
//
//	// 1) 準備 configs（通常是 go:embed 或 DirFS）
//	// 2) 組裝 Gammalab，取得可建立 Generator 的入口
//	//	lab, _ := gammalab.New(cf, gammalab.Configs(cfgFS))
//	//	g, _ := lab.NewGenerator(1001)
//	//	// g.Sample(...) -> 取得結果（通常再轉成 DTO 回傳）
type Gammalab struct {
	cat *catalog.Catalog
	cf  core.PRNGFactory
	sum []catalog.Summary
}

// New 建立一個 Gammalab instance。
//
// 這是「組裝階段（registration/build）」的入口：
//   - 會建立 Catalog（通常同時做檔名存在性/重複性檢查，避免 runtime 才爆）。
//   - 會保存 PRNGFactory，確保由這個 Gammalab 建出來的 Generator 在 RNG 行為上具有一致性。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現/可審計的核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 SceneSetting。
func New(cf core.PRNGFactory, cfgs []fs.FS) (*Gammalab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Gammalab{
		cat: cata,
		cf:  cf,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Gammalab instance。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS) (*Gammalab, error) {
	lab, err := New(cf, cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (p *Gammalab) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）嘗試解析成
// *spec.SceneSetting，並用設定檔內宣告的 SceneID/SceneName 產生對應的 catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error（不會忽略、也不會繼續掃完）。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入。
//     因此不會出現只註冊了一半、導致 catalog 處於半完成狀態的情況。
//  3. 穩定性：會依檔名排序後再處理，確保行為 determinism（方便重現與除錯）。
//
// 注意：
//   - RegisterAll 只負責「把設定檔宣告的場景資訊放進 Catalog」。
//
// 場景幾何/能譜是否建得出來，屬於後續 Gammalab 建取樣機時的責任。
func (p *Gammalab) RegisterAll() error {
	cfgs := p.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.SID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ss   *spec.SceneSetting
				serr error
			)
			switch ext {
			case ".yaml", ".yml":
				ss, serr = spec.GetSceneSettingByYAML(raw)
			case ".json":
				ss, serr = spec.GetSceneSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if serr != nil {
				return errs.NewFatal(fmt.Sprintf("parse scenesetting failed: %s", base))
			}

			name := strings.TrimSpace(ss.SceneName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("scene name required: %s", base))
			}

			id := ss.SceneID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate scene id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := p.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("scene id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate scene name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := p.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("scene name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			if len(ss.Modes) == 0 {
				return errs.NewFatal(fmt.Sprintf("modes required: %s", base))
			}
			for _, mode := range ss.Modes {
				if !mode.Known() {
					return errs.NewFatal(fmt.Sprintf("unknown mode: mode=%s (config=%s)", mode, base))
				}
			}

			entries = append(entries, catalog.Entry{
				SID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return p.cat.Register(entries...)
}

func (p *Gammalab) Freeze() {
	p.cat.Freeze()
}

func (p *Gammalab) EntryById(id spec.SID) (catalog.Entry, bool) {
	return p.cat.GetByID(id)
}

func (p *Gammalab) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

func (p *Gammalab) IDs() []spec.SID {
	return p.cat.IDs()
}

func (p *Gammalab) All() []catalog.Entry {
	return p.cat.All()
}

func (p *Gammalab) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if p.sum != nil {
		return p.sum, nil
	}
	ids := p.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ss, err := p.cat.SceneSettingById(id)
		if err != nil {
			return nil, errs.NewFatal("parse scene setting failed")
		}
		s := catalog.Summary{
			SID:   id,
			Name:  ss.SceneName,
			Modes: ss.Modes,
		}
		cs = append(cs, s)
	}
	p.sum = cs
	return p.sum, nil
}

// NewGenerator 依據 Catalog 內的場景 ID 建立一台取樣機。
//
// 行為：
//  1. 由 Catalog 取得對應的 SceneSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 以 PRNGFactory 產生 RNG 核心（seed 由 crypto/rand 產生）。
//  3. 依 SceneSetting 建出幾何場景與發射能譜。
//
// 注意：seed 會被記錄在 Generator 內（initseed），用於追溯/重現；真正的可審計能力以 Core 的 Snapshot/Restore 合約為準。
func (p *Gammalab) NewGenerator(id spec.SID) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SceneSettingById(id)
	if err != nil {
		return nil, err
	}
	return newGenerator(ss, p.cf)
}

// NewGeneratorWithSeed 與 NewGenerator 相同，但由呼叫端指定初始 seed。
//
// 使用情境：
//   - 可重現的測試：同一份設定 + 同一個 seed，應產生一致的隨機序列（取決於 Core 實作）。
//
// 注意：seed 只是「出生入口」。若要在任意時間點完整重現，請使用 Core 的 Snapshot/Restore（以 []byte 交換狀態）。
func (p *Gammalab) NewGeneratorWithSeed(id spec.SID, seed int64) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SceneSettingById(id)
	if err != nil {
		return nil, err
	}
	return newGeneratorWithSeed(ss, p.cf, seed)
}

func (p *Gammalab) NewGeneratorByJSON(raw []byte, seed int64) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSceneSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newGeneratorWithSeed(cfg, p.cf, seed)
}

func (p *Gammalab) NewGeneratorByYAML(raw []byte, seed int64) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSceneSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newGeneratorWithSeed(cfg, p.cf, seed)
}

func (p *Gammalab) validCfg(cfg *spec.SceneSetting) error {
	ent, ok := p.cat.GetByID(cfg.SceneID)
	if !ok {
		return errs.NewWarn("sid not exist")
	}
	ent2, ok := p.cat.GetByName(cfg.SceneName)
	if !ok {
		return errs.NewWarn("scene name not exist")
	}
	if ent.SID != ent2.SID {
		return errs.NewWarn("scene id is not matched scene name")
	}
	for _, mode := range cfg.Modes {
		if !mode.Known() {
			return errs.NewWarn("unknown mode")
		}
	}
	return nil
}

func (p *Gammalab) NewSimulator(id spec.SID) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SceneSettingById(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(ss, p.cf)
}

func (p *Gammalab) NewSimulatorWithSeed(id spec.SID, seed int64) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SceneSettingById(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ss, p.cf, seed)
}

func (p *Gammalab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSceneSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(cfg, p.cf, seed)
}

func (p *Gammalab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSceneSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(cfg, p.cf, seed)
}

func (p *Gammalab) BuildRuntime(poolSize int) (*SourceRuntime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	p.Freeze()

	ids := p.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no scenes registered")
	}

	rt := &SourceRuntime{
		lab:      p,
		pools:    make(map[spec.SID]*GeneratorPool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	// 2. 先全建好（fail-fast + cleanup）
	for _, id := range ids {
		ss, err := p.cat.SceneSettingById(id)
		if err != nil {
			return nil, err
		}

		seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		gp, err := newGeneratorPool(rt.poolSize, ss, p.cf, seed.Int64())
		if err != nil {
			return nil, err
		}
		rt.pools[id] = gp
	}
	return rt, nil
}

// NewDevSampler
//
// 注意只能由Gammalab起
// 只提供給Dev模式使用的取樣器，重點是保持單機台模式所以保持可重現性
func (p *Gammalab) NewDevSampler(sid spec.SID, seed int64) (*DevSampler, error) {
	sim, err := p.NewSimulatorWithSeed(sid, seed)
	if err != nil {
		return nil, err
	}
	g, err := p.NewGeneratorWithSeed(sid, seed)
	if err != nil {
		return nil, err
	}
	simBe, err := sim.gBuf[0].SnapshotCore()
	if err != nil {
		return nil, err
	}
	gBe, err := g.SnapshotCore()
	if err != nil {
		return nil, err
	}
	simBe64 := base64.StdEncoding.EncodeToString(simBe)
	gBe64 := base64.StdEncoding.EncodeToString(gBe)
	if gBe64 != simBe64 {
		return nil, errs.NewFatal("seeds are not equal")
	}
	dev := &DevSampler{
		sim:      sim,
		g:        g,
		before:   gBe,
		before64: gBe64,
	}
	return dev, nil
}
