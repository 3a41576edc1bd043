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

package source

import (
	"math"

	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/core"
)

// InitialiseForward 依序填寫 states 中每個元素（forward 模式）。
//
// 每個索引的抽樣順序固定：譜線能量 → 位置（rejection）→ 等向方向；
// 權重恆為 1.0。整個 batch 在單一亂數流上嚴格循序，索引間邏輯獨立，
// 但抽樣順序是固定 seed 下 bit 級重放的觀測合約，不可重排。
//
// len(states) == 0 時不寫入、不報錯。任何 Fatal 幾何錯誤會使整個
// 呼叫中止；中止後陣列內容未定義，呼叫端不可使用部分結果。
func InitialiseForward(c *core.Core, sc *Scene, sp *Spectrum, states []ParticleState) error {
	if sc == nil || sp == nil {
		return errs.NewWarn("initialise forward: scene and spectrum are required")
	}
	for i := range states {
		st := &states[i]
		st.Energy = sp.Sample(c)
		pos, err := SamplePositionForward(c, sc)
		if err != nil {
			return err
		}
		st.Position = pos
		st.Direction = SampleIsotropic(c)
		st.Weight = 1.0
	}
	return nil
}

// InitialiseBackward 依序填寫 states 與 sourceEnergies（backward 模式）。
//
// 每個索引的抽樣順序固定：能量混合（譜線 + 分支 + 連續譜重抽）→
// 面抽樣 → 面上位置 → cosine 方向。state 權重為混合權重疊乘
// 偵測器總表面積與 π：cosine 取樣 PDF 與通量的 cosθ 因子恰好相消，
// 殘餘的 π 常數與面積幾何因子在此吸收。
//
// alpha 必須落在 [0,1]，在 batch 邊界驗證（Warn）；
// sourceEnergies 與 states 必須等長且逐索引對應。
func InitialiseBackward(c *core.Core, sc *Scene, sp *Spectrum, alpha float64, states []ParticleState, sourceEnergies []float64) error {
	if sc == nil || sp == nil {
		return errs.NewWarn("initialise backward: scene and spectrum are required")
	}
	if !(alpha >= 0 && alpha <= 1) {
		return errs.Warnf("initialise backward: alpha %g outside [0,1]", alpha)
	}
	if len(sourceEnergies) != len(states) {
		return errs.Warnf("initialise backward: source energy buffer length %d != states length %d",
			len(sourceEnergies), len(states))
	}

	geomFactor := sc.Detector.SurfaceArea() * math.Pi
	for i := range states {
		st := &states[i]

		e0, energy, weight, err := BackwardEnergy(c, sp, alpha, sc.MaxEnergyAttempts)
		if err != nil {
			return err
		}
		st.Energy = energy
		st.Weight = weight * geomFactor
		sourceEnergies[i] = e0

		face := sc.SampleFace(c)
		st.Position = sc.SamplePointOnFace(c, face)
		st.Direction = SampleCosineInward(c, face)
	}
	return nil
}
