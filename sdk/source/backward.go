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

// EnergyMin 是 backward 連續譜的能量下限（MeV）。
const EnergyMin = 0.01

// BackwardEnergy 實作 backward 模式的能量/權重混合模型。
//
// 先抽一條譜線得到源能量 E0（一律回傳給呼叫端，與 state 的能量是兩回事），
// 再以機率 alpha 決定此次試驗是 photo-peak 還是 background：
//   - photo-peak：energy = E0，weight = 1/alpha。
//   - background：energy 在 [EnergyMin, E0) 上 log-uniform，
//     即 energy = EnergyMin * exp(ln(E0/EnergyMin) * u)，
//     若捨入使 energy >= E0 則重抽 u（有界；數值安全修正）；
//     weight = energy * ln(E0/EnergyMin) / (1-alpha)。
//
// 分支判定必須在任何 1-alpha 除法之前：alpha = 1 時 photo-peak 分支
// 必然被選中（u < 1 恆真），background 的除式絕不可被求值；
// alpha = 0 時 photo-peak 機率為零（u < 0 恆假），只走 background。
//
// 回傳的 weight 只含混合修正；面積與 π 幾何因子由 batch 層疊乘。
func BackwardEnergy(c *core.Core, sp *Spectrum, alpha float64, maxAttempts int) (e0, energy, weight float64, err error) {
	e0 = sp.Sample(c)

	if c.Uniform() < alpha {
		return e0, e0, 1.0 / alpha, nil
	}

	lnRatio := math.Log(e0 / EnergyMin)
	for i := 0; i < maxAttempts; i++ {
		energy = EnergyMin * math.Exp(lnRatio*c.Uniform())
		if energy < e0 {
			weight = energy * lnRatio / (1.0 - alpha)
			return e0, energy, weight, nil
		}
	}
	return 0, 0, 0, errs.Fatalf(
		"backward energy sampler: %d redraws exhausted below source line %g MeV", maxAttempts, e0)
}
