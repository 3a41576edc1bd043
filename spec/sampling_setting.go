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

package spec

import (
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/source"
)

// SamplingSetting 描述取樣迴圈的參數。
//
// Fields:
//   - Alpha: backward 模式抽中光電峰分支的機率，必須落在 [0,1]
//   - MaxPositionAttempts: forward 位置 rejection 的重試上限；0 代表用預設值
//   - MaxEnergyAttempts: backward 連續譜重抽上限；0 代表用預設值
//   - SurfaceEps: 面上取樣點外推的安全間距（cm）；0 代表用預設值
type SamplingSetting struct {
	Alpha               float64 `yaml:"alpha"                 json:"alpha"`
	MaxPositionAttempts int     `yaml:"max_position_attempts" json:"max_position_attempts"`
	MaxEnergyAttempts   int     `yaml:"max_energy_attempts"   json:"max_energy_attempts"`
	SurfaceEps          float64 `yaml:"surface_eps"           json:"surface_eps"`
	initFlag            bool
}

// Init 檢查不合法的設定並補上預設值
func (ss *SamplingSetting) Init() error {
	// 檢查初始化旗標
	if ss.initFlag {
		return nil
	}
	if !(ss.Alpha >= 0 && ss.Alpha <= 1) {
		return errs.Fatalf("sampling_setting: alpha %g outside [0,1]", ss.Alpha)
	}
	if ss.MaxPositionAttempts < 0 || ss.MaxEnergyAttempts < 0 {
		return errs.NewFatal("sampling_setting: negative attempt limit")
	}
	if ss.SurfaceEps < 0 {
		return errs.NewFatal("sampling_setting: negative surface_eps")
	}
	if ss.MaxPositionAttempts == 0 {
		ss.MaxPositionAttempts = source.DefaultMaxPositionAttempts
	}
	if ss.MaxEnergyAttempts == 0 {
		ss.MaxEnergyAttempts = source.DefaultMaxEnergyAttempts
	}
	if ss.SurfaceEps == 0 {
		ss.SurfaceEps = source.DefaultSurfaceEps
	}
	ss.initFlag = true
	return nil
}

// apply 把取樣參數套到編譯好的場景上。
func (ss *SamplingSetting) apply(sc *source.Scene) {
	sc.MaxPositionAttempts = ss.MaxPositionAttempts
	sc.MaxEnergyAttempts = ss.MaxEnergyAttempts
	sc.SurfaceEps = ss.SurfaceEps
}
