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

// BuiltinRadonProgeny 內建的 Pb-214 / Bi-214 衰變譜。
const BuiltinRadonProgeny = "radon_progeny"

// LineSetting 描述單一離散譜線：能量（MeV）與強度（每百次衰變光子數）。
type LineSetting struct {
	Energy    float64 `yaml:"energy"    json:"energy"`
	Intensity float64 `yaml:"intensity" json:"intensity"`
}

// SpectrumSetting 描述離散發射譜。
//
// Builtin 與 Lines 擇一：Builtin 指定內建譜名稱時 Lines 必須留空，
// 否則 Lines 依宣告順序列出譜線。
type SpectrumSetting struct {
	Builtin  string        `yaml:"builtin" json:"builtin"`
	Lines    []LineSetting `yaml:"lines"   json:"lines"`
	initFlag bool
}

// Init 檢查不合法的設定
func (ss *SpectrumSetting) Init() error {
	// 檢查初始化旗標
	if ss.initFlag {
		return nil
	}
	if ss.Builtin != "" {
		if ss.Builtin != BuiltinRadonProgeny {
			return errs.Fatalf("spectrum_setting: unknown builtin %q", ss.Builtin)
		}
		if len(ss.Lines) != 0 {
			return errs.NewFatal("spectrum_setting: builtin and lines are mutually exclusive")
		}
		ss.initFlag = true
		return nil
	}
	if len(ss.Lines) == 0 {
		return errs.NewFatal("spectrum_setting: empty spectrum")
	}
	for i, l := range ss.Lines {
		if l.Energy <= 0 {
			return errs.Fatalf("spectrum_setting: line %d has non-positive energy", i)
		}
		if l.Intensity < 0 {
			return errs.Fatalf("spectrum_setting: line %d has negative intensity", i)
		}
	}
	ss.initFlag = true
	return nil
}

func (ss *SpectrumSetting) build() (*source.Spectrum, error) {
	if ss.Builtin == BuiltinRadonProgeny {
		return source.RadonProgeny(), nil
	}
	lines := make([]source.Line, len(ss.Lines))
	for i, l := range ss.Lines {
		lines[i] = source.Line{Energy: l.Energy, Intensity: l.Intensity}
	}
	return source.NewSpectrum(lines)
}
