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
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/core"
	"github.com/zintix-labs/gammalab/sdk/sampler"
)

// Line 是一條發射譜線：能量（MeV）與相對強度。
type Line struct {
	Energy    float64 `json:"energy"`
	Intensity float64 `json:"intensity"`
}

// Spectrum 是一次建好、之後視為 immutable 的離散發射譜。
//
// 累積強度表依「宣告順序」建立——宣告順序不是按能量排序，而是合約的一部分：
// 它定義了累積值相等時的 tie-break 行為，建表時必須原樣保留。
type Spectrum struct {
	lines []Line
	table *sampler.CumTable
}

// NewSpectrum 依宣告順序的 (energy, intensity) 列表建譜。
func NewSpectrum(lines []Line) (*Spectrum, error) {
	if len(lines) == 0 {
		return nil, errs.NewFatal("spectrum: no emission lines")
	}
	weights := make([]float64, len(lines))
	for i, l := range lines {
		if l.Energy <= 0 {
			return nil, errs.Fatalf("spectrum: non-positive energy at line %d", i)
		}
		weights[i] = l.Intensity
	}
	table, err := sampler.BuildCumTable(weights)
	if err != nil {
		return nil, errs.Wrap(err, "spectrum: cumulative table")
	}
	return &Spectrum{
		lines: append([]Line(nil), lines...),
		table: table,
	}, nil
}

// RadonProgeny 回傳預設譜：Pb-214 與 Bi-214 的主要 gamma 發射線。
// 能量單位 MeV、強度單位 percent。
func RadonProgeny() *Spectrum {
	s, err := NewSpectrum([]Line{
		// Pb-214 major emission lines.
		{0.242, 7.3},
		{0.295, 18.4},
		{0.352, 35.6},
		// Bi-214 major emission lines.
		{0.609, 45.5},
		{0.768, 4.9},
		{0.934, 3.1},
		{1.120, 14.9},
		{1.238, 5.8},
		{1.378, 4.0},
		{1.764, 15.3},
		{2.204, 4.9},
	})
	if err != nil {
		// 內建表不可能建失敗；失敗代表程式錯誤。
		panic(err)
	}
	return s
}

// Sample 以反變換抽一條發射線並回傳其能量（MeV）。
//
// 抽 r = u*total 後線性掃描，取第一個累積強度「嚴格大於 r」的詞條；
// r 恰等於最後的累積值時選最後一條，不會越界。純函數，無失敗模式。
func (s *Spectrum) Sample(c *core.Core) float64 {
	return s.lines[s.table.PickExclusive(c)].Energy
}

// SampleIndex 與 Sample 相同，但回傳線的索引（統計檢定用）。
func (s *Spectrum) SampleIndex(c *core.Core) int {
	return s.table.PickExclusive(c)
}

// Lines 回傳譜線的唯讀副本。
func (s *Spectrum) Lines() []Line {
	return append([]Line(nil), s.lines...)
}

// Len 回傳譜線數。
func (s *Spectrum) Len() int { return len(s.lines) }

// Total 回傳強度總和（正規化常數）。
func (s *Spectrum) Total() float64 { return s.table.Total() }
