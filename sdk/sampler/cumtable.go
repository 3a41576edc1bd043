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

// Package sampler 提供加權離散抽樣的基礎工具。
//
// 本檔案 (cumtable.go) 實作累積權重表 (cumulative table) 的反變換抽樣。
//
// 演算法原理：
//   - 建表：依「宣告順序」累加權重，得到嚴格遞增的累積值序列；
//     最後一格即為正規化總和。宣告順序就是 tie-break 行為的一部分，
//     建表時必須原樣保留，不可排序。
//   - 抽樣：抽 r = uniform() * total，線性掃描找出第一個跨過 r 的格子。
//
// 邊界比較有兩種版本，且兩者都是對外合約的一部分：
//   - PickExclusive：第一個「嚴格大於 r」的格子（cum > r）。
//     r 恰等於最後一格累積值時，夾到最後一格，不會越界。
//   - PickInclusive：第一個「大於等於 r」的格子（cum >= r）。
//
// 兩種比較只在測度為零的邊界點上有差異；既有資料管線依賴各自的
// 版本做 bit 級重放，所以兩者都保留、不可互換。
//
// 特性：
//   - 建表 O(N)、抽樣 O(N) 線性掃。詞條數小（發射譜 ~10 條、盒面 6 面）
//     時，線性掃比 alias table 少一次亂數且 cache 友善。

package sampler

import (
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/core"
)

// CumTable 是依宣告順序建好的累積權重表。
// 建好後視為 immutable；Total 為最後一格的累積值。
type CumTable struct {
	cum []float64
}

// BuildCumTable 依權重列表建立累積表。
//
// src 為任意非負數值權重列表（支援 Numbers 約束）。
// 全零或含負權重回傳錯誤：對應的抽樣無從定義。
func BuildCumTable[T Numbers](src []T) (*CumTable, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("cumtable: empty weights")
	}
	cum := make([]float64, len(src))
	acc := 0.0
	for i, w := range src {
		fw := float64(w)
		if fw < 0 {
			return nil, errs.Fatalf("cumtable: negative weight at %d", i)
		}
		acc += fw
		cum[i] = acc
	}
	if acc <= 0 {
		return nil, errs.NewFatal("cumtable: all weights are zero")
	}
	return &CumTable{cum: cum}, nil
}

// Len 回傳詞條數。
func (t *CumTable) Len() int { return len(t.cum) }

// Total 回傳權重總和（最後一格的累積值）。
func (t *CumTable) Total() float64 { return t.cum[len(t.cum)-1] }

// Cumulative 回傳第 i 格的累積值。
func (t *CumTable) Cumulative(i int) float64 { return t.cum[i] }

// PickExclusive 抽 r = u*Total，回傳第一個累積值「嚴格大於 r」的索引。
// 掃到最後一格仍未跨過（r 恰等於 Total）時夾到最後一格。
func (t *CumTable) PickExclusive(c *core.Core) int {
	r := c.Uniform() * t.Total()
	n := len(t.cum)
	for i := 0; i < n-1; i++ {
		if t.cum[i] > r {
			return i
		}
	}
	return n - 1
}

// PickInclusive 抽 r = u*Total，回傳第一個累積值「大於等於 r」的索引。
// 與 PickExclusive 僅在測度為零的邊界點上不同。
func (t *CumTable) PickInclusive(c *core.Core) int {
	r := c.Uniform() * t.Total()
	n := len(t.cum)
	for i := 0; i < n-1; i++ {
		if t.cum[i] >= r {
			return i
		}
	}
	return n - 1
}
