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

// Package core 定義 gammalab 的亂數核心（PRNG capability）。
//
// 取樣引擎對亂數來源只有一個需求：「產出 [0,1) 的均勻亂數」。但我們仍以介面
// 形式注入整個 PRNG，而不是藏在 process-wide 的全域 generator 後面：
//   - 可重現（reproducible）：同一個 seed 必須產生一致序列，batch 才能 bit 級重放。
//   - 可審計（auditable）：Snapshot/Restore 讓任意時間點的核心狀態可保存/還原。
//   - 子流派生（substream）：併發模擬時由上層以固定算法派生子 seed，
//     每台 Generator 持有獨立 Core，避免共用一把 generator 的資料競爭。
package core

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// Float64 是取樣引擎的熱路徑（每個 state 會抽 5~10 次）；Uint64/UintN/IntN
// 保留給實作針對平台與 bounded 生成做最佳化的空間，不強迫所有實作走
// 「先產生 uint64 再轉換/裁切」的退化路徑。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約（很重要）：在同一個實作與同一個版本下，New(seed) 必須是「決定性」的——
	// 相同的 seed 必須產生相同的初始內部狀態與輸出序列。
	//
	// seed 的生命週期由 Lab 統一管理：外部未提供時由 Lab 產生並保存 baseSeed，
	// 後續所有 Generator/Simulator 皆由 baseSeed 以固定算法派生子 seed。
	// 因此本包永遠不需要「不帶 seed 的 New()」。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory（PCG64）。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Uniform 回傳 [0,1) 均勻亂數；與 Float64 相同，
// 保留這個名字讓取樣程式碼讀起來貼近數學語意。
func (c *Core) Uniform() float64 {
	return c.Float64()
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
// 熱路徑中只使用哨兵值回傳
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	idx := c.IntN(len(src))
	return src[idx]
}

// ShuffleInts 使用 Fisher-Yates 演算法對 []int 進行就地隨機重排。
//
// 所有 N! 種排列出現機率嚴格相等；時間 O(N)、空間 O(1)。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
