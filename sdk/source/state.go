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

// Package source 實作 Monte Carlo 初始態的取樣核心。
//
// 給定偵測器幾何與發射譜，對每個模擬粒子產出初始能量、3D 位置、3D 方向與
// 統計重要性權重（importance weight）。兩種模式：
//   - Forward：由環境源體積（排除偵測器）發射，權重恆為 1。
//   - Backward/adjoint：由偵測器外表面朝向可能源反向發射，
//     能量為 photo-peak 與 log-uniform 連續譜的混合，權重依分支修正。
//
// 本包只做純 CPU 取樣計算：所有函數都以顯式參數（幾何、譜、亂數核心）呼叫，
// 不引用任何 package-scope 可變狀態，方便以注入的決定性亂數序列逐一單測。
// 單位合約：能量 MeV、位置 cm、方向為無因次單位向量、權重無因次。
package source

import "math"

// Vec3 是取樣核心使用的 3D 向量值型別。
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm 回傳向量長度。
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dot 回傳內積。
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Axis 回傳第 i 軸分量（0=X, 1=Y, 2=Z）。
func (v Vec3) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetAxis 設定第 i 軸分量。
func (v *Vec3) SetAxis(i int, x float64) {
	switch i {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}

// ParticleState 是單一 Monte Carlo 態。
//
// 生命週期：由呼叫端以連續陣列配置；取樣引擎對每個元素的四個欄位
// 恰好各寫一次，除局部暫存外不持有任何記憶體。欄位不跨呼叫存活，
// 每次 batch 呼叫獨立無狀態（共享的亂數流除外）。
type ParticleState struct {
	Energy    float64 `json:"energy"`    // MeV，取樣後恆 > 0
	Position  Vec3    `json:"position"`  // cm，world frame
	Direction Vec3    `json:"direction"` // 單位向量
	Weight    float64 `json:"weight"`    // 正的 MC 重要性權重；forward 無偏抽樣為 1.0
}
