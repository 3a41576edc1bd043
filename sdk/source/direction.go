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

	"github.com/zintix-labs/gammalab/sdk/core"
)

// Face 標識盒的一個軸對齊面：軸索引（0=X,1=Y,2=Z）與外法線正負號。
type Face struct {
	Axis int
	Sign float64 // +1 或 -1
}

// SampleIsotropic 在整個立體角上均勻抽一個單位方向（forward 模式）。
//
// cosθ = 2u-1 均勻、φ = 2πu2；消耗恰好兩次 uniform 抽樣，順序固定
// （cosθ 先、φ 後），是 bit 級重放合約的一部分。
func SampleIsotropic(c *core.Core) Vec3 {
	cosTheta := 2.0*c.Uniform() - 1.0
	sinTheta := math.Sqrt(1.0 - cosTheta*cosTheta)
	phi := 2.0 * math.Pi * c.Uniform()
	return Vec3{
		X: sinTheta * math.Cos(phi),
		Y: sinTheta * math.Sin(phi),
		Z: cosTheta,
	}
}

// SampleCosineInward 以 cosine 加權在半球上抽方向（backward 模式），
// 相對於指定面的外法線、方向朝「內」（與外法線相反的半球）。
//
// cosθ = sqrt(u) 給出 Lambertian 角分佈：穿越面的通量本身帶 cosθ 因子，
// 取樣 PDF 與其恰好相消，殘餘的 π 常數由權重模型吸收。
// 消耗恰好兩次 uniform 抽樣（u 先、φ 後）。
func SampleCosineInward(c *core.Core, f Face) Vec3 {
	u := c.Uniform()
	cosTheta := math.Sqrt(u)
	sinTheta := math.Sqrt(1.0 - u)
	phi := 2.0 * math.Pi * c.Uniform()

	var d Vec3
	d.SetAxis((f.Axis+1)%3, -f.Sign*sinTheta*math.Cos(phi))
	d.SetAxis((f.Axis+2)%3, -f.Sign*sinTheta*math.Sin(phi))
	d.SetAxis(f.Axis, -f.Sign*cosTheta)
	return d
}
