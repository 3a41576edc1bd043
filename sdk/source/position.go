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
)

// SamplePositionForward 在源體積內均勻抽一個位置，條件是嚴格落在
// 偵測器盒之外（rejection sampling）。
//
// 取樣域刻意不對稱：x、y 在世界盒全寬上對原點對稱取樣，
// z 只取世界盒的上半（[0, HalfZ)）——代表地表以上的大氣層。
// 候選點以「含邊界」的判斷測試偵測器盒（落在邊界上也重抽）。
//
// 迴圈有明確上限：偵測器若沒有嚴格小於源體積，rejection 的終止
// 只剩幾何機率論證，退化幾何下會永不終止。打穿上限回報 Fatal
// 組態錯誤，而不是默默重試或回傳非法點。
//
// 每次嘗試固定消耗三次 uniform 抽樣（x, y, z 順序）。
func SamplePositionForward(c *core.Core, sc *Scene) (Vec3, error) {
	for i := 0; i < sc.MaxPositionAttempts; i++ {
		p := Vec3{
			X: sc.World.HalfX * (2.0*c.Uniform() - 1.0),
			Y: sc.World.HalfY * (2.0*c.Uniform() - 1.0),
			Z: sc.World.HalfZ * c.Uniform(),
		}
		if sc.Detector.Contains(p) {
			// 候選點落在偵測器體積內，重抽。
			continue
		}
		return p, nil
	}
	return Vec3{}, errs.Fatalf(
		"position sampler: %d rejections exhausted; detector box must be strictly smaller than the source volume",
		sc.MaxPositionAttempts)
}

// SampleFace 依面積加權抽偵測器盒的一個面。
//
// 面順序固定為 [-x,+x,-y,+y,-z,+z]；選取採「大於等於 r」的邊界比較
// （與譜線抽樣的嚴格比較不同）。這個不對稱只影響測度為零的邊界點，
// 但為了 bit 級重放必須原樣保留。
func (sc *Scene) SampleFace(c *core.Core) Face {
	idx := sc.faceTable.PickInclusive(c)
	return Face{Axis: idx / 2, Sign: float64(idx%2)*2 - 1}
}

// FaceIndex 回傳面在固定順序 [-x,+x,-y,+y,-z,+z] 中的索引（統計檢定用）。
func (f Face) FaceIndex() int {
	idx := f.Axis * 2
	if f.Sign > 0 {
		idx++
	}
	return idx
}

// SamplePointOnFace 在指定面上均勻抽一點。
//
// 沿面軸的座標固定在面平面上，並沿外法線外推 SurfaceEps，
// 避免點恰好落在邊界上；其餘兩個座標在該面全寬上均勻抽
// （依軸序消耗兩次 uniform）。
func (sc *Scene) SamplePointOnFace(c *core.Core, f Face) Vec3 {
	d := sc.Detector
	half := [3]float64{d.HalfX, d.HalfY, d.HalfZ}

	var p Vec3
	p.SetAxis(f.Axis, d.Center.Axis(f.Axis)+f.Sign*(half[f.Axis]+sc.SurfaceEps))
	for ax := 0; ax < 3; ax++ {
		if ax == f.Axis {
			continue
		}
		p.SetAxis(ax, d.Center.Axis(ax)+half[ax]*(2.0*c.Uniform()-1.0))
	}
	return p
}
