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
	"github.com/zintix-labs/gammalab/sdk/sampler"
)

// 預設的安全界限。rejection loop 理論上以幾何機率近乎必然終止，
// 但退化幾何（偵測器沒有嚴格小於源體積）會讓它變成死迴圈，
// 所以一律加上明確的重試上限，超過即回報 Fatal 組態錯誤。
const (
	DefaultMaxPositionAttempts = 10000
	DefaultMaxEnergyAttempts   = 100

	// DefaultSurfaceEps 是盒面取樣時沿外法線外推的距離（cm，約 1 µm）。
	// 避免把點放在邊界平面上造成 transport 端的數值歧義。
	DefaultSurfaceEps = 1e-4
)

// Box 是軸對齊盒：半長（half extents）加中心偏移。Immutable 值型別。
type Box struct {
	HalfX  float64
	HalfY  float64
	HalfZ  float64
	Center Vec3
}

// Contains 回傳點是否落在盒內（含邊界，inclusive bounds）。
func (b Box) Contains(p Vec3) bool {
	return abs(p.X-b.Center.X) <= b.HalfX &&
		abs(p.Y-b.Center.Y) <= b.HalfY &&
		abs(p.Z-b.Center.Z) <= b.HalfZ
}

// SurfaceArea 回傳盒的總表面積。
func (b Box) SurfaceArea() float64 {
	return 8 * (b.HalfX*b.HalfY + b.HalfY*b.HalfZ + b.HalfZ*b.HalfX)
}

// FaceAreas 回傳六個面的面積，固定順序 [-x,+x,-y,+y,-z,+z]。
// 同一軸的兩個面面積相同；順序是面抽樣合約的一部分。
func (b Box) FaceAreas() [6]float64 {
	ax := 4 * b.HalfY * b.HalfZ
	ay := 4 * b.HalfZ * b.HalfX
	az := 4 * b.HalfX * b.HalfY
	return [6]float64{ax, ax, ay, ay, az, az}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Scene 是一次編譯好的取樣場景：世界（源）盒、內嵌偵測器盒、
// 以及建好的面積累積表與安全參數。建好後視為 immutable。
type Scene struct {
	World    Box // 源體積界限，中心在原點；forward 只在其上半 z 取樣（地表以上的大氣層）
	Detector Box // 內嵌偵測器界限

	MaxPositionAttempts int
	MaxEnergyAttempts   int
	SurfaceEps          float64

	faceTable *sampler.CumTable
}

// NewScene 驗證幾何不變量並編譯場景。
//
// 不變量：偵測器盒必須「嚴格」包含於世界盒之內且嚴格較小；
// 違反時 forward 的 rejection loop 沒有良定終止條件，直接建場景失敗
// 而不是留到取樣時打穿重試上限。
func NewScene(world, detector Box) (*Scene, error) {
	if world.HalfX <= 0 || world.HalfY <= 0 || world.HalfZ <= 0 {
		return nil, errs.NewFatal("scene: world half extents must be positive")
	}
	if detector.HalfX <= 0 || detector.HalfY <= 0 || detector.HalfZ <= 0 {
		return nil, errs.NewFatal("scene: detector half extents must be positive")
	}
	if abs(detector.Center.X)+detector.HalfX >= world.HalfX ||
		abs(detector.Center.Y)+detector.HalfY >= world.HalfY ||
		abs(detector.Center.Z)+detector.HalfZ >= world.HalfZ {
		return nil, errs.NewFatal("scene: detector must be strictly contained in the world box")
	}

	areas := detector.FaceAreas()
	table, err := sampler.BuildCumTable(areas[:])
	if err != nil {
		return nil, errs.Wrap(err, "scene: face area table")
	}
	return &Scene{
		World:               world,
		Detector:            detector,
		MaxPositionAttempts: DefaultMaxPositionAttempts,
		MaxEnergyAttempts:   DefaultMaxEnergyAttempts,
		SurfaceEps:          DefaultSurfaceEps,
		faceTable:           table,
	}, nil
}

// CollectorScene 回傳基準場景：2 km 見方的世界盒、
// 20x20x10 m 的偵測器盒放在地表上方 5 cm。長度單位 cm。
func CollectorScene() *Scene {
	const (
		worldHalf      = 1e5  // 2 km / 2
		detectorHalfW  = 1e3  // 20 m / 2
		detectorHalfH  = 5e2  // 10 m / 2
		detectorOffset = 5.0  // 5 cm above ground
	)
	sc, err := NewScene(
		Box{HalfX: worldHalf, HalfY: worldHalf, HalfZ: worldHalf},
		Box{
			HalfX:  detectorHalfW,
			HalfY:  detectorHalfW,
			HalfZ:  detectorHalfH,
			Center: Vec3{Z: detectorHalfH + detectorOffset},
		},
	)
	if err != nil {
		panic(err)
	}
	return sc
}
