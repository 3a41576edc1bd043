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
	"math"

	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/source"
)

// BoxSetting 描述一個軸對齊盒：半長與中心座標，長度單位 cm。
type BoxSetting struct {
	HalfX  float64    `yaml:"half_x" json:"half_x"`
	HalfY  float64    `yaml:"half_y" json:"half_y"`
	HalfZ  float64    `yaml:"half_z" json:"half_z"`
	Center [3]float64 `yaml:"center" json:"center"`
}

func (bs BoxSetting) box() source.Box {
	return source.Box{
		HalfX:  bs.HalfX,
		HalfY:  bs.HalfY,
		HalfZ:  bs.HalfZ,
		Center: source.Vec3{X: bs.Center[0], Y: bs.Center[1], Z: bs.Center[2]},
	}
}

// GeometrySetting 描述源體積（世界盒）與內嵌偵測器盒的設定。
//
// Fields:
//   - World: 源體積界限，中心固定在原點
//   - Detector: 偵測器界限，必須嚴格包含於世界盒內
type GeometrySetting struct {
	World    BoxSetting `yaml:"world"    json:"world"`
	Detector BoxSetting `yaml:"detector" json:"detector"`
	initFlag bool
}

// Init 檢查不合法的設定
func (gs *GeometrySetting) Init() error {
	// 檢查初始化旗標
	if gs.initFlag {
		return nil
	}
	// 半長必須為正
	if gs.World.HalfX <= 0 || gs.World.HalfY <= 0 || gs.World.HalfZ <= 0 {
		return errs.NewFatal("geometry_setting: world half extents must be positive")
	}
	if gs.Detector.HalfX <= 0 || gs.Detector.HalfY <= 0 || gs.Detector.HalfZ <= 0 {
		return errs.NewFatal("geometry_setting: detector half extents must be positive")
	}
	// 偵測器必須「嚴格」包含於世界盒；否則 rejection 取樣沒有良定終止條件
	if math.Abs(gs.Detector.Center[0])+gs.Detector.HalfX >= gs.World.HalfX ||
		math.Abs(gs.Detector.Center[1])+gs.Detector.HalfY >= gs.World.HalfY ||
		math.Abs(gs.Detector.Center[2])+gs.Detector.HalfZ >= gs.World.HalfZ {
		return errs.NewFatal("geometry_setting: detector not strictly contained in world")
	}
	gs.initFlag = true
	return nil
}
