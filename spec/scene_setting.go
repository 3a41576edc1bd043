package spec

import (
	"fmt"

	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/source"
)

// SceneSetting 包含啟動一個取樣場景所需的所有高階設定。
type SceneSetting struct {
	SceneName string          `yaml:"scene_name"       json:"scene_name"`
	SceneID   SID             `yaml:"scene_id"         json:"scene_id"`
	Modes     []ModeKey       `yaml:"modes"            json:"modes"`
	Geometry  GeometrySetting `yaml:"geometry_setting" json:"geometry_setting"`
	Sampling  SamplingSetting `yaml:"sampling_setting" json:"sampling_setting"`
	Spectrum  SpectrumSetting `yaml:"spectrum_setting" json:"spectrum_setting"`
	Fixed     map[string]any  `yaml:"fixed"            json:"fixed"`
}

// init
func (ss *SceneSetting) init() error {
	if err := ss.Geometry.Init(); err != nil {
		return err
	}
	if err := ss.Sampling.Init(); err != nil {
		return err
	}
	if err := ss.Spectrum.Init(); err != nil {
		return err
	}
	return ss.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (ss *SceneSetting) valid() error {

	// valid Modes
	if len(ss.Modes) == 0 {
		return errs.NewFatal(fmt.Sprintf("scene_name: %s err:empty modes", ss.SceneName))
	}
	for _, m := range ss.Modes {
		if !m.Known() {
			return errs.NewFatal(fmt.Sprintf("scene_name: %s err:unknown mode %q", ss.SceneName, m))
		}
	}

	return nil
}

// Allows 回報此場景設定是否啟用指定模式。
func (ss *SceneSetting) Allows(m ModeKey) bool {
	for _, k := range ss.Modes {
		if k == m {
			return true
		}
	}
	return false
}

// BuildScene 將設定編譯成可取樣的場景並套用取樣參數。
func (ss *SceneSetting) BuildScene() (*source.Scene, error) {
	sc, err := source.NewScene(ss.Geometry.World.box(), ss.Geometry.Detector.box())
	if err != nil {
		return nil, errs.Wrap(err, fmt.Sprintf("scene_name: %s build scene failed", ss.SceneName))
	}
	ss.Sampling.apply(sc)
	return sc, nil
}

// BuildSpectrum 將設定編譯成累積譜線表。
func (ss *SceneSetting) BuildSpectrum() (*source.Spectrum, error) {
	sp, err := ss.Spectrum.build()
	if err != nil {
		return nil, errs.Wrap(err, fmt.Sprintf("scene_name: %s build spectrum failed", ss.SceneName))
	}
	return sp, nil
}
