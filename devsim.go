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

package gammalab

import (
	"math"

	"github.com/zintix-labs/gammalab/corefmt"
	"github.com/zintix-labs/gammalab/dto"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/spec"
	"github.com/zintix-labs/gammalab/stats"
)

// DevSampler
//
// 只提供給Dev模式使用的取樣器，單線(不併發)，重點在可審計、可重現
type DevSampler struct {
	sim      *Simulator // 只開放Sim功能
	g        *Generator // 同步seed
	before   []byte
	after    []byte
	before64 string
	after64  string
}

type DevSampleReport struct {
	Before      string             `json:"start_b64u"`
	After       string             `json:"after_b64u"`
	Round       int                `json:"round"`
	States      int                `json:"states"`
	TotalWeight float64            `json:"total_weight"`
	MeanWeight  float64            `json:"mean_weight"`
	MinEnergy   float64            `json:"min_energy"`
	MaxEnergy   float64            `json:"max_energy"`
	Results     []dto.SampleResult `json:"results"`
}

func (d *DevSampler) sampleOne(mode spec.ModeKey, count int) (dto.SampleResult, error) {
	if count < 1 || count > 10_000 {
		return dto.SampleResult{}, errs.NewWarn("count must be between 1 and 10,000")
	}
	req := &dto.SampleRequest{
		SceneName: d.g.SceneName(),
		SceneId:   d.g.SceneId(),
		Mode:      mode,
		Count:     count,
	}
	return d.g.Sample(req)
}

func (d *DevSampler) Samples(mode spec.ModeKey, count int, round int) (DevSampleReport, error) {
	// 限制檢查
	if round < 1 || round > 5000 {
		return DevSampleReport{}, errs.NewWarn("round must be between 1 and 5,000")
	}

	// sample
	ds := make([]dto.SampleResult, 0, round)
	for range round {
		result, err := d.sampleOne(mode, count)
		if err != nil {
			return DevSampleReport{}, errs.Wrap(err, "sample error")
		}
		ds = append(ds, result)
	}
	// 統計
	states, w := 0, 0.0
	emin, emax := math.Inf(1), math.Inf(-1)
	for _, r := range ds {
		states += r.Count
		for _, st := range r.States {
			w += st.Weight
			emin = min(emin, st.Energy)
			emax = max(emax, st.Energy)
		}
	}

	de := DevSampleReport{
		Before:      ds[0].State.StartCoreSnapB64U,
		After:       ds[len(ds)-1].State.AfterCoreSnapB64U,
		Round:       len(ds),
		States:      states,
		TotalWeight: w,
		MeanWeight:  w / float64(states),
		MinEnergy:   emin,
		MaxEnergy:   emax,
		Results:     ds,
	}
	return de, nil
}

func (d *DevSampler) RestoreSamples(be64 string, mode spec.ModeKey, count int, round int) (DevSampleReport, error) {
	// 限制檢查
	if round < 1 || round > 5000 {
		return DevSampleReport{}, errs.NewWarn("round must be between 1 and 5,000")
	}
	// 解析seed
	be, err := corefmt.DecodeBase64URL(be64)
	if err != nil {
		return DevSampleReport{}, errs.NewWarn("decode seed failed" + err.Error())
	}
	// restore
	if err := d.g.RestoreCore(be); err != nil {
		return DevSampleReport{}, errs.NewWarn("generator restore failed")
	}
	return d.Samples(mode, count, round)
}

type DevSimReport struct {
	Before string              `json:"before"`
	After  string              `json:"after"`
	Stat   *stats.SampleReport `json:"statistic"`
}

func (d *DevSampler) Sim(mode spec.ModeKey, count int) (DevSimReport, error) {
	// 先存 before 快照
	g := d.sim.gBuf[0]
	be, err := g.SnapshotCore()
	if err != nil {
		return DevSimReport{}, err
	}
	be64 := corefmt.EncodeBase64URL(be)
	d.before = be
	d.before64 = be64

	// Sample
	if !d.g.allows(mode) {
		return DevSimReport{}, errs.NewWarn("mode is not allowed for this scene")
	}
	if count < 1 || count > 3_000_000 {
		return DevSimReport{}, errs.NewWarn("count must be between 1 and 3,000,000")
	}
	stat, _, err := d.sim.Sim(mode, d.g.Alpha(), count, false)
	if err != nil {
		return DevSimReport{}, errs.Wrap(err, "sim failed")
	}

	// 再存 after 快照
	af, err := g.SnapshotCore()
	if err != nil {
		return DevSimReport{}, err
	}
	af64 := corefmt.EncodeBase64URL(af)
	d.after = af
	d.after64 = af64

	return DevSimReport{
		Before: be64,
		After:  af64,
		Stat:   stat,
	}, nil
}

func (d *DevSampler) RestoreSim(be64 string, mode spec.ModeKey, count int) (DevSimReport, error) {
	// 反解析 string -> []byte
	be, err := corefmt.DecodeBase64URL(be64)
	if err != nil {
		return DevSimReport{}, errs.Wrap(err, "decode seed failed")
	}
	d.before = be
	d.before64 = be64

	// restore
	if err := d.sim.gBuf[0].RestoreCore(be); err != nil {
		return DevSimReport{}, errs.Wrap(err, "restore simulator failed")
	}

	return d.Sim(mode, count)
}
