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
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/zintix-labs/gammalab/dto"
	"github.com/zintix-labs/gammalab/sdk/core"
	"github.com/zintix-labs/gammalab/spec"
)

const testSceneYAML = `
scene_name: test_room
scene_id: 7001
modes:
  - forward
  - backward
geometry_setting:
  world:
    half_x: 200.0
    half_y: 150.0
    half_z: 125.0
  detector:
    half_x: 5.0
    half_y: 5.0
    half_z: 5.0
    center: [0.0, 0.0, -75.0]
sampling_setting:
  alpha: 0.8
spectrum_setting:
  builtin: radon_progeny
`

const testForwardOnlyYAML = `
scene_name: test_hall
scene_id: 7002
modes:
  - forward
geometry_setting:
  world:
    half_x: 100.0
    half_y: 100.0
    half_z: 100.0
  detector:
    half_x: 2.5
    half_y: 2.5
    half_z: 7.5
    center: [0.0, 0.0, 40.0]
sampling_setting:
  alpha: 0.5
spectrum_setting:
  lines:
    - { energy: 0.6617, intensity: 85.1 }
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"test_room.yaml": {Data: []byte(testSceneYAML)},
		"test_hall.yaml": {Data: []byte(testForwardOnlyYAML)},
	}
}

func newTestLab(t *testing.T) *Gammalab {
	t.Helper()
	lab, err := NewAuto(core.Default(), Configs(testFS()))
	if err != nil {
		t.Fatalf("assemble lab: %v", err)
	}
	return lab
}

func TestLabAssembly(t *testing.T) {
	lab := newTestLab(t)

	ids := lab.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(ids))
	}
	// 排序保證
	if ids[0] != spec.SID(7001) || ids[1] != spec.SID(7002) {
		t.Fatalf("ids not sorted: %v", ids)
	}

	ent, ok := lab.EntryById(7001)
	if !ok || ent.Name != "test_room" {
		t.Fatalf("entry by id failed: %+v ok=%v", ent, ok)
	}
	if _, ok := lab.EntryByName("test_hall"); !ok {
		t.Fatalf("entry by name failed")
	}

	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sum))
	}
	if len(sum[0].Modes) != 2 || len(sum[1].Modes) != 1 {
		t.Fatalf("unexpected summary modes: %+v", sum)
	}
}

func TestLabRejectsDuplicateIDs(t *testing.T) {
	dup := testFS()
	clash := []byte(`
scene_name: clash
scene_id: 7001
modes: [forward]
geometry_setting:
  world: { half_x: 10.0, half_y: 10.0, half_z: 10.0 }
  detector: { half_x: 1.0, half_y: 1.0, half_z: 1.0 }
sampling_setting: { alpha: 0.5 }
spectrum_setting:
  lines:
    - { energy: 1.0, intensity: 100.0 }
`)
	dup["clash.yaml"] = &fstest.MapFile{Data: clash}

	if _, err := NewAuto(core.Default(), Configs(dup)); err == nil {
		t.Fatalf("expected duplicate scene_id error")
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	lab := newTestLab(t)

	g1, err := lab.NewGeneratorWithSeed(7001, 42)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	g2, err := lab.NewGeneratorWithSeed(7001, 42)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	r1, err := g1.SampleInternal(spec.ModeBackward, 64, 0.8)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	r2, err := g2.SampleInternal(spec.ModeBackward, 64, 0.8)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	if len(r1.States) != 64 || len(r2.States) != 64 {
		t.Fatalf("unexpected state counts: %d vs %d", len(r1.States), len(r2.States))
	}
	for i := range r1.States {
		if r1.States[i] != r2.States[i] {
			t.Fatalf("state %d diverged: %+v vs %+v", i, r1.States[i], r2.States[i])
		}
	}
}

func TestGeneratorSnapshotReplay(t *testing.T) {
	lab := newTestLab(t)

	g, err := lab.NewGeneratorWithSeed(7001, 7)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	snap, err := g.SnapshotCore()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	first, err := g.SampleInternal(spec.ModeForward, 32, 0)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if err := g.RestoreCore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	replay, err := g.SampleInternal(spec.ModeForward, 32, 0)
	if err != nil {
		t.Fatalf("replay sample: %v", err)
	}
	for i := range first.States {
		if first.States[i] != replay.States[i] {
			t.Fatalf("replay diverged at state %d", i)
		}
	}
}

func TestGeneratorModeGate(t *testing.T) {
	lab := newTestLab(t)

	g, err := lab.NewGeneratorWithSeed(7002, 1)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	req := &dto.SampleRequest{
		SceneName: g.SceneName(),
		SceneId:   g.SceneId(),
		Mode:      spec.ModeBackward,
		Count:     4,
	}
	if _, err := g.Sample(req); err == nil {
		t.Fatalf("expected mode-not-allowed error")
	}
}

func TestSimulatorForwardRun(t *testing.T) {
	lab := newTestLab(t)

	sim, err := lab.NewSimulatorWithSeed(7001, 99)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	st, used, err := sim.Sim(spec.ModeForward, sim.Alpha(), 5000, false)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	if used <= 0 {
		t.Fatalf("expected positive duration, got %v", used)
	}
	if st.Summary.States != 5000 {
		t.Fatalf("expected 5000 states, got %d", st.Summary.States)
	}
	// forward 權重恆為 1
	if st.Summary.TotalWeight != 5000 {
		t.Fatalf("forward total weight should equal count, got %v", st.Summary.TotalWeight)
	}
	if !(st.Summary.MinEnergy > 0) {
		t.Fatalf("min energy must be positive, got %v", st.Summary.MinEnergy)
	}
}

func TestSimulatorBackwardWeights(t *testing.T) {
	lab := newTestLab(t)

	sim, err := lab.NewSimulatorWithSeed(7001, 99)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	st, _, err := sim.Sim(spec.ModeBackward, 0.8, 5000, false)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	if st.Summary.States != 5000 {
		t.Fatalf("expected 5000 states, got %d", st.Summary.States)
	}
	// alpha=0.8 → 約兩成連續譜
	if st.Summary.Continuum == 0 || st.Summary.Continuum == 5000 {
		t.Fatalf("continuum count implausible: %d", st.Summary.Continuum)
	}
	if !(st.Summary.TotalWeight > 0) {
		t.Fatalf("backward total weight must be positive, got %v", st.Summary.TotalWeight)
	}
}

func TestSimulatorRejectsBadRuns(t *testing.T) {
	lab := newTestLab(t)

	sim, err := lab.NewSimulatorWithSeed(7001, 5)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	if _, _, err := sim.Sim("sideways", 0.5, 10, false); err == nil {
		t.Fatalf("expected unknown-mode error")
	}
	if _, _, err := sim.Sim(spec.ModeBackward, 1.5, 10, false); err == nil {
		t.Fatalf("expected alpha range error")
	}
	if _, _, err := sim.Sim(spec.ModeForward, 0.5, 0, false); err == nil {
		t.Fatalf("expected count error")
	}
}

func TestSimMPMergesWorkers(t *testing.T) {
	lab := newTestLab(t)

	sim, err := lab.NewSimulatorWithSeed(7001, 17)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	st, _, err := sim.SimMP(spec.ModeForward, sim.Alpha(), 1000, 4, false)
	if err != nil {
		t.Fatalf("simmp: %v", err)
	}
	if st.Summary.States != 4000 {
		t.Fatalf("expected 4*1000 merged states, got %d", st.Summary.States)
	}
}

func TestSimMPDeterministicBySeed(t *testing.T) {
	lab := newTestLab(t)

	run := func() float64 {
		sim, err := lab.NewSimulatorWithSeed(7001, 1234)
		if err != nil {
			t.Fatalf("new simulator: %v", err)
		}
		st, _, err := sim.SimMP(spec.ModeBackward, 0.8, 500, 3, false)
		if err != nil {
			t.Fatalf("simmp: %v", err)
		}
		return st.Summary.TotalWeight
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("same seed produced different totals: %v vs %v", a, b)
	}
}

func TestSimRuns(t *testing.T) {
	lab := newTestLab(t)

	sim, err := lab.NewSimulatorWithSeed(7001, 31)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	st, est, used, err := sim.SimRuns(2, 8, 250, spec.ModeForward, sim.Alpha(), false)
	if err != nil {
		t.Fatalf("simruns: %v", err)
	}
	if used <= 0 {
		t.Fatalf("expected positive duration")
	}
	if st.Summary.States != 8*250 {
		t.Fatalf("expected merged states 2000, got %d", st.Summary.States)
	}
	if est == nil {
		t.Fatalf("expected batch estimator")
	}
}

func TestRuntimeSampleAndClose(t *testing.T) {
	lab := newTestLab(t)

	rt, err := lab.BuildRuntime(1)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}

	req := &dto.SampleRequest{
		UID:       "t-1",
		SceneName: "test_room",
		SceneId:   7001,
		Mode:      spec.ModeForward,
		Count:     16,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := rt.Sample(ctx, req)
	if err != nil {
		t.Fatalf("runtime sample: %v", err)
	}
	if res.Count != 16 || len(res.States) != 16 {
		t.Fatalf("unexpected result size: count=%d states=%d", res.Count, len(res.States))
	}
	if res.State.StartCoreSnapB64U == "" || res.State.AfterCoreSnapB64U == "" {
		t.Fatalf("expected snapshots in result state")
	}

	// 未知場景
	bad := &dto.SampleRequest{SceneId: 9999, Mode: spec.ModeForward, Count: 1}
	if _, err := rt.Sample(ctx, bad); err == nil {
		t.Fatalf("expected unknown scene error")
	}

	rt.Close()
	if !rt.Closed() {
		t.Fatalf("runtime should be closed")
	}
	if _, err := rt.Sample(ctx, req); err == nil {
		t.Fatalf("expected closed runtime error")
	}
}

func TestDevSamplerSeedReplay(t *testing.T) {
	lab := newTestLab(t)

	d, err := lab.NewDevSampler(7001, 555)
	if err != nil {
		t.Fatalf("new dev sampler: %v", err)
	}
	rep, err := d.Samples(spec.ModeBackward, 10, 3)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if rep.Round != 3 || len(rep.Results) != 3 {
		t.Fatalf("expected 3 rounds, got %d/%d", rep.Round, len(rep.Results))
	}
	if rep.Before == "" || rep.After == "" {
		t.Fatalf("expected before/after snapshots")
	}

	// 用 before 快照回放，結果必須 bit 級一致
	replay, err := d.RestoreSamples(rep.Before, spec.ModeBackward, 10, 3)
	if err != nil {
		t.Fatalf("restore samples: %v", err)
	}
	if replay.After != rep.After {
		t.Fatalf("replay after-snapshot mismatch")
	}
	for i := range rep.Results {
		for j := range rep.Results[i].States {
			if rep.Results[i].States[j] != replay.Results[i].States[j] {
				t.Fatalf("replay diverged at round %d state %d", i, j)
			}
		}
	}
}
