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
	"testing"

	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/core"
)

func newCore(seed int64) *core.Core {
	return core.New(core.Default().New(seed))
}

func TestSceneRejectsDegenerateGeometry(t *testing.T) {
	world := Box{HalfX: 100, HalfY: 100, HalfZ: 100}

	// 偵測器沒有嚴格包含於世界盒
	_, err := NewScene(world, Box{HalfX: 100, HalfY: 10, HalfZ: 10})
	if err == nil {
		t.Fatalf("expected containment error")
	}
	// 偏移把偵測器推出界
	_, err = NewScene(world, Box{HalfX: 10, HalfY: 10, HalfZ: 10, Center: Vec3{Z: 95}})
	if err == nil {
		t.Fatalf("expected containment error for offset detector")
	}
	// 非正半長
	_, err = NewScene(world, Box{HalfX: 0, HalfY: 10, HalfZ: 10})
	if err == nil {
		t.Fatalf("expected error for zero extent")
	}
}

func TestSpectrumSampleEdges(t *testing.T) {
	sp := RadonProgeny()
	if sp.Len() != 11 {
		t.Fatalf("expected 11 lines, got %d", sp.Len())
	}
	if math.Abs(sp.Total()-159.7) > 1e-9 {
		t.Fatalf("unexpected intensity total %v", sp.Total())
	}
	c := newCore(1)
	lines := sp.Lines()
	valid := map[float64]bool{}
	for _, l := range lines {
		valid[l.Energy] = true
	}
	for i := 0; i < 10000; i++ {
		e := sp.Sample(c)
		if !valid[e] {
			t.Fatalf("sampled energy %v not a declared line", e)
		}
	}
}

func TestSpectrumFrequencies(t *testing.T) {
	sp := RadonProgeny()
	c := newCore(20250830)

	const n = 100000
	counts := make([]int, sp.Len())
	for i := 0; i < n; i++ {
		counts[sp.SampleIndex(c)]++
	}
	lines := sp.Lines()
	for i, l := range lines {
		want := l.Intensity / sp.Total()
		got := float64(counts[i]) / n
		tol := 4 * math.Sqrt(want*(1-want)/n)
		if math.Abs(got-want) > tol {
			t.Fatalf("line %d (%.3f MeV): freq %v, want %v +- %v", i, l.Energy, got, want, tol)
		}
	}
}

func TestForwardPositionExcludesDetector(t *testing.T) {
	sc := CollectorScene()
	c := newCore(7)
	for i := 0; i < 10000; i++ {
		p, err := SamplePositionForward(c, sc)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if sc.Detector.Contains(p) {
			t.Fatalf("draw %d: position %+v inside detector", i, p)
		}
		if !sc.World.Contains(p) {
			t.Fatalf("draw %d: position %+v outside world", i, p)
		}
		if p.Z < 0 {
			t.Fatalf("draw %d: position below ground: %+v", i, p)
		}
	}
}

// 基準情境：世界半長 1000 m、偵測器半寬 10 m、半高 5 m、離地 5 cm。
// 重複 1000 次 forward 抽樣，位置不可落入偵測器的 z 區間（當 x/y 也在其內時）。
func TestForwardScenarioDetectorSlab(t *testing.T) {
	sc, err := NewScene(
		Box{HalfX: 1e5, HalfY: 1e5, HalfZ: 1e5},
		Box{HalfX: 1e3, HalfY: 1e3, HalfZ: 5e2, Center: Vec3{Z: 5e2 + 5.0}},
	)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	c := newCore(11)
	for i := 0; i < 1000; i++ {
		p, err := SamplePositionForward(c, sc)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		inSlab := p.Z >= 5.0 && p.Z <= 5.0+1e3
		if inSlab && math.Abs(p.X) <= 1e3 && math.Abs(p.Y) <= 1e3 {
			t.Fatalf("draw %d: position %+v inside detector slab", i, p)
		}
	}
}

func TestPositionSamplerBoundedRetries(t *testing.T) {
	// 繞過 NewScene 的驗證，手工構造退化幾何：偵測器覆蓋整個取樣域。
	sc := CollectorScene()
	broken := *sc
	broken.Detector = Box{HalfX: 2e5, HalfY: 2e5, HalfZ: 2e5}
	broken.MaxPositionAttempts = 50

	c := newCore(3)
	_, err := SamplePositionForward(c, &broken)
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if e, ok := errs.AsErr(err); !ok || e.ErrLv != errs.Fatal {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestDirectionNorms(t *testing.T) {
	c := newCore(13)
	for i := 0; i < 10000; i++ {
		d := SampleIsotropic(c)
		if math.Abs(d.Norm()-1) > 1e-9 {
			t.Fatalf("isotropic norm drift: %v", d.Norm())
		}
	}
	faces := []Face{{0, -1}, {0, 1}, {1, -1}, {1, 1}, {2, -1}, {2, 1}}
	for i := 0; i < 10000; i++ {
		f := faces[i%len(faces)]
		d := SampleCosineInward(c, f)
		if math.Abs(d.Norm()-1) > 1e-9 {
			t.Fatalf("cosine norm drift: %v", d.Norm())
		}
		// 方向必須朝內：法線分量與外法線同號即為錯。
		if f.Sign*d.Axis(f.Axis) > 0 {
			t.Fatalf("direction %+v points outward through face %+v", d, f)
		}
	}
}

func TestFaceFrequenciesMatchAreas(t *testing.T) {
	sc := CollectorScene()
	c := newCore(17)

	const n = 100000
	counts := [6]int{}
	for i := 0; i < n; i++ {
		counts[sc.SampleFace(c).FaceIndex()]++
	}
	areas := sc.Detector.FaceAreas()
	total := sc.Detector.SurfaceArea()
	for i, a := range areas {
		want := a / total
		got := float64(counts[i]) / n
		tol := 4 * math.Sqrt(want*(1-want)/n)
		if math.Abs(got-want) > tol {
			t.Fatalf("face %d: freq %v, want %v +- %v", i, got, want, tol)
		}
	}
}

func TestPointOnFaceLiesJustOutside(t *testing.T) {
	sc := CollectorScene()
	c := newCore(19)
	for i := 0; i < 1000; i++ {
		f := sc.SampleFace(c)
		p := sc.SamplePointOnFace(c, f)

		d := sc.Detector
		half := [3]float64{d.HalfX, d.HalfY, d.HalfZ}
		wantAxis := d.Center.Axis(f.Axis) + f.Sign*(half[f.Axis]+sc.SurfaceEps)
		if p.Axis(f.Axis) != wantAxis {
			t.Fatalf("face coordinate %v, want %v", p.Axis(f.Axis), wantAxis)
		}
		if d.Contains(p) {
			t.Fatalf("face point %+v inside detector", p)
		}
		for ax := 0; ax < 3; ax++ {
			if ax == f.Axis {
				continue
			}
			if math.Abs(p.Axis(ax)-d.Center.Axis(ax)) > half[ax] {
				t.Fatalf("tangential coordinate out of face extent: %+v", p)
			}
		}
	}
}

func TestBackwardEnergyPhotoPeakOnly(t *testing.T) {
	sp := RadonProgeny()
	c := newCore(23)
	for i := 0; i < 10000; i++ {
		e0, e, w, err := BackwardEnergy(c, sp, 1.0, DefaultMaxEnergyAttempts)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if e != e0 {
			t.Fatalf("draw %d: photo-peak energy %v != source %v", i, e, e0)
		}
		if w != 1.0 {
			t.Fatalf("draw %d: photo-peak weight %v != 1", i, w)
		}
	}
}

func TestBackwardEnergyBackgroundOnly(t *testing.T) {
	sp := RadonProgeny()
	c := newCore(29)
	for i := 0; i < 10000; i++ {
		e0, e, w, err := BackwardEnergy(c, sp, 0.0, DefaultMaxEnergyAttempts)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if e >= e0 {
			t.Fatalf("draw %d: background energy %v >= source %v", i, e, e0)
		}
		if e < EnergyMin {
			t.Fatalf("draw %d: background energy %v below floor", i, e)
		}
		want := e * math.Log(e0/EnergyMin)
		if math.Abs(w-want) > 1e-12*want {
			t.Fatalf("draw %d: weight %v, want %v", i, w, want)
		}
	}
}

func TestInitialiseForwardBatch(t *testing.T) {
	sc := CollectorScene()
	sp := RadonProgeny()
	c := newCore(31)

	states := make([]ParticleState, 5000)
	if err := InitialiseForward(c, sc, sp, states); err != nil {
		t.Fatalf("forward batch: %v", err)
	}
	for i, st := range states {
		if st.Energy <= 0 {
			t.Fatalf("state %d: non-positive energy", i)
		}
		if st.Weight != 1.0 {
			t.Fatalf("state %d: forward weight %v != 1", i, st.Weight)
		}
		if sc.Detector.Contains(st.Position) {
			t.Fatalf("state %d: position inside detector", i)
		}
		if math.Abs(st.Direction.Norm()-1) > 1e-9 {
			t.Fatalf("state %d: direction norm %v", i, st.Direction.Norm())
		}
	}
}

func TestInitialiseBackwardBatch(t *testing.T) {
	sc := CollectorScene()
	sp := RadonProgeny()
	c := newCore(37)

	const n = 5000
	states := make([]ParticleState, n)
	srcE := make([]float64, n)
	if err := InitialiseBackward(c, sc, sp, 0.5, states, srcE); err != nil {
		t.Fatalf("backward batch: %v", err)
	}
	geom := sc.Detector.SurfaceArea() * math.Pi
	for i, st := range states {
		if st.Energy <= 0 || st.Energy > srcE[i] {
			t.Fatalf("state %d: energy %v vs source %v", i, st.Energy, srcE[i])
		}
		if st.Weight <= 0 {
			t.Fatalf("state %d: non-positive weight", i)
		}
		if st.Energy == srcE[i] && st.Weight != 2.0*geom {
			// photo-peak: 混合權重 1/alpha = 2，疊乘幾何因子
			t.Fatalf("state %d: photo-peak weight %v, want %v", i, st.Weight, 2.0*geom)
		}
		if sc.Detector.Contains(st.Position) {
			t.Fatalf("state %d: surface point inside detector", i)
		}
		if math.Abs(st.Direction.Norm()-1) > 1e-9 {
			t.Fatalf("state %d: direction norm %v", i, st.Direction.Norm())
		}
	}
}

func TestBackwardBatchPhotoPeakWeightIncludesGeometry(t *testing.T) {
	sc := CollectorScene()
	sp := RadonProgeny()
	c := newCore(41)

	states := make([]ParticleState, 100)
	srcE := make([]float64, 100)
	if err := InitialiseBackward(c, sc, sp, 1.0, states, srcE); err != nil {
		t.Fatalf("backward batch: %v", err)
	}
	want := sc.Detector.SurfaceArea() * math.Pi
	for i, st := range states {
		if st.Energy != srcE[i] {
			t.Fatalf("state %d: alpha=1 energy %v != source %v", i, st.Energy, srcE[i])
		}
		if st.Weight != want {
			t.Fatalf("state %d: weight %v, want %v", i, st.Weight, want)
		}
	}
}

func TestBatchDeterminism(t *testing.T) {
	sc := CollectorScene()
	sp := RadonProgeny()

	run := func(seed int64) ([]ParticleState, []float64) {
		c := newCore(seed)
		states := make([]ParticleState, 1000)
		srcE := make([]float64, 1000)
		if err := InitialiseForward(c, sc, sp, states[:500]); err != nil {
			t.Fatalf("forward: %v", err)
		}
		if err := InitialiseBackward(c, sc, sp, 0.3, states[500:], srcE[500:]); err != nil {
			t.Fatalf("backward: %v", err)
		}
		return states, srcE
	}

	s1, e1 := run(123)
	s2, e2 := run(123)
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("state %d not bit-identical: %+v vs %+v", i, s1[i], s2[i])
		}
		if e1[i] != e2[i] {
			t.Fatalf("source energy %d not bit-identical", i)
		}
	}
}

func TestBatchBoundary(t *testing.T) {
	sc := CollectorScene()
	sp := RadonProgeny()
	c := newCore(43)

	// n = 0：不寫入、不報錯
	if err := InitialiseForward(c, sc, sp, nil); err != nil {
		t.Fatalf("empty forward: %v", err)
	}
	if err := InitialiseBackward(c, sc, sp, 0.5, nil, nil); err != nil {
		t.Fatalf("empty backward: %v", err)
	}

	// alpha 合約違反
	states := make([]ParticleState, 1)
	srcE := make([]float64, 1)
	for _, alpha := range []float64{-0.1, 1.1, math.NaN()} {
		err := InitialiseBackward(c, sc, sp, alpha, states, srcE)
		if err == nil {
			t.Fatalf("alpha %v: expected error", alpha)
		}
		if e, ok := errs.AsErr(err); !ok || e.ErrLv != errs.Warn {
			t.Fatalf("alpha %v: expected warn error, got %v", alpha, err)
		}
	}

	// 緩衝區長度不一致
	if err := InitialiseBackward(c, sc, sp, 0.5, states, nil); err == nil {
		t.Fatalf("expected buffer length error")
	}
}
