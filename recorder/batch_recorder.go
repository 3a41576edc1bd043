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

package recorder

import (
	"fmt"
	"math"

	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/sdk/source"
	"github.com/zintix-labs/gammalab/spec"
	"github.com/zintix-labs/gammalab/stats"
)

// BatchRecorder 取樣紀錄員
//
// BatchRecorder 負責紀錄批次取樣結果，並透過Done輸出統計報表
type BatchRecorder struct {
	SceneName string
	SceneId   spec.SID
	Mode      spec.ModeKey
	Alpha     float64
	Basic     *BasicRecord
	Dist      *DistRecord
	Line      *LineRecord
	Face      *FaceRecord
}

// BasicRecord 基本取樣資料紀錄
type BasicRecord struct {
	States      int
	WeightSum   float64
	WeightSqSum float64 // 平方和
	MinEnergy   float64
	MaxEnergy   float64
	Continuum   int // backward 連續譜分支數（能量不落在任何宣告譜線上）
}

// DistRecord 能量區間落點統計
type DistRecord struct {
	StateCollect  []int
	WeightCollect []float64
}

// LineRecord 發射譜線落點統計
//
// 以能量精確比對宣告譜線；比不上的狀態視為連續譜分支
type LineRecord struct {
	Energies []float64
	Expected []float64
	Observed []int

	lineIdx map[float64]int
}

// FaceRecord 偵測器面落點統計（backward 模式才會建立）
//
// 面的固定順序為 [-x,+x,-y,+y,-z,+z]，由狀態位置反推所屬面
type FaceRecord struct {
	Labels   []string
	Expected []float64
	Observed []int

	center [3]float64
	half   [3]float64
}

var faceLabels = []string{"-x", "+x", "-y", "+y", "-z", "+z"}

func NewBatchRecorder(name string, id spec.SID, mode spec.ModeKey, alpha float64, sc *source.Scene, sp *source.Spectrum) (*BatchRecorder, error) {
	s := new(BatchRecorder)

	if !mode.Known() {
		return s, errs.NewFatal(fmt.Sprintf("mode err %s", mode))
	}
	if sc == nil || sp == nil {
		return s, errs.NewFatal("scene and spectrum are required")
	}
	if mode == spec.ModeBackward && !(alpha >= 0 && alpha <= 1) {
		return s, errs.NewFatal(fmt.Sprintf("alpha err %g", alpha))
	}
	// 通過valid
	s.SceneName = name
	s.SceneId = id
	s.Mode = mode
	s.Alpha = alpha
	s.Basic = newBasicRecord()
	s.Dist = newDistRecord()
	s.Line = newLineRecord(sp)
	if mode == spec.ModeBackward {
		s.Face = newFaceRecord(sc)
	}

	return s, nil
}

func MergeBatchRecorder(r []*BatchRecorder) (*BatchRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge batch record err : empty input")
	}
	r0 := r[0]
	s := new(BatchRecorder)
	s.SceneName = r0.SceneName
	s.SceneId = r0.SceneId
	s.Mode = r0.Mode
	s.Alpha = r0.Alpha
	s.Basic = newBasicRecord()
	s.Dist = newDistRecord()
	s.Line = r0.Line.emptyClone()
	if r0.Face != nil {
		s.Face = r0.Face.emptyClone()
	}

	for _, v := range r {
		if v.SceneName != r0.SceneName {
			return s, errs.NewFatal("merge batch record err : different scene name")
		}
		if v.Mode != r0.Mode {
			return s, errs.NewFatal("merge batch record err : different mode")
		}
		if v.Alpha != r0.Alpha {
			return s, errs.NewFatal("merge batch record err : different alpha")
		}
		s.Basic.States += v.Basic.States
		s.Basic.WeightSum += v.Basic.WeightSum
		s.Basic.WeightSqSum += v.Basic.WeightSqSum
		s.Basic.Continuum += v.Basic.Continuum
		if v.Basic.MinEnergy < s.Basic.MinEnergy {
			s.Basic.MinEnergy = v.Basic.MinEnergy
		}
		if v.Basic.MaxEnergy > s.Basic.MaxEnergy {
			s.Basic.MaxEnergy = v.Basic.MaxEnergy
		}

		// 整合Dist
		for i := range v.Dist.StateCollect {
			s.Dist.StateCollect[i] += v.Dist.StateCollect[i]
			s.Dist.WeightCollect[i] += v.Dist.WeightCollect[i]
		}
		// 整合Line
		for i := range v.Line.Observed {
			s.Line.Observed[i] += v.Line.Observed[i]
		}
		// 整合Face
		if s.Face != nil && v.Face != nil {
			for i := range v.Face.Observed {
				s.Face.Observed[i] += v.Face.Observed[i]
			}
		}
	}
	return s, nil
}

// Record 以一段已初始化的狀態切片更新統計
func (s *BatchRecorder) Record(states []source.ParticleState) {
	for i := range states {
		st := &states[i]
		s.recordBasic(st)
		s.recordDist(st)
		s.recordLine(st)
		if s.Face != nil {
			s.recordFace(st)
		}
	}
}

func (s *BatchRecorder) Done() *stats.SampleReport {
	minE, maxE := s.Basic.MinEnergy, s.Basic.MaxEnergy
	if s.Basic.States == 0 {
		minE, maxE = 0, 0
	}

	report := &stats.SampleReport{
		Summary: &stats.SummaryReport{
			SceneName: s.SceneName,
			SceneId:   s.SceneId,
			Mode:      s.Mode,
			Alpha:     s.Alpha,
			States:    s.Basic.States,
			MinEnergy: minE,
			MaxEnergy: maxE,
			Continuum: s.Basic.Continuum,
		},
		Weight: &stats.WeightReport{
			WeightSum:   s.Basic.WeightSum,
			WeightSqSum: s.Basic.WeightSqSum,
		},
		Dist: &stats.DistReport{
			EnergyBucket:  stats.Buckets.Labels(),
			StateCollect:  s.Dist.StateCollect,
			WeightCollect: s.Dist.WeightCollect,
			StateDist:     nil,
			WeightDist:    nil,
		},
		Line: &stats.LineReport{
			Energies: s.Line.Energies,
			Expected: s.Line.Expected,
			Observed: s.Line.Observed,
		},
	}
	if s.Face != nil {
		report.Face = &stats.FaceReport{
			Labels:   s.Face.Labels,
			Expected: s.Face.Expected,
			Observed: s.Face.Observed,
		}
	}

	length := len(report.Dist.EnergyBucket)

	stateF := make([]float64, length)
	weightF := make([]float64, length)
	if s.Basic.States > 0 {
		nf := float64(s.Basic.States)
		wf := s.Basic.WeightSum
		for i := range length {
			stateF[i] = float64(report.Dist.StateCollect[i]) / nf
			if wf > 0 {
				weightF[i] = report.Dist.WeightCollect[i] / wf
			}
		}
	}

	report.Dist.StateDist = stateF
	report.Dist.WeightDist = weightF

	return report
}

func (s *BatchRecorder) recordBasic(st *source.ParticleState) {
	w := st.Weight

	s.Basic.WeightSum += w
	s.Basic.WeightSqSum += w * w
	if st.Energy < s.Basic.MinEnergy {
		s.Basic.MinEnergy = st.Energy
	}
	if st.Energy > s.Basic.MaxEnergy {
		s.Basic.MaxEnergy = st.Energy
	}
	s.Basic.States++
}

func (s *BatchRecorder) recordDist(st *source.ParticleState) {
	d := s.Dist
	idx := stats.Buckets.Index(st.Energy)
	d.StateCollect[idx]++
	d.WeightCollect[idx] += st.Weight
}

func (s *BatchRecorder) recordLine(st *source.ParticleState) {
	if idx, ok := s.Line.lineIdx[st.Energy]; ok {
		s.Line.Observed[idx]++
		return
	}
	s.Basic.Continuum++
}

func (s *BatchRecorder) recordFace(st *source.ParticleState) {
	f := s.Face
	// 面點沿外法線外推了 SurfaceEps，恰有一軸落在半寬之外
	for ax := 0; ax < 3; ax++ {
		v := st.Position.Axis(ax) - f.center[ax]
		if v > f.half[ax] {
			f.Observed[ax*2+1]++
			return
		}
		if v < -f.half[ax] {
			f.Observed[ax*2]++
			return
		}
	}
}

func newBasicRecord() *BasicRecord {
	b := new(BasicRecord)
	b.MinEnergy = math.Inf(1)
	b.MaxEnergy = math.Inf(-1)
	return b
}

func newDistRecord() *DistRecord {
	d := new(DistRecord)
	d.StateCollect = make([]int, stats.Buckets.Len())
	d.WeightCollect = make([]float64, stats.Buckets.Len())
	return d
}

func newLineRecord(sp *source.Spectrum) *LineRecord {
	lines := sp.Lines()
	l := &LineRecord{
		Energies: make([]float64, len(lines)),
		Expected: make([]float64, len(lines)),
		Observed: make([]int, len(lines)),
		lineIdx:  make(map[float64]int, len(lines)),
	}
	total := sp.Total()
	for i, ln := range lines {
		l.Energies[i] = ln.Energy
		l.Expected[i] = ln.Intensity / total
		l.lineIdx[ln.Energy] = i
	}
	return l
}

// NewLineRecord 以宣告譜線（能量/強度）直接建立譜線統計。
// 供外部彙整資料（例如 /v1/stat）繞過 NewBatchRecorder 時使用。
func NewLineRecord(energies, intensities []float64) *LineRecord {
	n := min(len(energies), len(intensities))
	l := &LineRecord{
		Energies: make([]float64, n),
		Expected: make([]float64, n),
		Observed: make([]int, n),
		lineIdx:  make(map[float64]int, n),
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += intensities[i]
	}
	for i := 0; i < n; i++ {
		l.Energies[i] = energies[i]
		if total > 0 {
			l.Expected[i] = intensities[i] / total
		}
		l.lineIdx[energies[i]] = i
	}
	return l
}

func (l *LineRecord) emptyClone() *LineRecord {
	return &LineRecord{
		Energies: l.Energies,
		Expected: l.Expected,
		Observed: make([]int, len(l.Observed)),
		lineIdx:  l.lineIdx,
	}
}

func newFaceRecord(sc *source.Scene) *FaceRecord {
	d := sc.Detector
	areas := d.FaceAreas()
	total := d.SurfaceArea()

	f := &FaceRecord{
		Labels:   faceLabels,
		Expected: make([]float64, len(areas)),
		Observed: make([]int, len(areas)),
		center:   [3]float64{d.Center.X, d.Center.Y, d.Center.Z},
		half:     [3]float64{d.HalfX, d.HalfY, d.HalfZ},
	}
	for i, a := range areas {
		f.Expected[i] = a / total
	}
	return f
}

func (f *FaceRecord) emptyClone() *FaceRecord {
	return &FaceRecord{
		Labels:   f.Labels,
		Expected: f.Expected,
		Observed: make([]int, len(f.Observed)),
		center:   f.center,
		half:     f.half,
	}
}
