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

package stats_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/gammalab/spec"
	"github.com/zintix-labs/gammalab/stats"
)

// buildSampleReport constructs a SampleReport from per-state weights and
// energies, as a batch recorder would after a forward run.
func buildSampleReport(weights, energies []float64) *stats.SampleReport {
	L := stats.Buckets.Len()
	collect := make([]int, L)
	wCollect := make([]float64, L)

	var wSum, wSqSum float64
	minE, maxE := math.Inf(1), math.Inf(-1)
	for i, w := range weights {
		e := energies[i]
		wSum += w
		wSqSum += w * w
		if e < minE {
			minE = e
		}
		if e > maxE {
			maxE = e
		}
		idx := stats.Buckets.Index(e)
		collect[idx]++
		wCollect[idx] += w
	}

	report := &stats.SampleReport{
		Summary: &stats.SummaryReport{
			SceneName: "TestScene",
			SceneId:   spec.SID(0),
			Mode:      spec.ModeForward,
			States:    len(weights),
			MinEnergy: minE,
			MaxEnergy: maxE,
		},
		Weight: &stats.WeightReport{
			WeightSum:   wSum,
			WeightSqSum: wSqSum,
		},
		Dist: &stats.DistReport{
			EnergyBucket:  stats.Buckets.Labels(),
			StateCollect:  collect,
			WeightCollect: wCollect,
		},
	}
	report.Done()
	return report
}

func TestSampleReportCoreMetrics(t *testing.T) {
	rep := buildSampleReport([]float64{1.0, 3.0}, []float64{0.609, 1.764})

	wantMean := 2.0
	if got := rep.Mean(); math.Abs(got-wantMean) > 1e-12 {
		t.Fatalf("Mean got %.12f want %.12f", got, wantMean)
	}

	// sample variance of {1,3} is 2
	wantStd := math.Sqrt(2.0)
	if got := rep.Std(); math.Abs(got-wantStd) > 1e-12 {
		t.Fatalf("Std got %.12f want %.12f", got, wantStd)
	}

	wantCV := wantStd / wantMean
	if got := rep.Cv(); math.Abs(got-wantCV) > 1e-12 {
		t.Fatalf("CV got %.12f want %.12f", got, wantCV)
	}

	ci := rep.Ci()
	if ci.Lo > wantMean || ci.Hi < wantMean {
		t.Fatalf("CI [%.4f,%.4f] does not cover mean %.4f", ci.Lo, ci.Hi, wantMean)
	}

	// Distribution lengths and sums
	if len(rep.Dist.StateCollect) != len(rep.Dist.EnergyBucket) {
		t.Fatalf("energy buckets length mismatch")
	}
	totalStates := 0
	for _, c := range rep.Dist.StateCollect {
		totalStates += c
	}
	if totalStates != rep.Summary.States {
		t.Fatalf("distribution total %d != states %d", totalStates, rep.Summary.States)
	}

	rep.Done() // idempotent
	if rep.Mean() != wantMean {
		t.Fatalf("Mean changed after second Done")
	}
}

func TestEnergyBucketIndex(t *testing.T) {
	cases := []struct {
		e    float64
		want int
	}{
		{0.0, 0},
		{0.0099, 0},
		{0.01, 1},
		{0.05, 1},
		{0.1, 2},
		{0.242, 3},
		{0.609, 5},
		{0.75, 6},
		{2.204, 9},
		{2.9999, 10},
		{3.0, 11},
		{10.0, 11},
	}
	for _, c := range cases {
		if got := stats.Buckets.Index(c.e); got != c.want {
			t.Fatalf("Index(%g) got %d want %d", c.e, got, c.want)
		}
	}
	if stats.Buckets.Len() != len(stats.Buckets.Labels()) {
		t.Fatalf("labels length mismatch")
	}
}

func TestChiSquareGoF(t *testing.T) {
	// Exactly proportional counts give chi2 == 0, p == 1.
	chi2, p, dof := stats.ChiSquareGoF([]int{10, 20, 70}, []float64{0.1, 0.2, 0.7})
	if chi2 != 0 {
		t.Fatalf("exact fit chi2 got %g want 0", chi2)
	}
	if dof != 2 {
		t.Fatalf("dof got %d want 2", dof)
	}
	if math.Abs(p-1.0) > 1e-9 {
		t.Fatalf("exact fit p got %g want 1", p)
	}

	// A gross mismatch must be rejected at any sensible level.
	_, pBad, _ := stats.ChiSquareGoF([]int{1000, 0, 0}, []float64{1, 1, 1})
	if pBad > 1e-6 {
		t.Fatalf("gross mismatch p got %g, expected ~0", pBad)
	}

	// Degenerate inputs report a clean non-result.
	if c, pv, d := stats.ChiSquareGoF(nil, nil); c != 0 || pv != 1 || d != 0 {
		t.Fatalf("empty input got (%g,%g,%d)", c, pv, d)
	}
}

func TestEstimatorBatchSpread(t *testing.T) {
	// Build 100 reports with mean weight from 0.00 to 0.99
	reports := make([]*stats.SampleReport, 0, 100)
	for i := 0; i < 100; i++ {
		w := float64(i) / 100.0
		reports = append(reports, buildSampleReport([]float64{w}, []float64{0.609}))
	}

	est := stats.EstimatorBatchExp(reports)
	if math.Abs(est.WeightStat.ExpMedian.Hat-0.5) > 0.05 {
		t.Fatalf("median mean weight expected ~0.5, got %.3f", est.WeightStat.ExpMedian.Hat)
	}
	if math.Abs(est.WeightStat.ExpPerc.ExpP90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 mean weight expected ~0.9, got %.3f", est.WeightStat.ExpPerc.ExpP90.Hat)
	}
}

func TestEstimatorAggregatesLines(t *testing.T) {
	mk := func(observed []int) *stats.SampleReport {
		r := buildSampleReport([]float64{1}, []float64{0.609})
		r.Line = &stats.LineReport{
			Energies: []float64{0.609, 1.764},
			Expected: []float64{0.75, 0.25},
			Observed: observed,
		}
		return r
	}
	est := stats.EstimatorBatchExp([]*stats.SampleReport{
		mk([]int{70, 30}),
		mk([]int{80, 20}),
	})
	if len(est.LineStat.Rate) != 2 {
		t.Fatalf("line stat length got %d want 2", len(est.LineStat.Rate))
	}
	if got := est.LineStat.Rate[0].Hat; math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("aggregated line rate got %.4f want 0.75", got)
	}
	if est.LineStat.Rate[0].CI.Lo >= est.LineStat.Rate[0].CI.Hi {
		t.Fatalf("degenerate CI %+v", est.LineStat.Rate[0].CI)
	}
}
