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

package sampler

import (
	"math"
	"testing"

	"github.com/zintix-labs/gammalab/sdk/core"
)

func TestBuildCumTable(t *testing.T) {
	tbl, err := BuildCumTable([]float64{7.3, 18.4, 35.6})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("unexpected len %d", tbl.Len())
	}
	want := []float64{7.3, 25.7, 61.3}
	for i, w := range want {
		if math.Abs(tbl.Cumulative(i)-w) > 1e-12 {
			t.Fatalf("cum[%d] = %v, want %v", i, tbl.Cumulative(i), w)
		}
	}
	if math.Abs(tbl.Total()-61.3) > 1e-12 {
		t.Fatalf("total = %v", tbl.Total())
	}
}

func TestBuildCumTableRejects(t *testing.T) {
	if _, err := BuildCumTable([]float64{}); err == nil {
		t.Fatalf("expected error for empty weights")
	}
	if _, err := BuildCumTable([]float64{1, -1}); err == nil {
		t.Fatalf("expected error for negative weight")
	}
	if _, err := BuildCumTable([]float64{0, 0}); err == nil {
		t.Fatalf("expected error for all-zero weights")
	}
}

func TestPickDeterminism(t *testing.T) {
	tbl, _ := BuildCumTable([]int{1, 2, 3, 4})
	c1 := core.New(core.Default().New(17))
	c2 := core.New(core.Default().New(17))
	for i := 0; i < 100; i++ {
		if tbl.PickExclusive(c1) != tbl.PickExclusive(c2) {
			t.Fatalf("pick diverged at %d", i)
		}
	}
}

func TestPickFrequencies(t *testing.T) {
	// 權重 1:2:3:4，10 萬次抽樣後的頻率應落在宣告比例附近。
	weights := []int{1, 2, 3, 4}
	tbl, _ := BuildCumTable(weights)
	c := core.New(core.Default().New(99))

	const n = 100000
	counts := make([]int, len(weights))
	for i := 0; i < n; i++ {
		counts[tbl.PickExclusive(c)]++
	}
	total := 10.0
	for i, w := range weights {
		want := float64(w) / total
		got := float64(counts[i]) / n
		// 3 個標準差容忍
		tol := 3 * math.Sqrt(want*(1-want)/n)
		if math.Abs(got-want) > tol {
			t.Fatalf("index %d: freq %v, want %v +- %v", i, got, want, tol)
		}
	}
}

func TestPickInclusiveCoversAllEntries(t *testing.T) {
	tbl, _ := BuildCumTable([]float64{1, 1, 1, 1, 1, 1})
	c := core.New(core.Default().New(5))
	seen := map[int]bool{}
	for i := 0; i < 10000; i++ {
		idx := tbl.PickInclusive(c)
		if idx < 0 || idx >= tbl.Len() {
			t.Fatalf("index out of range: %d", idx)
		}
		seen[idx] = true
	}
	if len(seen) != tbl.Len() {
		t.Fatalf("not all entries sampled: %v", seen)
	}
}
