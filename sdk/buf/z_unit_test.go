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

package buf

import (
	"testing"

	"github.com/zintix-labs/gammalab/spec"
)

func TestSampleResultResizeReuses(t *testing.T) {
	sr := NewSampleResult("demo", spec.SID(7))
	if sr.SceneName != "demo" || sr.SceneId != 7 {
		t.Fatalf("unexpected sample result metadata: %+v", sr)
	}

	sr.Resize(100, true)
	if len(sr.States) != 100 || len(sr.SourceEnergies) != 100 {
		t.Fatalf("resize failed: states %d energies %d", len(sr.States), len(sr.SourceEnergies))
	}
	base := &sr.States[0]

	// Shrinking must keep the backing array.
	sr.Resize(10, true)
	if len(sr.States) != 10 {
		t.Fatalf("shrink failed: %d", len(sr.States))
	}
	if &sr.States[0] != base {
		t.Fatalf("shrink reallocated the states buffer")
	}

	// Forward mode keeps no per-state source energies.
	sr.Resize(10, false)
	if len(sr.SourceEnergies) != 0 {
		t.Fatalf("forward resize kept %d source energies", len(sr.SourceEnergies))
	}
}

func TestSampleResultReset(t *testing.T) {
	sr := NewSampleResult("demo", spec.SID(1))
	sr.Mode = spec.ModeBackward
	sr.Alpha = 0.5
	sr.Resize(4, true)
	sr.State.StartCoreSnap = []byte{1}
	sr.State.AfterCoreSnap = []byte{2}

	sr.Reset()
	if sr.Mode != "" || sr.Alpha != 0 || len(sr.States) != 0 || len(sr.SourceEnergies) != 0 {
		t.Fatalf("sample result not reset: %+v", sr)
	}
	if sr.State.StartCoreSnap != nil || sr.State.AfterCoreSnap != nil {
		t.Fatalf("snapshots not cleared")
	}
}
