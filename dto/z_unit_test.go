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

package dto

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/gammalab/corefmt"
	"github.com/zintix-labs/gammalab/sdk/buf"
	"github.com/zintix-labs/gammalab/sdk/source"
	"github.com/zintix-labs/gammalab/spec"
)

func TestDecodeSampleRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/sample?uid=u1&scene=collector&sid=7&mode=forward&count=100", nil)
	req, err := DecodeSampleRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.UID != "u1" || req.SceneName != "collector" || req.SceneId != 7 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Mode != spec.ModeForward || req.Count != 100 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeSampleRequestPOST(t *testing.T) {
	payload := map[string]any{
		"uid":       "u2",
		"scene":     "collector",
		"sid":       9,
		"mode":      "backward",
		"count":     50,
		"alpha":     0.5,
		"has_alpha": true,
	}
	data, _ := json.Marshal(payload)
	r := httptest.NewRequest(http.MethodPost, "/sample", bytes.NewReader(data))
	req, err := DecodeSampleRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SceneId != 9 || req.Count != 50 || req.Mode != spec.ModeBackward {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !req.HasAlpha || req.Alpha != 0.5 {
		t.Fatalf("unexpected alpha: %+v", req)
	}
}

func TestDecodeSampleRequestRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"sid":1,"scene":"collector","mode":"forward","count":1,"unknown":true}`)
	r := httptest.NewRequest(http.MethodPost, "/sample", bytes.NewReader(data))
	if _, err := DecodeSampleRequest(r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseAlphaContract(t *testing.T) {
	req := &SampleRequest{SceneName: "collector", Mode: spec.ModeBackward, Count: 1, Alpha: 0.2}
	if _, err := req.Parse(); err == nil {
		t.Fatalf("expected error when alpha is set without has_alpha")
	}

	req.HasAlpha = true
	parsed, err := req.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.HasAlpha || parsed.Alpha != 0.2 {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}
}

func TestParseDecodesStartSnapshot(t *testing.T) {
	snap := []byte{1, 2, 3, 4}
	req := &SampleRequest{
		SceneName:  "collector",
		Mode:       spec.ModeForward,
		Count:      1,
		StartState: &StartState{StartCoreSnapB64U: corefmt.EncodeBase64URL(snap)},
	}
	parsed, err := req.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.StartState == nil || !bytes.Equal(parsed.StartState.StartCoreSnap, snap) {
		t.Fatalf("snapshot did not round-trip: %+v", parsed.StartState)
	}

	req.StartState.StartCoreSnapB64U = "!!!"
	if _, err := req.Parse(); err == nil {
		t.Fatalf("expected error for malformed base64url")
	}
}

func TestNewSampleResultDTOCopiesBuffers(t *testing.T) {
	sr := buf.NewSampleResult("collector", spec.SID(3))
	sr.Mode = spec.ModeBackward
	sr.Alpha = 0.5
	sr.Resize(2, true)
	sr.States[0] = source.ParticleState{Energy: 0.609, Weight: 2.0}
	sr.SourceEnergies[0] = 0.609
	sr.State.StartCoreSnap = []byte{1}
	sr.State.AfterCoreSnap = []byte{2}

	dto, err := NewSampleResultDTO(sr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.Count != 2 || dto.SceneID != 3 || dto.Mode != spec.ModeBackward {
		t.Fatalf("unexpected dto: %+v", dto)
	}

	// Mutating the reusable buffer must not change the DTO.
	sr.States[0].Energy = 9.9
	if dto.States[0].Energy != 0.609 {
		t.Fatalf("dto aliases the reusable state buffer")
	}

	if _, err := NewSampleResultDTO(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}
