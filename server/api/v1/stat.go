package v1

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/zintix-labs/gammalab/recorder"
	"github.com/zintix-labs/gammalab/sdk/source"
	"github.com/zintix-labs/gammalab/spec"
	"github.com/zintix-labs/gammalab/stats"
)

type DistStat struct {
	// SampleRequest
	SceneName string       `json:"scene_name"`
	SceneId   spec.SID     `json:"sid"`
	Mode      spec.ModeKey `json:"mode"`
	Alpha     float64      `json:"alpha"`
	// 宣告譜線（外部紀錄的期望分佈來源）
	LineEnergies    []float64 `json:"line_energies"`
	LineIntensities []float64 `json:"line_intensities"`
	// StateRecord
	Energies []float64 `json:"energies"`
	Weights  []float64 `json:"weights"`
}

func Stat(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 嘗試解析
	dst := new(DistStat)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !dst.Mode.Known() {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}

	// 對齊狀態數
	count := min(len(dst.Energies), len(dst.Weights))
	if count < 1 {
		http.Error(w, "states must > 0", http.StatusBadRequest)
		return
	}

	// 繞過New方法，自己構造 BatchRecorder (否則會出錯)
	rec := &recorder.BatchRecorder{
		SceneName: dst.SceneName,
		SceneId:   dst.SceneId,
		Mode:      dst.Mode,
		Alpha:     dst.Alpha,
		Basic: &recorder.BasicRecord{
			MinEnergy: math.Inf(1),
			MaxEnergy: math.Inf(-1),
		},
		Dist: &recorder.DistRecord{
			StateCollect:  make([]int, stats.Buckets.Len()),
			WeightCollect: make([]float64, stats.Buckets.Len()),
		},
		Line: recorder.NewLineRecord(dst.LineEnergies, dst.LineIntensities),
	}

	// 逐狀態紀錄（只帶能量/權重，面落點無位置資訊不統計）
	st := make([]source.ParticleState, 1)
	for i := 0; i < count; i++ {
		st[0].Energy = dst.Energies[i]
		st[0].Weight = dst.Weights[i]
		rec.Record(st)
	}
	report := rec.Done()
	report.Done()
	if err := json.NewEncoder(w).Encode(report); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
}
