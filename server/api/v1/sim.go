package v1

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/zintix-labs/gammalab"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/server/httperr"
	"github.com/zintix-labs/gammalab/spec"
	"github.com/zintix-labs/gammalab/stats"
)

type SimHandler struct {
	Gammalab *gammalab.Gammalab
}

func NewSimHandler(lab *gammalab.Gammalab) (*SimHandler, error) {
	return &SimHandler{Gammalab: lab}, nil
}

func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRequestBody struct {
		SID   spec.SID     `json:"sid"`
		Mode  spec.ModeKey `json:"mode"`
		Count int          `json:"count"`
		Alpha *float64     `json:"alpha,omitempty"`
		Seed  *int64       `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimResponse struct {
		Stats    *stats.SampleReport `json:"stats"`
		UsedTime int64               `json:"used_ms"`
	}
	// ---
	req := new(SimRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		// sid
		if s := q.URL.Query().Get("sid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("sid must be non-negative integer"))
				return
			}
			req.SID = spec.SID(u)
		} else {
			// 直接空值
			httperr.Errs(w, errs.NewWarn("sid is required"))
			return
		}

		// mode
		if m := q.URL.Query().Get("mode"); m != "" {
			req.Mode = spec.ModeKey(m)
		} else {
			httperr.Errs(w, errs.NewWarn("mode is required"))
			return
		}

		// count
		if r := q.URL.Query().Get("count"); r != "" {
			u, err := strconv.ParseInt(r, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("count must be integer"))
				return
			}
			req.Count = int(u)
		} else {
			httperr.Errs(w, errs.NewWarn("count is required"))
			return
		}

		// alpha
		if a := q.URL.Query().Get("alpha"); a != "" {
			f, err := strconv.ParseFloat(a, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("alpha must be float"))
				return
			}
			v := f
			req.Alpha = &v
		}

		// seed
		if s := q.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務檢驗
	_, ok := sh.Gammalab.EntryById(req.SID)
	if !ok {
		httperr.Errs(w, errs.NewWarn("sid not found"))
		return
	}
	if !req.Mode.Known() {
		httperr.Errs(w, errs.NewWarn("unknown mode"))
		return
	}
	if req.Count < 1 || req.Count > 1000000 {
		httperr.Errs(w, errs.NewWarn("count must be between 1 to 1,000,000"))
		return
	}
	if req.Alpha != nil && !(*req.Alpha >= 0 && *req.Alpha <= 1) {
		httperr.Errs(w, errs.NewWarn("alpha must be in [0,1]"))
		return
	}
	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}
	sim, err := sh.Gammalab.NewSimulatorWithSeed(req.SID, *req.Seed)
	if err != nil {
		// 這裡的錯誤是來自gammalab 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.SID)))
		return
	}
	alpha := sim.Alpha()
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	st, used, err := sim.Sim(req.Mode, alpha, req.Count, false)
	if err != nil {
		// 這裡的錯誤來自simulator 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}
	resp := SimResponse{
		Stats:    st,
		UsedTime: used.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (sh *SimHandler) SimRuns(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRunsRequestBody struct {
		SID   spec.SID     `json:"sid"`
		Runs  int          `json:"runs"`
		Mode  spec.ModeKey `json:"mode"`
		Count int          `json:"count"`
		Alpha *float64     `json:"alpha,omitempty"`
		Seed  *int64       `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimRunsResponse struct {
		StatsReport *stats.SampleReport     `json:"stats"`
		Estimator   *stats.EstimatorBatches `json:"est"`
		UsedTime    int64                   `json:"used_ms"`
	}
	// ---
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(SimRunsRequestBody)
	if r.Method == http.MethodGet {
		sid := r.URL.Query().Get("sid")
		runsStr := r.URL.Query().Get("runs")
		modeStr := r.URL.Query().Get("mode")
		countStr := r.URL.Query().Get("count")

		// sid
		if sid != "" {
			u, err := strconv.ParseUint(sid, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("sid must be non-negative integer"))
				return
			}
			req.SID = spec.SID(u)
		} else {
			httperr.Errs(w, errs.NewWarn("sid is required"))
			return
		}

		// runs
		if runsStr != "" {
			runs, err := strconv.Atoi(runsStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("runs must be integer"))
				return
			}
			req.Runs = runs
		} else {
			httperr.Errs(w, errs.NewWarn("runs is required"))
			return
		}

		// mode
		if modeStr != "" {
			req.Mode = spec.ModeKey(modeStr)
		} else {
			httperr.Errs(w, errs.NewWarn("mode is required"))
			return
		}

		// count
		if countStr != "" {
			count, err := strconv.Atoi(countStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("count must be integer"))
				return
			}
			req.Count = count
		} else {
			httperr.Errs(w, errs.NewWarn("count is required"))
			return
		}

		// alpha
		if a := r.URL.Query().Get("alpha"); a != "" {
			f, err := strconv.ParseFloat(a, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("alpha must be float"))
				return
			}
			v := f
			req.Alpha = &v
		}

		// seed
		if s := r.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務邏輯判斷
	if _, ok := sh.Gammalab.EntryById(req.SID); !ok {
		httperr.Errs(w, errs.NewWarn("sid not found"))
		return
	}
	if req.Runs < 1 || req.Runs > 100000 {
		httperr.Errs(w, errs.NewWarn("runs must be between 1 and 100,000"))
		return
	}
	if !req.Mode.Known() {
		httperr.Errs(w, errs.NewWarn("unknown mode"))
		return
	}
	if req.Count < 1 || req.Count > 15000 {
		httperr.Errs(w, errs.NewWarn("count must be between 1 and 15,000"))
		return
	}
	if req.Alpha != nil && !(*req.Alpha >= 0 && *req.Alpha <= 1) {
		httperr.Errs(w, errs.NewWarn("alpha must be in [0,1]"))
		return
	}
	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}
	// 取得sim
	sim, err := sh.Gammalab.NewSimulatorWithSeed(req.SID, *req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.SID)))
		return
	}
	alpha := sim.Alpha()
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	st, est, used, err := sim.SimRuns(4, req.Runs, req.Count, req.Mode, alpha, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("simulator err: %d", req.SID)))
		return
	}
	resp := &SimRunsResponse{
		StatsReport: st,
		Estimator:   est,
		UsedTime:    used.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
