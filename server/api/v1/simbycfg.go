package v1

import (
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"

	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/server/httperr"
	"github.com/zintix-labs/gammalab/spec"
)

// SimByJson 傳入 JSON設定格式 以及希望初始化的狀態數
func (sh *SimHandler) SimByJson(w http.ResponseWriter, r *http.Request) {
	type SimRequestByJson struct {
		Mode         spec.ModeKey    `json:"mode"`
		Count        int             `json:"count"`
		Alpha        *float64        `json:"alpha,omitempty"`
		SceneSetting json.RawMessage `json:"cfg"`
		Seed         *int64          `json:"seed,omitempty"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. decode request
	req := new(SimRequestByJson)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.Wrap(err, "json decode failed"))
		return
	}

	// 2. vaild count/mode
	if req.Count < 1 {
		httperr.Errs(w, errs.NewWarn("count must be at least 1"))
		return
	}
	if !req.Mode.Known() {
		httperr.Errs(w, errs.NewWarn("unknown mode"))
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

	// 4. NewSimulator
	sim, err := sh.Gammalab.NewSimulatorByJSON(req.SceneSetting, *req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	alpha := sim.Alpha()
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	result, _, err := sim.Sim(req.Mode, alpha, req.Count, false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 6. 回傳Json
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
