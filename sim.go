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
	"crypto/rand"
	"io"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/gammalab/errs"
	"github.com/zintix-labs/gammalab/recorder"
	"github.com/zintix-labs/gammalab/sdk/core"
	"github.com/zintix-labs/gammalab/spec"
	"github.com/zintix-labs/gammalab/stats"
)

const capPrepare int = 100

// simChunk 模擬器單次批次的狀態數：夠大攤平呼叫成本，夠小讓進度條有感。
const simChunk int = 4096

// Simulator 用於大量取樣，可建立多台取樣機並平行紀錄統計。
type Simulator struct {
	SceneName string                   // 場景名稱
	SceneId   spec.SID                 // 場景編號
	ss        *spec.SceneSetting       // 方便重用建立取樣機與紀錄員
	cf        core.PRNGFactory         // 亂數生成器
	initSeed  int64                    // 初始下的種子
	seedmaker *seedMaker               // 種子生成器
	gBuf      []*Generator             // 併發執行取樣機實例
	rBuf      []*recorder.BatchRecorder // 併發取樣紀錄員
	sBuf      []*stats.SampleReport    // 併發統計結果報表(僅Runs需要)
}

func newSimulator(ss *spec.SceneSetting, cf core.PRNGFactory) (*Simulator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ss, cf, seed.Int64())
}

func newSimulatorWithSeed(ss *spec.SceneSetting, cf core.PRNGFactory, seed int64) (*Simulator, error) {
	s := &Simulator{
		SceneName: ss.SceneName,
		SceneId:   ss.SceneID,
		ss:        ss,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		gBuf:      make([]*Generator, 1, capPrepare),
		rBuf:      make([]*recorder.BatchRecorder, 0, capPrepare),
		sBuf:      make([]*stats.SampleReport, 0, capPrepare),
	}
	g, err := newGeneratorWithSeed(ss, cf, s.initSeed)
	if err != nil {
		return nil, err
	}
	s.gBuf[0] = g
	return s, nil
}

// Alpha 回傳場景設定的預設 photo-peak 分支機率（供未指定 alpha 的呼叫端使用）。
func (s *Simulator) Alpha() float64 {
	return s.ss.Sampling.Alpha
}

// Sim 單線模擬器：以一台取樣機連續初始化指定數量的狀態並回傳統計結果與用時
func (s *Simulator) Sim(mode spec.ModeKey, alpha float64, count int, showpb bool) (*stats.SampleReport, time.Duration, error) {
	defer s.reset()
	if err := s.validRun(mode, alpha, count); err != nil {
		return nil, 0, err
	}
	g := s.gBuf[0]
	if len(s.rBuf) == 0 {
		r, err := recorder.NewBatchRecorder(s.SceneName, s.SceneId, mode, alpha, g.Scene(), g.Spectrum())
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	r := s.rBuf[0]

	bar := pb.StartNew(count)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for done := 0; done < count; {
		n := min(simChunk, count-done)
		sr, err := g.SampleInternal(mode, n, alpha)
		if err != nil {
			return nil, 0, err
		}
		r.Record(sr.States)
		bar.Add(n)
		done += n
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	result := r.Done()
	result.Done()

	return result, used, nil
}

// SimMP 平行執行多台取樣機，總計 count*mp 個狀態，合併統計結果後 回傳統計結果與用時
func (s *Simulator) SimMP(mode spec.ModeKey, alpha float64, count int, mp int, showpb bool) (*stats.SampleReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if err := s.validRun(mode, alpha, count); err != nil {
		return nil, 0, err
	}
	for len(s.gBuf) < mp {
		g, err := newGeneratorWithSeed(s.ss, s.cf, s.seedmaker.next())
		if err != nil {
			return nil, 0, err
		}
		s.gBuf = append(s.gBuf, g)
	}

	for len(s.rBuf) < mp {
		r, err := recorder.NewBatchRecorder(s.SceneName, s.SceneId, mode, alpha, s.gBuf[0].Scene(), s.gBuf[0].Spectrum())
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	var firstErr atomic.Value
	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(count * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			g := s.gBuf[i]
			st := s.rBuf[i]
			for done := 0; done < count; {
				n := min(simChunk, count-done)
				sr, err := g.SampleInternal(mode, n, alpha)
				if err != nil {
					firstErr.CompareAndSwap(nil, err)
					return
				}
				st.Record(sr.States)
				bar.Add(n)
				done += n
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	if err, ok := firstErr.Load().(error); ok && err != nil {
		return nil, 0, err
	}

	st, err := recorder.MergeBatchRecorder(s.rBuf)
	if err != nil {
		return nil, 0, err
	}
	result := st.Done()
	result.Done()

	return result, used, nil
}

// SimRuns 模擬多個獨立子批次（每個子批次獨立統計），並產出合併報表與跨批次評估報表。
//
// 跨批次評估（EstimatorBatches）用來觀察抽樣的穩定度：
// 子批次平均權重的分位數、譜線與面落點的整體適合度。
func (s *Simulator) SimRuns(mp int, runs int, count int, mode spec.ModeKey, alpha float64, showpb bool) (*stats.SampleReport, *stats.EstimatorBatches, time.Duration, error) {
	defer s.reset()
	if runs < 1 || mp < 1 {
		return nil, nil, 0, errs.NewWarn("invalid param")
	}
	if err := s.validRun(mode, alpha, count); err != nil {
		return nil, nil, 0, err
	}

	// 	準備並行取樣機
	for len(s.gBuf) < mp {
		g, err := newGeneratorWithSeed(s.ss, s.cf, s.seedmaker.next())
		if err != nil {
			return nil, nil, 0, err
		}
		s.gBuf = append(s.gBuf, g)
	}

	// 準備子批次
	s.sBuf = make([]*stats.SampleReport, runs)
	for len(s.rBuf) < runs {
		r, err := recorder.NewBatchRecorder(s.SceneName, s.SceneId, mode, alpha, s.gBuf[0].Scene(), s.gBuf[0].Spectrum())
		if err != nil {
			return nil, nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	// 作一個2048大小的緩衝channel 使子批次依序處理
	jobs := make(chan *recorder.BatchRecorder, 2048)

	var firstErr atomic.Value
	wg := new(sync.WaitGroup)
	wg.Add(mp) // 併發取樣機

	bar := pb.StartNew(runs)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	// 併發執行
	for w := 0; w < mp; w++ {
		go simRun(wg, s.gBuf[w], jobs, mode, alpha, count, bar, &firstErr)
	}
	// 此時併發已經起跑，但由於所有workers都無法從jobs當中取出j(還沒塞進去) 所以不會結束

	// 塞進子批次，開始模擬
	for _, j := range s.rBuf {
		jobs <- j
	}
	close(jobs) // 子批次送完處理完畢關閉通道 通知所有取樣機不會再有新資料
	wg.Wait()   // 等待取樣機都執行完任務
	used := time.Since(bar.StartTime())
	bar.Finish()

	if err, ok := firstErr.Load().(error); ok && err != nil {
		return nil, nil, 0, err
	}

	// 合併基準報表
	record, err := recorder.MergeBatchRecorder(s.rBuf)
	if err != nil {
		return nil, nil, 0, err
	}
	st := record.Done()
	st.Done()

	// 跨批次分析報表
	for i, r := range s.rBuf {
		s.sBuf[i] = r.Done()
		s.sBuf[i].Done()
	}
	est := stats.EstimatorBatchExp(s.sBuf)
	return st, est, used, nil
}

func simRun(wg *sync.WaitGroup, g *Generator, jobs chan *recorder.BatchRecorder, mode spec.ModeKey, alpha float64, count int, bar *pb.ProgressBar, firstErr *atomic.Value) {
	defer wg.Done()
	for j := range jobs { // j := <- jobs
		for done := 0; done < count; {
			n := min(simChunk, count-done)
			sr, err := g.SampleInternal(mode, n, alpha)
			if err != nil {
				firstErr.CompareAndSwap(nil, err)
				return
			}
			j.Record(sr.States)
			done += n
		}
		bar.Increment()
	}
}

func (s *Simulator) validRun(mode spec.ModeKey, alpha float64, count int) error {
	if !mode.Known() {
		return errs.NewWarn("unknown mode")
	}
	if !s.ss.Allows(mode) {
		return errs.NewWarn("mode is not allowed for this scene")
	}
	if count < 1 {
		return errs.NewWarn("count must > 0")
	}
	if mode == spec.ModeBackward && !(alpha >= 0 && alpha <= 1) {
		return errs.NewWarn("alpha must be in [0,1]")
	}
	return nil
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
	s.sBuf = s.sBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 SimMP / SimRuns）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
