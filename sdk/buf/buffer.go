package buf

import (
	"github.com/zintix-labs/gammalab/sdk/source"
	"github.com/zintix-labs/gammalab/spec"
)

// SampleResult 保存一次批次取樣的結果。
//
// 熱路徑 buffer：States / SourceEnergies 會被重用（避免 GC），
// 每次取樣會覆寫內容。需要保留結果請在離開臨界區前轉成 DTO。
type SampleResult struct {
	SceneName      string                 // 場景名稱
	SceneId        spec.SID               // 場景Id
	Mode           spec.ModeKey           // 取樣模式
	Alpha          float64                // backward photo-peak 分支機率
	States         []source.ParticleState // 初始化完成的狀態陣列
	SourceEnergies []float64              // backward 模式每個狀態對應的譜線能量 E0
	State          ResultState            // RNG 快照（回放/續抽用）
}

// ResultState 是一次取樣前後的 RNG Core 快照。
type ResultState struct {
	StartCoreSnap []byte
	AfterCoreSnap []byte
}

// NewSampleResult 建立指定場景的 SampleResult 實體。
func NewSampleResult(name string, id spec.SID) *SampleResult {
	return &SampleResult{
		SceneName: name,
		SceneId:   id,
	}
}

// Resize 將內部 buffer 調整到恰好 n 個狀態，儘量重用既有容量。
func (s *SampleResult) Resize(n int, backward bool) {
	if cap(s.States) < n {
		s.States = make([]source.ParticleState, n)
	}
	s.States = s.States[:n]

	if !backward {
		s.SourceEnergies = s.SourceEnergies[:0]
		return
	}
	if cap(s.SourceEnergies) < n {
		s.SourceEnergies = make([]float64, n)
	}
	s.SourceEnergies = s.SourceEnergies[:n]
}

// Reset 重置累積資料，保留已配置的內部切片容量。
func (s *SampleResult) Reset() {
	s.Mode = ""
	s.Alpha = 0
	s.States = s.States[:0]
	s.SourceEnergies = s.SourceEnergies[:0]
	s.State.StartCoreSnap = nil
	s.State.AfterCoreSnap = nil
}
