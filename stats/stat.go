package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/gammalab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// SampleReport 取樣批次統計報告
type SampleReport struct {
	Summary *SummaryReport `json:"Summary"`
	Weight  *WeightReport  `json:"Weight"`
	Dist    *DistReport    `json:"Dist"`
	Line    *LineReport    `json:"Line,omitzero"`
	Face    *FaceReport    `json:"Face,omitzero"`
	isDone  bool
}

type SummaryReport struct {
	SceneName     string       `json:"SceneName"`
	SceneId       spec.SID     `json:"SceneId"`
	Mode          spec.ModeKey `json:"Mode"`
	Alpha         float64      `json:"Alpha"`
	States        int          `json:"States"`
	TotalWeight   float64      `json:"TotalWeight"`
	MeanWeight    float64      `json:"MeanWeight"`
	WeightCI      CI           `json:"WeightCI"`
	Std           float64      `json:"Std"`
	Cv            float64      `json:"Cv"`
	MinEnergy     float64      `json:"MinEnergy"`
	MaxEnergy     float64      `json:"MaxEnergy"`
	Continuum     int          `json:"Continuum"`
	ContinuumRate float64      `json:"ContinuumRate"`
}

// WeightReport 重要性權重動差
//
// 紀錄時只累加，避免轉型成本。紀錄完成後Done()會將結果整理填入Summary
type WeightReport struct {
	WeightSum   float64 `json:"WeightSum"`
	WeightSqSum float64 `json:"WeightSqSum"` // 平方和
}

// DistReport 能量區間落點統計
type DistReport struct {
	EnergyBucket  []string  `json:"EnergyBucket"`
	StateCollect  []int     `json:"StateCollect"`
	WeightCollect []float64 `json:"WeightCollect"`
	StateDist     []float64 `json:"StateDist"`
	WeightDist    []float64 `json:"WeightDist"`
}

// LineReport 發射譜線落點統計與卡方適合度檢定
type LineReport struct {
	Energies []float64 `json:"Energies"`
	Expected []float64 `json:"Expected"` // 正規化後的宣告強度
	Observed []int     `json:"Observed"`
	ChiSq    float64   `json:"ChiSq"`
	Dof      int       `json:"Dof"`
	PValue   float64   `json:"PValue"`
}

// FaceReport 偵測器面落點統計（backward 模式才會統計）
//
// 面的固定順序為 [-x,+x,-y,+y,-z,+z]
type FaceReport struct {
	Labels   []string  `json:"Labels"`
	Expected []float64 `json:"Expected"` // 面面積佔總表面積比例
	Observed []int     `json:"Observed"`
	ChiSq    float64   `json:"ChiSq"`
	Dof      int       `json:"Dof"`
	PValue   float64   `json:"PValue"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 所有取樣統計過程因為性能原因只處理累加的紀錄，所以統計完成後
//
// 請使用 Done 來通知報告，可以一次性計算統計結果
func (s *SampleReport) Done() {
	if s.isDone {
		return
	}
	// Summary
	s.Summary.TotalWeight = s.Weight.WeightSum
	s.Summary.MeanWeight = s.Mean()
	s.Summary.WeightCI = s.Ci()
	s.Summary.Std = s.Std()
	s.Summary.Cv = s.Cv()
	if s.Summary.States > 0 {
		s.Summary.ContinuumRate = float64(s.Summary.Continuum) / float64(s.Summary.States)
	}

	// 譜線 / 面 的卡方適合度
	if s.Line != nil {
		s.Line.ChiSq, s.Line.PValue, s.Line.Dof = ChiSquareGoF(s.Line.Observed, s.Line.Expected)
	}
	if s.Face != nil {
		s.Face.ChiSq, s.Face.PValue, s.Face.Dof = ChiSquareGoF(s.Face.Observed, s.Face.Expected)
	}

	s.isDone = true
}

// Mean 回傳平均重要性權重（總權重 / 狀態數）
func (s *SampleReport) Mean() float64 {
	if s.Summary.States == 0 {
		return 0
	}
	return s.Weight.WeightSum / float64(s.Summary.States)
}

// Std 回傳單一狀態權重的標準差
func (s *SampleReport) Std() float64 {
	if s.Summary.States < 2 {
		return 0
	}
	n := float64(s.Summary.States)

	sumPow := s.Weight.WeightSum * s.Weight.WeightSum
	variance := (s.Weight.WeightSqSum - sumPow/n) / (n - 1)

	if variance < 0 {
		variance = 0
	}

	std := math.Sqrt(variance)
	return std
}

// Cv 回傳權重的變異係數
func (s *SampleReport) Cv() float64 {
	mean := s.Mean()
	std := s.Std()
	if mean <= 0 {
		return 0
	}
	return (std / mean)
}

// Ci 回傳(95% 平均權重)信賴區間
func (s *SampleReport) Ci() CI {
	mean := s.Mean()
	std := s.Std()
	se := float64(0)
	if s.Summary.States > 1 {
		se = std / math.Sqrt(float64(s.Summary.States))
	}
	ci := CI{
		Lo: max(mean-1.96*se, 0.0),
		Hi: mean + 1.96*se,
	}
	return ci
}

func (s *SampleReport) WriteWith(w io.Writer, rep SampleReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *SampleReport) StdOut(ut time.Duration) {
	formatDuration(ut, s.Summary.States)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.SceneName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, states int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	sps := int(float64(states) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\nsps : %d states/sec\n", sec, sps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\nsps : %d states/sec\n", m, s, sps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\nsps : %d states/sec\n", h, m, s, sps)
}

// StdOut

func (s *SampleReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Scene Name":    p.Sprintf("%s", s.Summary.SceneName),
		"Scene ID":      fmt.Sprintf("%d", s.Summary.SceneId),
		"Mode":          string(s.Summary.Mode),
		"Total States":  p.Sprintf("%d", s.Summary.States),
		"Mean Weight":   p.Sprintf("%.6g", s.Summary.MeanWeight),
		"Weight 95% CI": p.Sprintf("[%.6g,%.6g]", s.Summary.WeightCI.Lo, s.Summary.WeightCI.Hi),
		"Total Weight":  p.Sprintf("%.6g", s.Summary.TotalWeight),
		"Energy Range":  p.Sprintf("[%.4g,%.4g] MeV", s.Summary.MinEnergy, s.Summary.MaxEnergy),
		"STD":           p.Sprintf("%.4g", s.Summary.Std),
		"CV":            p.Sprintf("%.4g", s.Summary.Cv),
	}
	keys := []string{"Scene Name", "Scene ID", "Mode", "Total States", "Mean Weight", "Weight 95% CI", "Total Weight", "Energy Range", "STD", "CV"}

	if s.Summary.Mode == spec.ModeBackward {
		basic["Alpha"] = p.Sprintf("%.4g", s.Summary.Alpha)
		basic["Continuum Rate"] = p.Sprintf("%.2f %%", 100.0*s.Summary.ContinuumRate)
		keys = append(keys, "Alpha", "Continuum Rate")
	}
	if s.Line != nil {
		basic["Line ChiSq"] = p.Sprintf("%.4g (p=%.4g)", s.Line.ChiSq, s.Line.PValue)
		keys = append(keys, "Line ChiSq")
	}
	if s.Face != nil {
		basic["Face ChiSq"] = p.Sprintf("%.4g (p=%.4g)", s.Face.ChiSq, s.Face.PValue)
		keys = append(keys, "Face ChiSq")
	}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
