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

package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// 抽樣品質評估（跨多個子批次）
type EstimatorBatches struct {
	WeightStat WeightStat
	LineStat   CellStat
	FaceStat   CellStat
}

// 權重敘事
type WeightStat struct {
	ExpMedian PointStat // 描述子批次平均權重的中位數
	ExpPerc   ExpPerc   // 描述子批次平均權重的分布
}

// 用分位數視角看子批次: 最低10％批次的平均權重 最低33%批次的平均權重 ...
type ExpPerc struct {
	ExpP10 PointStat
	ExpP33 PointStat
	ExpP67 PointStat
	ExpP90 PointStat
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// CellStat 類別落點的統計：每格觀測頻率的點估計 + 整體卡方適合度
type CellStat struct {
	Labels   []string
	Expected []float64
	Rate     []PointStat
	ChiSq    float64
	Dof      int
	PValue   float64
}

// ============================================================
// ** 對外 : 抽樣品質評估 **
// ============================================================

// ChiSquareGoF 皮爾森卡方適合度檢定。
//
// observed 為各類別計數，expected 為宣告機率（可以未正規化，內部會除以總和）。
// 回傳卡方統計量、p 值與自由度；期望為零的類別不參與統計量。
func ChiSquareGoF(observed []int, expected []float64) (chi2 float64, pValue float64, dof int) {
	if len(observed) != len(expected) || len(observed) == 0 {
		return 0, 1, 0
	}
	total := 0
	for _, o := range observed {
		total += o
	}
	expTotal := 0.0
	for _, e := range expected {
		expTotal += e
	}
	if total == 0 || expTotal <= 0 {
		return 0, 1, 0
	}

	cells := 0
	for i, o := range observed {
		exp := float64(total) * expected[i] / expTotal
		if exp <= 0 {
			continue
		}
		d := float64(o) - exp
		chi2 += d * d / exp
		cells++
	}
	dof = cells - 1
	if dof < 1 {
		return chi2, 1, 0
	}
	dist := distuv.ChiSquared{K: float64(dof)}
	pValue = dist.Survival(chi2)
	return chi2, pValue, dof
}

// EstimatorBatchExp 抽樣品質評估
//
// 1. Weight 敘事 : 描述各子批次平均權重的分布（分位點 + CI）
//
// 2. Line 敘事 : 各發射譜線的觀測頻率（CP 95% CI）與整體卡方
//
// 3. Face 敘事 : 各偵測器面的觀測頻率（CP 95% CI）與整體卡方
func EstimatorBatchExp(sts []*SampleReport) *EstimatorBatches {
	// 0. 防禦：空輸入
	n := len(sts)
	out := &EstimatorBatches{}
	if n == 0 {
		return out
	}

	// ------------------------------------------------------------
	// 1) Weight 敘事：收集每個子批次的平均權重並做分位/CI
	// ------------------------------------------------------------
	mean := make([]float64, n)
	for i, s := range sts {
		mean[i] = s.Mean()
	}

	// 中位數 (點估計 + 95% CI)
	medHat := quantilePoint(mean, 0.5)
	medLo, medHi := quantileCI(mean, 0.5, 0.95)

	// P10, P33, P67, P90 (點估計 + 95% CI)
	p10Hat := quantilePoint(mean, 0.10)
	p10Lo, p10Hi := quantileCI(mean, 0.10, 0.95)

	p33Hat := quantilePoint(mean, 1.0/3.0)
	p33Lo, p33Hi := quantileCI(mean, 1.0/3.0, 0.95)

	p67Hat := quantilePoint(mean, 2.0/3.0)
	p67Lo, p67Hi := quantileCI(mean, 2.0/3.0, 0.95)

	p90Hat := quantilePoint(mean, 0.90)
	p90Lo, p90Hi := quantileCI(mean, 0.90, 0.95)

	out.WeightStat = WeightStat{
		ExpMedian: PointStat{Hat: medHat, CI: CI{Lo: medLo, Hi: medHi}},
		ExpPerc: ExpPerc{
			ExpP10: PointStat{Hat: p10Hat, CI: CI{Lo: p10Lo, Hi: p10Hi}},
			ExpP33: PointStat{Hat: p33Hat, CI: CI{Lo: p33Lo, Hi: p33Hi}},
			ExpP67: PointStat{Hat: p67Hat, CI: CI{Lo: p67Lo, Hi: p67Hi}},
			ExpP90: PointStat{Hat: p90Hat, CI: CI{Lo: p90Lo, Hi: p90Hi}},
		},
	}

	// ------------------------------------------------------------
	// 2) Line 敘事：跨批次加總譜線落點
	// ------------------------------------------------------------
	if first := sts[0].Line; first != nil {
		labels := make([]string, len(first.Energies))
		for i, e := range first.Energies {
			labels[i] = fmt.Sprintf("%.4g MeV", e)
		}
		out.LineStat = cellStatFrom(labels, first.Expected, sumObserved(sts, func(s *SampleReport) []int {
			if s.Line == nil {
				return nil
			}
			return s.Line.Observed
		}))
	}

	// ------------------------------------------------------------
	// 3) Face 敘事：跨批次加總面落點
	// ------------------------------------------------------------
	if first := sts[0].Face; first != nil {
		out.FaceStat = cellStatFrom(first.Labels, first.Expected, sumObserved(sts, func(s *SampleReport) []int {
			if s.Face == nil {
				return nil
			}
			return s.Face.Observed
		}))
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

func sumObserved(sts []*SampleReport, pick func(*SampleReport) []int) []int {
	var sum []int
	for _, s := range sts {
		obs := pick(s)
		if obs == nil {
			continue
		}
		if sum == nil {
			sum = make([]int, len(obs))
		}
		for i := range obs {
			sum[i] += obs[i]
		}
	}
	return sum
}

func cellStatFrom(labels []string, expected []float64, observed []int) CellStat {
	cs := CellStat{
		Labels:   labels,
		Expected: expected,
		Rate:     make([]PointStat, len(observed)),
	}
	total := 0
	for _, o := range observed {
		total += o
	}
	for i, o := range observed {
		hat, ci := proportionCICP(o, total, 0.95)
		cs.Rate[i] = PointStat{Hat: hat, CI: ci}
	}
	cs.ChiSq, cs.PValue, cs.Dof = ChiSquareGoF(observed, expected)
	return cs
}

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorBatches) Out() {
	// 1) Weight (Batch Spread)
	fmt.Println("=== Weight (Batch Spread) ===")
	wKeys := []string{
		"Median Mean Weight",
		"P10 Mean Weight",
		"P33 Mean Weight",
		"P67 Mean Weight",
		"P90 Mean Weight",
	}
	wMsg := map[string]string{
		"Median Mean Weight": fmtHatCI(est.WeightStat.ExpMedian.Hat, est.WeightStat.ExpMedian.CI),
		"P10 Mean Weight":    fmtHatCI(est.WeightStat.ExpPerc.ExpP10.Hat, est.WeightStat.ExpPerc.ExpP10.CI),
		"P33 Mean Weight":    fmtHatCI(est.WeightStat.ExpPerc.ExpP33.Hat, est.WeightStat.ExpPerc.ExpP33.CI),
		"P67 Mean Weight":    fmtHatCI(est.WeightStat.ExpPerc.ExpP67.Hat, est.WeightStat.ExpPerc.ExpP67.CI),
		"P90 Mean Weight":    fmtHatCI(est.WeightStat.ExpPerc.ExpP90.Hat, est.WeightStat.ExpPerc.ExpP90.CI),
	}
	printEstTable("Weight (Batch Spread)", wKeys, wMsg)

	// 2) Emission lines
	if len(est.LineStat.Rate) > 0 {
		fmt.Println("\n=== Emission Lines (observed rate) ===")
		printCellStat(est.LineStat)
	}

	// 3) Detector faces
	if len(est.FaceStat.Rate) > 0 {
		fmt.Println("\n=== Detector Faces (observed rate) ===")
		printCellStat(est.FaceStat)
	}
}

func printCellStat(cs CellStat) {
	for i, label := range cs.Labels {
		if i >= len(cs.Rate) {
			break
		}
		fmt.Printf("%-14s : %s\n", label, fmtHatCIpct01(cs.Rate[i].Hat, cs.Rate[i].CI))
	}
	fmt.Printf("%-14s : chi2=%.4g dof=%d p=%.4g\n", "GoF", cs.ChiSq, cs.Dof, cs.PValue)
}

func printEstTable(title string, keys []string, msg map[string]string) {
	fmt.Println(title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtHatCI(hat float64, ci CI) string {
	return fmt.Sprintf("%.6g [%.6g, %.6g]", hat, ci.Lo, ci.Hi)
}
