package stats

const (
	lutMaxKeV int = 4000 // LUT 覆蓋範圍 (keV)
)

// EnergyBuckets
//
// 用來快速定位能量 -> DistReport 位置 O(1)
//
// 請勿修改預設值
//   - 能量區間 (MeV): [0,0.01), [0.01,0.1), [0.1,0.2), ..., [2.5,3.0), [3.0,+inf)
type EnergyBuckets struct {
	edges     []float64 // 桶邊界 (MeV)，嚴格遞增
	labels    []string
	energyLUT []int // keV -> bucket idx
	maxIdx    int
}

// Buckets
//
// 用來快速定位能量 -> DistReport 位置 O(1)
//
// 請勿修改預設值
var Buckets *EnergyBuckets = newEnergyBuckets(
	[]float64{0.01, 0.1, 0.2, 0.3, 0.5, 0.75, 1.0, 1.5, 2.0, 2.5, 3.0},
	[]string{"[0,0.01)", "[0.01,0.1)", "[0.1,0.2)", "[0.2,0.3)", "[0.3,0.5)", "[0.5,0.75)", "[0.75,1.0)", "[1.0,1.5)", "[1.5,2.0)", "[2.0,2.5)", "[2.5,3.0)", "[3.0,+inf)"},
)

func newEnergyBuckets(edges []float64, labels []string) *EnergyBuckets {
	// 建立 keV 解析度的反查表
	lut := make([]int, lutMaxKeV) // lut[keV] = idx

	idx := 0
	last := len(edges)
	for i := 0; i < lutMaxKeV; i++ {
		e := float64(i) / 1000.0
		// 僅在還有更高邊界時才前進 idx，避免越界讀取
		for idx < last && e >= edges[idx] {
			idx++
		}
		lut[i] = idx
	}

	return &EnergyBuckets{
		edges:     edges,
		labels:    labels,
		energyLUT: lut,
		maxIdx:    len(edges),
	}
}

func (b *EnergyBuckets) Labels() []string {
	return b.labels
}

func (b *EnergyBuckets) Len() int {
	return len(b.labels)
}

// Index 回傳能量 e (MeV) 所屬的桶索引。
//
// LUT 以 keV 解析度預分桶；落在邊界附近一個 keV 內的能量
// 會用實際邊界值修正，保證 [edge, next) 的半開區間語意。
func (b *EnergyBuckets) Index(e float64) int {
	if e <= 0 {
		return 0
	}
	k := int(e * 1000.0)
	idx := b.maxIdx
	if k < lutMaxKeV {
		idx = b.energyLUT[k]
	}
	for idx < b.maxIdx && e >= b.edges[idx] {
		idx++
	}
	for idx > 0 && e < b.edges[idx-1] {
		idx--
	}
	return idx
}
