// aggregate.go
package processor

import (
	"errors"
	"fmt"
	"math"
)

// DefaultBucketWidth 默认时间分段宽度(秒)
const DefaultBucketWidth = 30.0

// MaxBuckets 分段数上限，30秒分段时约35天
const MaxBuckets = 100000

// ErrTooManyBuckets 时间跨度过大，分段数超过 MaxBuckets
var ErrTooManyBuckets = errors.New("分段数超过上限")

// TimeBucket 左闭右开区间 [Start, End)
type TimeBucket struct {
	Index      int
	Start      float64
	End        float64
	Label      string  // 分:秒
	Count      int     // 区间内弹幕数
	CumCount   int     // 累积弹幕数
	CumPercent float64 // 累积比例(%)
}

// Distribution 按固定宽度分段后的弹幕分布
type Distribution struct {
	Width   float64
	Total   int
	Buckets []TimeBucket
}

// BucketTimes 按宽度width对时间分段统计
// 分段从0开始(存在负值时从负值所在分段开始)，到 floor(max/width)+1 个宽度结束，
// 每个时间恰好落入一个分段，空分段计数为0
func BucketTimes(times []float64, width float64) (Distribution, error) {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return Distribution{}, fmt.Errorf("分段宽度必须为正数: %v", width)
	}
	d := Distribution{Width: width}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Distribution{}, errors.New("时间中包含非有限数值")
		}
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	if len(times) == 0 {
		return d, nil
	}

	first := 0.0
	if lo < 0 {
		first = math.Floor(lo/width) * width
	}
	// 先用浮点数比较，避免转换为int时溢出
	span := math.Floor((hi - first) / width)
	if !(span < MaxBuckets) {
		return Distribution{}, fmt.Errorf("%w: 时间范围 %v~%v 秒，宽度 %v", ErrTooManyBuckets, lo, hi, width)
	}
	n := int(span) + 1

	d.Buckets = make([]TimeBucket, n)
	for i := range d.Buckets {
		start := first + float64(i)*width
		d.Buckets[i] = TimeBucket{
			Index: i,
			Start: start,
			End:   start + width,
			Label: BucketLabel(start),
		}
	}

	for _, t := range times {
		d.Buckets[d.indexOf(t)].Count++
	}
	d.Total = len(times)

	cum := 0
	for i := range d.Buckets {
		cum += d.Buckets[i].Count
		d.Buckets[i].CumCount = cum
		d.Buckets[i].CumPercent = float64(cum) / float64(d.Total) * 100
	}
	return d, nil
}

// indexOf 返回时间所在分段下标，边界值归入以其为起点的分段
func (d Distribution) indexOf(t float64) int {
	i := int(math.Floor((t - d.Buckets[0].Start) / d.Width))
	// 浮点误差修正
	for i > 0 && t < d.Buckets[i].Start {
		i--
	}
	for i < len(d.Buckets)-1 && t >= d.Buckets[i].End {
		i++
	}
	if i < 0 {
		i = 0
	}
	if i >= len(d.Buckets) {
		i = len(d.Buckets) - 1
	}
	return i
}

// BucketLabel 把分段起点格式化为 分:秒
func BucketLabel(start float64) string {
	sign := ""
	if start < 0 {
		sign = "-"
		start = -start
	}
	sec := int(start)
	return fmt.Sprintf("%s%d:%02d", sign, sec/60, sec%60)
}

// Counts 各分段的弹幕数
func (d Distribution) Counts() []int {
	out := make([]int, len(d.Buckets))
	for i, b := range d.Buckets {
		out[i] = b.Count
	}
	return out
}

// Labels 各分段的标签
func (d Distribution) Labels() []string {
	out := make([]string, len(d.Buckets))
	for i, b := range d.Buckets {
		out[i] = b.Label
	}
	return out
}

// Peak 弹幕最多的分段，并列时取最早的
func (d Distribution) Peak() (TimeBucket, bool) {
	if len(d.Buckets) == 0 {
		return TimeBucket{}, false
	}
	best := 0
	for i, b := range d.Buckets {
		if b.Count > d.Buckets[best].Count {
			best = i
		}
	}
	return d.Buckets[best], true
}

// NearestPercentile 累积比例最接近p的分段，差值相同时取最早的
func (d Distribution) NearestPercentile(p float64) (TimeBucket, bool) {
	if d.Total == 0 {
		return TimeBucket{}, false
	}
	best := 0
	bestDiff := math.Abs(d.Buckets[0].CumPercent - p)
	for i, b := range d.Buckets[1:] {
		if diff := math.Abs(b.CumPercent - p); diff < bestDiff {
			best, bestDiff = i+1, diff
		}
	}
	return d.Buckets[best], true
}

// FirstReaching 第一个累积比例达到p的分段
func (d Distribution) FirstReaching(p float64) (TimeBucket, bool) {
	for _, b := range d.Buckets {
		if d.Total > 0 && b.CumPercent >= p {
			return b, true
		}
	}
	return TimeBucket{}, false
}

// PercentileMark 累积比例标记点
type PercentileMark struct {
	Percent float64
	Bucket  TimeBucket
}

// Marks 计算各目标比例最接近的分段
func (d Distribution) Marks(percents []float64) []PercentileMark {
	var marks []PercentileMark
	for _, p := range percents {
		if b, ok := d.NearestPercentile(p); ok {
			marks = append(marks, PercentileMark{Percent: p, Bucket: b})
		}
	}
	return marks
}

// Findings 关键时间点分析
type Findings struct {
	FirstHalfShare float64 // 前半段分段的累积比例(%)
	LastTenthShare float64 // 最后10%分段的弹幕比例(%)
}

// Findings 前半段取第 n/2 个分段的累积比例，
// 最后10%为 100 减去倒数第 ceil(n/10) 个分段的累积比例
func (d Distribution) Findings() (Findings, bool) {
	n := len(d.Buckets)
	if n == 0 || d.Total == 0 {
		return Findings{}, false
	}
	tail := (n + 9) / 10
	return Findings{
		FirstHalfShare: d.Buckets[n/2].CumPercent,
		LastTenthShare: 100 - d.Buckets[n-tail].CumPercent,
	}, true
}
