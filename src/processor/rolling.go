package processor

import (
	"fmt"
	"sort"
)

// DefaultRollingWindow 默认滚动窗口大小(条)
const DefaultRollingWindow = 30

// RollingPoint 排序后第i条弹幕处的滚动计数
type RollingPoint struct {
	Time  float64
	Count int
	Valid bool // 前 window-1 条没有完整窗口，Valid为false
}

// RollingSeries 按时间排序后的滚动计数序列
type RollingSeries struct {
	Window int
	Points []RollingPoint
}

// RollingCount 按时间稳定排序后，统计每条弹幕之前window条记录组成的窗口中的弹幕数
func RollingCount(times []float64, window int) (RollingSeries, error) {
	if window <= 0 {
		return RollingSeries{}, fmt.Errorf("滚动窗口必须为正数: %d", window)
	}

	sorted := make([]float64, len(times))
	copy(sorted, times)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rs := RollingSeries{Window: window, Points: make([]RollingPoint, len(sorted))}
	inWindow := 0
	for i, t := range sorted {
		inWindow++
		if i >= window {
			inWindow-- // 移出窗口的记录
		}
		rs.Points[i] = RollingPoint{Time: t}
		if i >= window-1 {
			rs.Points[i].Count = inWindow
			rs.Points[i].Valid = true
		}
	}
	return rs, nil
}

// Peak 最大滚动计数及其时间，并列时取排序后最早的一条
func (rs RollingSeries) Peak() (RollingPoint, bool) {
	var best RollingPoint
	found := false
	for _, p := range rs.Points {
		if !p.Valid {
			continue
		}
		if !found || p.Count > best.Count {
			best, found = p, true
		}
	}
	return best, found
}
