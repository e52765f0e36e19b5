package processor

import (
	"math"
	"sort"

	"DanmuAnalysis/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TimeSummary 弹幕出现时间的描述统计
type TimeSummary struct {
	Count int
	Mean  float64
	Std   float64 // 样本标准差，少于2条时为NaN
	Min   float64
	Q1    float64
	Q2    float64
	Q3    float64
	Max   float64
}

// DescribeTimes 计算描述统计，分位数使用线性插值
func DescribeTimes(times []float64) (TimeSummary, bool) {
	if len(times) == 0 {
		return TimeSummary{}, false
	}
	sorted := make([]float64, len(times))
	copy(sorted, times)
	sort.Float64s(sorted)

	s := TimeSummary{
		Count: len(sorted),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		Q1:    quantile(sorted, 0.25),
		Q2:    quantile(sorted, 0.5),
		Q3:    quantile(sorted, 0.75),
		Std:   math.NaN(),
	}
	if len(sorted) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = stat.Mean(sorted, nil)
	}
	return s, true
}

// quantile 在已排序数据上按 (n-1)p 位置线性插值
// gonum 的 stat.Quantile 没有提供这种插值方式
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// ModeSpread 某一弹幕模式的出现时间分布
type ModeSpread struct {
	Name    string
	Times   []float64
	Summary TimeSummary
}

// SpreadByMode 按模式名称分组，分组按名称首次出现的顺序排列，空名称忽略
func SpreadByMode(names []string, times []float64) []ModeSpread {
	index := map[string]int{}
	var out []ModeSpread
	for i, name := range names {
		if name == "" || i >= len(times) {
			continue
		}
		j, ok := index[name]
		if !ok {
			j = len(out)
			index[name] = j
			out = append(out, ModeSpread{Name: name})
		}
		out[j].Times = append(out[j].Times, times[i])
	}
	for i := range out {
		out[i].Summary, _ = DescribeTimes(out[i].Times)
	}
	return out
}

// Dataset 参与时间分析的弹幕，缺少时间的记录不在其中
type Dataset struct {
	Times     []float64
	ModeNames []string // 与Times一一对应，缺失时为空串
}

// DatasetFromFrame 从清洗后的表中取出 time 和 mode_name 列
func DatasetFromFrame(df dataframe.DataFrame) (Dataset, error) {
	if !utils.HasColumn(df, ColTime) {
		return Dataset{}, errMissingColumn(ColTime)
	}
	timeCol := df.Col(ColTime)
	hasMode := utils.HasColumn(df, ColModeName)
	var modeCol series.Series
	if hasMode {
		modeCol = df.Col(ColModeName)
	}

	var ds Dataset
	for i := 0; i < timeCol.Len(); i++ {
		e := timeCol.Elem(i)
		if e.IsNA() {
			continue
		}
		t := e.Float()
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		name := ""
		if hasMode {
			if m := modeCol.Elem(i); !m.IsNA() {
				name = m.String()
			}
		}
		ds.Times = append(ds.Times, t)
		ds.ModeNames = append(ds.ModeNames, name)
	}
	return ds, nil
}
