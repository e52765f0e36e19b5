package processor

import (
	"DanmuAnalysis/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// FieldCount 某一解码列的有效值数量
type FieldCount struct {
	Name       string
	NonMissing int
}

// QualityReport 数据质量报告
type QualityReport struct {
	Total       int          // 总弹幕数
	Decoded     int          // 成功解析数
	Failures    []RowFailure // 全部解析失败的行
	Samples     []string     // 失败样例(原始 danmu_infos)
	FieldCounts []FieldCount // 各解码列的有效值数量
}

// SuccessRatio 成功解析比例，取值0~1
func (q QualityReport) SuccessRatio() float64 {
	if q.Total == 0 {
		return 0
	}
	return float64(q.Decoded) / float64(q.Total)
}

// BuildQualityReport 根据解码结果和清洗后的表生成质量报告
func BuildQualityReport(df dataframe.DataFrame, res BatchResult[DanmuFields], samples int) QualityReport {
	q := QualityReport{
		Total:    len(res.Values),
		Decoded:  res.Succeeded(),
		Failures: res.Failures,
	}

	for i := 0; i < len(res.Failures) && i < samples; i++ {
		q.Samples = append(q.Samples, res.Failures[i].Raw)
	}

	for _, name := range DecodedColumns {
		fc := FieldCount{Name: name}
		if utils.HasColumn(df, name) {
			fc.NonMissing = NonMissing(df, name)
		}
		q.FieldCounts = append(q.FieldCounts, fc)
	}
	return q
}

// NonMissing 统计某列的非空值数量
func NonMissing(df dataframe.DataFrame, name string) int {
	col := df.Col(name)
	count := 0
	for _, na := range col.IsNaN() {
		if !na {
			count++
		}
	}
	return count
}
