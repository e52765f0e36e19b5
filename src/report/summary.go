// summary.go
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"DanmuAnalysis/src/processor"
)

// WriteQuality 输出数据质量报告
func WriteQuality(w io.Writer, q processor.QualityReport) {
	fmt.Fprintln(w, "数据质量报告:")
	fmt.Fprintf(w, "总弹幕数: %d\n", q.Total)
	fmt.Fprintf(w, "成功解析数: %d (%.1f%%)\n", q.Decoded, q.SuccessRatio()*100)

	if len(q.Samples) > 0 {
		fmt.Fprintln(w, "\n解析失败的示例:")
		for i, sample := range q.Samples {
			fmt.Fprintf(w, "%d. %s\n", i+1, sample)
		}
	}

	fmt.Fprintln(w, "\n新列数据检查:")
	for _, fc := range q.FieldCounts {
		fmt.Fprintf(w, "%s: %d 个有效值\n", fc.Name, fc.NonMissing)
	}
}

// WriteAnalysis 输出时间统计、关键分析结果和滚动密度峰值
func WriteAnalysis(w io.Writer, a processor.Analysis) {
	fmt.Fprintln(w, "弹幕出现时间统计:")
	if !a.HasSummary {
		fmt.Fprintln(w, "没有可用的弹幕时间")
		return
	}
	s := a.Summary
	rows := []struct {
		name  string
		value float64
	}{
		{"mean", s.Mean}, {"std", s.Std}, {"min", s.Min},
		{"25%", s.Q1}, {"50%", s.Q2}, {"75%", s.Q3}, {"max", s.Max},
	}
	fmt.Fprintf(w, "%-6s %d\n", "count", s.Count)
	for _, r := range rows {
		fmt.Fprintf(w, "%-6s %.6f\n", r.name, r.value)
	}

	d := a.Distribution
	fmt.Fprintln(w, "\n关键分析结果:")
	if peak, ok := d.Peak(); ok {
		fmt.Fprintf(w, "1. 弹幕最密集的时间段: %s (共 %d 条弹幕)\n", peak.Label, peak.Count)
	}
	if half, ok := d.FirstReaching(50); ok {
		fmt.Fprintf(w, "2. 50%%的弹幕出现在 %s 之前\n", half.Label)
	}
	if f, ok := d.Findings(); ok {
		fmt.Fprintf(w, "3. 视频前半段弹幕比例: %.1f%%\n", f.FirstHalfShare)
		fmt.Fprintf(w, "4. 视频最后10%%时间段的弹幕比例: %.1f%%\n", f.LastTenthShare)
	}

	if len(a.Marks) > 0 {
		fmt.Fprintln(w, "\n累积比例标记:")
		for _, m := range a.Marks {
			fmt.Fprintf(w, "%s%% 弹幕出现在 %s 前 (实际 %.1f%%)\n",
				formatFloat(m.Percent), m.Bucket.Label, m.Bucket.CumPercent)
		}
	}

	if peak, ok := a.Rolling.Peak(); ok {
		fmt.Fprintf(w, "\n最高密度: %d条/%d条窗口 时间: %.1f秒\n", peak.Count, a.Rolling.Window, peak.Time)
	}

	if len(a.Spreads) > 0 {
		fmt.Fprintln(w, "\n不同弹幕模式出现的时间分布:")
		for _, sp := range a.Spreads {
			fmt.Fprintf(w, "%s: %d 条, 中位数 %.1f秒, 四分位 %.1f~%.1f秒\n",
				sp.Name, sp.Summary.Count, sp.Summary.Q2, sp.Summary.Q1, sp.Summary.Q3)
		}
	}
}

// Text 完整的文本报告，用于日志、邮件正文和钉钉推送
func Text(q processor.QualityReport, a processor.Analysis) string {
	var b strings.Builder
	WriteQuality(&b, q)
	b.WriteString("\n")
	WriteAnalysis(&b, a)
	return b.String()
}

// 整数比例不带小数
func formatFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}
