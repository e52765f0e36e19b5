// Package pipeline 串联单个弹幕文件的清洗、导出、分析和图表生成
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"DanmuAnalysis/src/config"
	"DanmuAnalysis/src/datasource/file"
	"DanmuAnalysis/src/processor"
	"DanmuAnalysis/src/report"
	"DanmuAnalysis/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Options 单次处理的参数
type Options struct {
	Read           file.ReadOptions
	ChartDir       string // 为空时不生成图表
	Analyze        processor.AnalyzeOptions
	FailureSamples int
	TimezoneOffset time.Duration
}

// OptionsFromConfig 从配置文件生成处理参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Read: file.ReadOptions{
			SheetName: cfg.SheetName,
			HeaderRow: cfg.HeaderRow,
			Encoding:  cfg.InputEncoding,
		},
		ChartDir: cfg.ChartDir,
		Analyze: processor.AnalyzeOptions{
			BucketWidth:   cfg.Analysis.BucketWidth,
			RollingWindow: cfg.Analysis.RollingWindow,
			Percentiles:   cfg.Analysis.Percentiles,
		},
		FailureSamples: cfg.Analysis.FailureSamples,
		TimezoneOffset: time.Duration(cfg.Analysis.TimezoneOffset),
	}
}

// Result 一次处理的产出
type Result struct {
	Input    string
	Output   string // 清洗后的文件，只做分析时为空
	Quality  processor.QualityReport
	Analysis processor.Analysis
	Charts   []string
	Text     string // 文本报告
}

// Attachments 报告邮件的附件: 清洗结果和图表
func (r *Result) Attachments() []string {
	var files []string
	if r.Output != "" {
		files = append(files, r.Output)
	}
	return append(files, r.Charts...)
}

type Pipeline struct {
	opts    Options
	cleaner *processor.Cleaner
	charts  *report.ChartRenderer
	logger  processor.Logger
}

func New(opts Options, tables config.Tables, logger processor.Logger) *Pipeline {
	p := &Pipeline{
		opts:    opts,
		cleaner: processor.NewCleaner(processor.NewEnricher(tables, opts.TimezoneOffset), logger, opts.FailureSamples),
		logger:  logger,
	}
	if opts.ChartDir != "" {
		p.charts = report.NewChartRenderer(opts.ChartDir)
	}
	return p
}

// OutputFor 原始文件对应的清洗结果路径: 同目录下 cleaned_<文件名>
func OutputFor(input string) string {
	return utils.CleanedName(filepath.Dir(input), input, utils.Ext(input))
}

// Clean 读取原始文件，解码并解释后保存到output
func (p *Pipeline) Clean(input, output string) (dataframe.DataFrame, processor.QualityReport, error) {
	t1 := time.Now()
	raw, err := file.ReadTable(input, p.opts.Read)
	if err != nil {
		return raw, processor.QualityReport{}, fmt.Errorf("读取弹幕文件失败: %w", err)
	}
	p.logger.Info(fmt.Sprintf("读取 %s: %d 行, 列名: %v", input, raw.Nrow(), raw.Names()))

	cleaned, quality, err := p.cleaner.Clean(raw)
	if err != nil {
		return cleaned, quality, fmt.Errorf("清洗弹幕数据失败: %w", err)
	}

	if err := file.WriteTable(cleaned, output); err != nil {
		return cleaned, quality, fmt.Errorf("保存清洗结果失败: %w", err)
	}
	p.logger.Info(fmt.Sprintf("清洗后的数据已保存至: %s (耗时 %v)", output, time.Since(t1)))
	return cleaned, quality, nil
}

// Analyze 对清洗后的表做时间分析并生成图表
func (p *Pipeline) Analyze(df dataframe.DataFrame) (processor.Analysis, []string, error) {
	ds, err := processor.DatasetFromFrame(df)
	if err != nil {
		return processor.Analysis{}, nil, err
	}

	a, err := processor.Analyze(ds, p.opts.Analyze)
	if err != nil {
		return a, nil, fmt.Errorf("时间分析失败: %w", err)
	}

	if p.charts == nil {
		return a, nil, nil
	}
	charts, err := p.charts.RenderAll(a)
	if err != nil {
		return a, charts, err
	}
	for _, c := range charts {
		p.logger.Info("图表已保存至: " + c)
	}
	return a, charts, nil
}

// Run 完整处理一个原始文件: 清洗、导出、分析、出图
func (p *Pipeline) Run(input, output string) (*Result, error) {
	if output == "" {
		output = OutputFor(input)
	}
	cleaned, quality, err := p.Clean(input, output)
	if err != nil {
		return nil, err
	}

	a, charts, err := p.Analyze(cleaned)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Input:    input,
		Output:   output,
		Quality:  quality,
		Analysis: a,
		Charts:   charts,
		Text:     report.Text(quality, a),
	}
	p.logger.Info("\n" + res.Text)
	return res, nil
}

// AnalyzeFile 只分析已经清洗过的文件
func (p *Pipeline) AnalyzeFile(path string) (*Result, error) {
	// 清洗结果由WriteTable导出，标题在第一行且为UTF-8
	df, err := file.ReadTable(path, file.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取清洗后的文件失败: %w", err)
	}

	a, charts, err := p.Analyze(df)
	if err != nil {
		return nil, err
	}

	res := &Result{Input: path, Analysis: a, Charts: charts}
	var b strings.Builder
	report.WriteAnalysis(&b, a)
	res.Text = b.String()
	p.logger.Info("\n" + res.Text)
	return res, nil
}
