package processor

// AnalyzeOptions 时间分析参数
type AnalyzeOptions struct {
	BucketWidth   float64
	RollingWindow int
	Percentiles   []float64
}

// Analysis 一次时间分析的全部结果
type Analysis struct {
	Summary      TimeSummary
	HasSummary   bool
	Distribution Distribution
	Marks        []PercentileMark
	Rolling      RollingSeries
	Spreads      []ModeSpread
}

// Analyze 对清洗后的弹幕做分段统计、累积比例、滚动密度和按模式分组
func Analyze(ds Dataset, opts AnalyzeOptions) (Analysis, error) {
	var a Analysis
	var err error

	a.Summary, a.HasSummary = DescribeTimes(ds.Times)

	if a.Distribution, err = BucketTimes(ds.Times, opts.BucketWidth); err != nil {
		return a, err
	}
	a.Marks = a.Distribution.Marks(opts.Percentiles)

	if a.Rolling, err = RollingCount(ds.Times, opts.RollingWindow); err != nil {
		return a, err
	}

	a.Spreads = SpreadByMode(ds.ModeNames, ds.Times)
	return a, nil
}
