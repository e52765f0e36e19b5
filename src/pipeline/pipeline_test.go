package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"DanmuAnalysis/src/config"
	"DanmuAnalysis/src/datasource/file"
	"DanmuAnalysis/src/processor"
	"DanmuAnalysis/src/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordLogger struct {
	debugs, infos, warnings []string
}

func (l *recordLogger) Debug(msg string)   { l.debugs = append(l.debugs, msg) }
func (l *recordLogger) Info(msg string)    { l.infos = append(l.infos, msg) }
func (l *recordLogger) Warning(msg string) { l.warnings = append(l.warnings, msg) }

const rawCSV = "danmu_infos,content\n" +
	"\"1.5, 1, 25, 16777215, 1609459200, 0, abc, 1\",开头\n" +
	"\"12.3,1,25\",坏数据\n" +
	"\"40,5,64,255,1609459260,1,def,2\",中间\n" +
	"\"95,9,99,-1,1609459320,0,ghi,3\",结尾\n" +
	",空行\n"

func newTestPipeline(t *testing.T, chartDir string) (*Pipeline, *recordLogger) {
	cfg := config.DefaultConfig()
	opts := OptionsFromConfig(cfg)
	opts.ChartDir = chartDir
	opts.Analyze.RollingWindow = 2
	logger := &recordLogger{}
	return New(opts, config.NewTables(nil), logger), logger
}

func TestRunCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "danmu.csv")
	require.NoError(t, os.WriteFile(input, []byte(rawCSV), 0644))

	p, logger := newTestPipeline(t, filepath.Join(dir, "charts"))
	res, err := p.Run(input, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "cleaned_danmu.csv"), res.Output)
	assert.Equal(t, 5, res.Quality.Total)
	assert.Equal(t, 3, res.Quality.Decoded)
	assert.Equal(t, []string{"12.3,1,25", "NaN"}, res.Quality.Samples)
	// 字段不足和空行只记DEBUG
	assert.Empty(t, logger.warnings)
	assert.Len(t, logger.debugs, 2)

	assert.Equal(t, 3, res.Analysis.Summary.Count)
	assert.Equal(t, []int{1, 1, 0, 1}, res.Analysis.Distribution.Counts())
	assert.Len(t, res.Charts, 3)
	assert.Equal(t, append([]string{res.Output}, res.Charts...), res.Attachments())
	assert.Contains(t, res.Text, "总弹幕数: 5")
	assert.Contains(t, res.Text, "1. 弹幕最密集的时间段: 0:00 (共 1 条弹幕)")

	cleaned, err := file.ReadCSV(res.Output, "")
	require.NoError(t, err)
	assert.Equal(t, 5, cleaned.Nrow())
	for _, col := range []string{"danmu_infos", "content", "time", "mode_name", "fontsize_name", "color_hex", "datetime"} {
		assert.Contains(t, cleaned.Names(), col)
	}
	assert.Equal(t, "顶端弹幕", cleaned.Col(processor.ColModeName).Elem(2).String())
	assert.Equal(t, "未知", cleaned.Col(processor.ColModeName).Elem(3).String())
	assert.Equal(t, "2021-01-01 08:00:00", cleaned.Col(processor.ColDatetime).Elem(0).String())

	// 只分析清洗后的文件得到相同的分段
	again, err := p.AnalyzeFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, res.Analysis.Distribution.Counts(), again.Analysis.Distribution.Counts())
	assert.Empty(t, again.Output)
}

func TestRunXLSXWithoutCharts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "danmu.csv")
	require.NoError(t, os.WriteFile(input, []byte(rawCSV), 0644))

	p, _ := newTestPipeline(t, "")
	output := filepath.Join(dir, "out", "cleaned.xlsx")
	res, err := p.Run(input, output)
	require.NoError(t, err)
	assert.Empty(t, res.Charts)

	df, err := file.ReadXLSX(output, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, df.Nrow())
	assert.Equal(t, "#FFFFFF", df.Col(processor.ColColorHex).Elem(0).String())
}

func TestRunHugeTimeKeepsCleanedOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "danmu.csv")
	body := "danmu_infos\n\"1,1,25,0,1609459200,0,a,1\"\n\"1e300,1,25,0,1609459200,0,u,7\"\n"
	require.NoError(t, os.WriteFile(input, []byte(body), 0644))

	p, _ := newTestPipeline(t, filepath.Join(dir, "charts"))
	_, err := p.Run(input, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, processor.ErrTooManyBuckets)

	// 清洗结果在分析前已经保存
	_, err = os.Stat(filepath.Join(dir, "cleaned_danmu.csv"))
	assert.NoError(t, err)
}

func TestRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(input, []byte("content\nhello\n"), 0644))

	p, _ := newTestPipeline(t, "")
	_, err := p.Run(input, "")
	assert.Error(t, err)

	_, err = p.Run(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 30.0, opts.Analyze.BucketWidth)
	assert.Equal(t, 8*time.Hour, opts.TimezoneOffset)
	assert.Equal(t, filepath.Join("data", "charts"), opts.ChartDir)
	assert.Equal(t, "data/cleaned_danmu.csv", filepath.ToSlash(OutputFor("data/danmu.csv")))
	assert.Equal(t, report.TimeDistributionChart, "time_distribution.png")
}
