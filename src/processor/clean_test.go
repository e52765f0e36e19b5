package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFrame() dataframe.DataFrame {
	return dataframe.LoadRecords([][]string{
		{"content", ColInfos},
		{"加油", "12.34, 1 , 25, 16777215, 1609459200, 0, user123, 987654"},
		{"打工人", "12.3,1,25"},
		{"冲", "61,4,99,255,1609459260,1,abc,2"},
	}, dataframe.DetectTypes(false))
}

func TestCleanDecodesAndEnriches(t *testing.T) {
	logger := &recordLogger{}
	c := NewCleaner(newTestEnricher(), logger, 5)

	out, report, err := c.Clean(rawFrame())
	require.NoError(t, err)
	require.Equal(t, 3, out.Nrow())

	// 原有列保持不变
	assert.Equal(t, []string{"加油", "打工人", "冲"}, out.Col("content").Records())

	assert.Equal(t, 12.34, out.Col(ColTime).Elem(0).Float())
	assert.Equal(t, "user123", out.Col(ColSenderID).Elem(0).String())
	assert.Equal(t, "滚动弹幕", out.Col(ColModeName).Elem(0).String())
	assert.Equal(t, "中", out.Col(ColFontSizeName).Elem(0).String())
	assert.Equal(t, "#FFFFFF", out.Col(ColColorHex).Elem(0).String())
	assert.Equal(t, "2021-01-01 08:00:00", out.Col(ColDatetime).Elem(0).String())

	// 解析失败的行所有解码列和解释列同时为空
	for _, name := range append(append([]string{}, DecodedColumns...), ColModeName, ColFontSizeName, ColColorHex, ColDatetime) {
		assert.True(t, out.Col(name).Elem(1).IsNA(), name)
	}

	assert.Equal(t, "底端弹幕", out.Col(ColModeName).Elem(2).String())
	assert.Equal(t, "未知", out.Col(ColFontSizeName).Elem(2).String())
	assert.Equal(t, "#0000FF", out.Col(ColColorHex).Elem(2).String())

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Decoded)
	assert.InDelta(t, 2.0/3.0, report.SuccessRatio(), 1e-9)
	assert.Equal(t, []string{"12.3,1,25"}, report.Samples)
	require.Len(t, report.FieldCounts, len(DecodedColumns))
	for _, fc := range report.FieldCounts {
		assert.Equal(t, 2, fc.NonMissing, fc.Name)
	}
	// 字段不足只记DEBUG
	assert.Empty(t, logger.warning)
	assert.Len(t, logger.debug, 1)
}

func TestCleanRejectsUnstorableSenderID(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{ColInfos},
		{"1,1,25,0,1609459200,0,NaN,7"},
		{"2,1,25,0,1609459200,0,abc,8"},
	}, dataframe.DetectTypes(false))
	logger := &recordLogger{}

	out, report, err := NewCleaner(newTestEnricher(), logger, 5).Clean(df)
	require.NoError(t, err)

	// 发送者ID写入表格后会变成缺失值，整条记录按解析失败处理
	for _, name := range DecodedColumns {
		assert.True(t, out.Col(name).Elem(0).IsNA(), name)
		assert.False(t, out.Col(name).Elem(1).IsNA(), name)
	}
	assert.Equal(t, 1, report.Decoded)
	for _, fc := range report.FieldCounts {
		assert.Equal(t, report.Decoded, fc.NonMissing, fc.Name)
	}
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, ErrMalformedRecord)
	assert.Len(t, logger.warning, 1)
}

func TestEnrichIsIdempotent(t *testing.T) {
	c := NewCleaner(newTestEnricher(), nil, 0)
	once, _, err := c.Clean(rawFrame())
	require.NoError(t, err)

	twice, err := c.Enrich(once)
	require.NoError(t, err)

	assert.Equal(t, once.Names(), twice.Names())
	for _, name := range []string{ColModeName, ColFontSizeName, ColColorHex, ColDatetime} {
		assert.Equal(t, once.Col(name).Records(), twice.Col(name).Records(), name)
	}
}

func TestEnrichFromStringColumns(t *testing.T) {
	// 从导出文件读回的表所有列都是字符串
	df := dataframe.LoadRecords([][]string{
		{ColMode, ColFontSize, ColColor, ColTimestamp},
		{"5", "36", "16711680", "1609459200"},
		{"", "", "", ""},
	}, dataframe.DetectTypes(false))

	out, err := NewCleaner(newTestEnricher(), nil, 0).Enrich(df)
	require.NoError(t, err)
	assert.Equal(t, "顶端弹幕", out.Col(ColModeName).Elem(0).String())
	assert.Equal(t, "大", out.Col(ColFontSizeName).Elem(0).String())
	assert.Equal(t, "#FF0000", out.Col(ColColorHex).Elem(0).String())
	assert.True(t, out.Col(ColModeName).Elem(1).IsNA())
	assert.True(t, out.Col(ColDatetime).Elem(1).IsNA())
}

func TestCleanRequiresInfosColumn(t *testing.T) {
	df := dataframe.LoadRecords([][]string{{"content"}, {"x"}})
	_, _, err := NewCleaner(newTestEnricher(), nil, 0).Clean(df)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ColInfos)
}

func TestDatasetFromFrame(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{ColTime, ColModeName},
		{"1.5", "滚动弹幕"},
		{"NaN", "滚动弹幕"},
		{"", ""},
		{"30", "顶端弹幕"},
	}, dataframe.DetectTypes(false))

	ds, err := DatasetFromFrame(df)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 30}, ds.Times)
	assert.Equal(t, []string{"滚动弹幕", "顶端弹幕"}, ds.ModeNames)

	_, err = DatasetFromFrame(dataframe.LoadRecords([][]string{{"a"}, {"1"}}))
	assert.Error(t, err)
}
