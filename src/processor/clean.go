// clean.go
package processor

import (
	"fmt"
	"math"

	"DanmuAnalysis/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Cleaner 对原始弹幕表进行解码与解释
type Cleaner struct {
	enricher Enricher
	logger   Logger
	samples  int // 质量报告中保留的失败样例数
}

func NewCleaner(enricher Enricher, logger Logger, samples int) *Cleaner {
	if samples < 0 {
		samples = 0
	}
	return &Cleaner{enricher: enricher, logger: logger, samples: samples}
}

// Clean 解码 danmu_infos 并追加解释列，原有列保持不变
func (c *Cleaner) Clean(df dataframe.DataFrame) (dataframe.DataFrame, QualityReport, error) {
	decoded, res, err := c.Decode(df)
	if err != nil {
		return df, QualityReport{}, err
	}

	enriched, err := c.Enrich(decoded)
	if err != nil {
		return df, QualityReport{}, err
	}

	return enriched, BuildQualityReport(enriched, res, c.samples), nil
}

// Decode 逐行解析 danmu_infos，失败行的八个字段同时为空
func (c *Cleaner) Decode(df dataframe.DataFrame) (dataframe.DataFrame, BatchResult[DanmuFields], error) {
	if !utils.HasColumn(df, ColInfos) {
		return df, BatchResult[DanmuFields]{}, errMissingColumn(ColInfos)
	}

	col := df.Col(ColInfos)
	elems := make([]series.Element, col.Len())
	for i := range elems {
		elems[i] = col.Elem(i)
	}

	res := MapRows(elems,
		func(e series.Element) string { return e.String() },
		decodeCell,
		c.logger,
	)

	n := len(res.Values)
	times := make([]interface{}, n)
	modes := make([]interface{}, n)
	sizes := make([]interface{}, n)
	colors := make([]interface{}, n)
	stamps := make([]interface{}, n)
	pools := make([]interface{}, n)
	senders := make([]interface{}, n)
	rowIDs := make([]interface{}, n)

	for i, f := range res.Values {
		if f == nil {
			continue // nil 在 gota 中即为 NaN
		}
		times[i] = f.Time
		modes[i] = f.Mode
		sizes[i] = f.FontSize
		colors[i] = f.Color
		stamps[i] = int(f.Timestamp)
		pools[i] = f.Pool
		senders[i] = f.SenderID
		rowIDs[i] = int(f.RowID)
	}

	out := df.Mutate(series.New(times, series.Float, ColTime)).
		Mutate(series.New(modes, series.Int, ColMode)).
		Mutate(series.New(sizes, series.Int, ColFontSize)).
		Mutate(series.New(colors, series.Int, ColColor)).
		Mutate(series.New(stamps, series.Int, ColTimestamp)).
		Mutate(series.New(pools, series.Int, ColPool)).
		Mutate(series.New(senders, series.String, ColSenderID)).
		Mutate(series.New(rowIDs, series.Int, ColRowID))
	if out.Err != nil {
		return df, res, fmt.Errorf("追加解码列失败: %w", out.Err)
	}
	return out, res, nil
}

// Enrich 由 mode/fontsize/color/timestamp 列重新推导解释列
// 已存在的解释列会被覆盖，重复执行结果一致
func (c *Cleaner) Enrich(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, name := range []string{ColMode, ColFontSize, ColColor, ColTimestamp} {
		if !utils.HasColumn(df, name) {
			return df, fmt.Errorf("数据中缺少 %s 列，请先解码", name)
		}
	}

	n := df.Nrow()
	modeCol, sizeCol := df.Col(ColMode), df.Col(ColFontSize)
	colorCol, stampCol := df.Col(ColColor), df.Col(ColTimestamp)

	modeNames := make([]interface{}, n)
	sizeNames := make([]interface{}, n)
	hexes := make([]interface{}, n)
	datetimes := make([]interface{}, n)

	for i := 0; i < n; i++ {
		if v, ok := intValue(modeCol.Elem(i)); ok {
			modeNames[i] = c.enricher.ModeName(v)
		}
		if v, ok := intValue(sizeCol.Elem(i)); ok {
			sizeNames[i] = c.enricher.FontSizeName(v)
		}
		if v, ok := intValue(colorCol.Elem(i)); ok {
			if hex, ok := c.enricher.ColorHex(v); ok {
				hexes[i] = hex
			}
		}
		if v, ok := intValue(stampCol.Elem(i)); ok {
			datetimes[i] = c.enricher.LocalTime(int64(v)).Format(DatetimeLayout)
		}
	}

	out := df.Mutate(series.New(modeNames, series.String, ColModeName)).
		Mutate(series.New(sizeNames, series.String, ColFontSizeName)).
		Mutate(series.New(datetimes, series.String, ColDatetime)).
		Mutate(series.New(hexes, series.String, ColColorHex))
	if out.Err != nil {
		return df, fmt.Errorf("追加解释列失败: %w", out.Err)
	}
	return out, nil
}

// intValue 读取整数单元格，兼容字符串列和浮点列
func intValue(e series.Element) (int, bool) {
	if e == nil || e.IsNA() {
		return 0, false
	}
	if v, err := e.Int(); err == nil && e.Type() != series.Float {
		return v, true
	}
	f := e.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

// gota 的字符串列会把 "NaN" 当作缺失值
const naString = "NaN"

// decodeCell 解析一个单元格，表格中无法保存的字段按解析失败处理，
// 保证解码列要么全部有值要么全部缺失
func decodeCell(e series.Element) (DanmuFields, error) {
	f, err := ParseDanmuInfo(e)
	if err != nil {
		return f, err
	}
	if f.SenderID == naString {
		return DanmuFields{}, fmt.Errorf("%w: 发送者ID %q 无法写入表格", ErrMalformedRecord, f.SenderID)
	}
	return f, nil
}

func errMissingColumn(name string) error {
	return fmt.Errorf("数据中缺少 %s 列", name)
}
