package processor

import (
	"fmt"
	"time"

	"DanmuAnalysis/src/config"
)

// 解释性列
const (
	ColModeName     = "mode_name"
	ColFontSizeName = "fontsize_name"
	ColColorHex     = "color_hex"
	ColDatetime     = "datetime"
)

// DatetimeLayout datetime 列的格式
const DatetimeLayout = "2006-01-02 15:04:05"

// maxColor 24位RGB的最大值
const maxColor = 0xFFFFFF

// Enricher 把编码值转换为可读的描述，所有方法都不会失败
type Enricher struct {
	tables config.Tables
	offset time.Duration
}

// NewEnricher offset 为发送时间相对UTC的固定偏移
func NewEnricher(tables config.Tables, offset time.Duration) Enricher {
	return Enricher{tables: tables, offset: offset}
}

func (e Enricher) ModeName(mode int) string { return e.tables.ModeName(mode) }

func (e Enricher) FontSizeName(size int) string { return e.tables.FontSizeName(size) }

// ColorHex 颜色值转为 #RRGGBB，超出24位范围时返回false
func (e Enricher) ColorHex(color int) (string, bool) {
	if color < 0 || color > maxColor {
		return "", false
	}
	return fmt.Sprintf("#%06X", color), true
}

// LocalTime 将UTC秒级时间戳加上固定偏移
func (e Enricher) LocalTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC().Add(e.offset)
}

// EnrichedFields 单条弹幕的解释性字段
type EnrichedFields struct {
	ModeName     string
	FontSizeName string
	ColorHex     string
	HasColor     bool
	Datetime     time.Time
}

// Enrich 根据解码字段生成解释性字段
func (e Enricher) Enrich(f DanmuFields) EnrichedFields {
	hex, ok := e.ColorHex(f.Color)
	return EnrichedFields{
		ModeName:     e.ModeName(f.Mode),
		FontSizeName: e.FontSizeName(f.FontSize),
		ColorHex:     hex,
		HasColor:     ok,
		Datetime:     e.LocalTime(f.Timestamp),
	}
}
