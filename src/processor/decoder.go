// decoder.go
package processor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-gota/gota/series"
)

// danmu_infos 中的字段数量
const danmuFieldCount = 8

// 解码后新增的列名，顺序与 danmu_infos 中的字段一致
const (
	ColInfos     = "danmu_infos"
	ColTime      = "time"
	ColMode      = "mode"
	ColFontSize  = "fontsize"
	ColColor     = "color"
	ColTimestamp = "timestamp"
	ColPool      = "danmu_pool"
	ColSenderID  = "sender_id"
	ColRowID     = "row_id"
)

// DecodedColumns 按顺序列出解码产生的八列
var DecodedColumns = []string{
	ColTime, ColMode, ColFontSize, ColColor, ColTimestamp, ColPool, ColSenderID, ColRowID,
}

var (
	// ErrMissingInput 待解析的值缺失或不是字符串
	ErrMissingInput = errors.New("弹幕信息缺失或不是文本")
	// ErrMalformedRecord 字段不足或字段类型转换失败
	ErrMalformedRecord = errors.New("弹幕信息格式错误")
	// ErrShortRecord 字段数不足，同时满足 errors.Is(err, ErrMalformedRecord)
	ErrShortRecord = errors.New("字段数不足")
)

// DanmuFields 一条弹幕解码后的全部字段，只有八个字段都解析成功才会构造
type DanmuFields struct {
	Time      float64 // 弹幕在视频中出现的时间(秒)
	Mode      int     // 弹幕模式
	FontSize  int     // 字号
	Color     int     // 十进制RGB颜色
	Timestamp int64   // 发送时间(Unix秒, UTC)
	Pool      int     // 弹幕池
	SenderID  string  // 发送者ID，保持原样
	RowID     int64   // 弹幕rowID
}

// ParseDanmuInfo 解析一条 danmu_infos
// 返回错误时 DanmuFields 为零值，调用方不应使用
func ParseDanmuInfo(v any) (DanmuFields, error) {
	raw, ok := textValue(v)
	if !ok {
		return DanmuFields{}, ErrMissingInput
	}

	// 空白字符视为噪声，不作为分隔符
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	parts := strings.Split(cleaned, ",")
	if len(parts) < danmuFieldCount {
		return DanmuFields{}, fmt.Errorf("%w: %w %d 少于 %d", ErrMalformedRecord, ErrShortRecord, len(parts), danmuFieldCount)
	}

	p := fieldParser{parts: parts}
	f := DanmuFields{
		Time:      p.parseFloat(0),
		Mode:      p.parseInt(1),
		FontSize:  p.parseInt(2),
		Color:     p.parseInt(3),
		Timestamp: p.parseInt64(4),
		Pool:      p.parseInt(5),
		SenderID:  parts[6],
		RowID:     p.parseInt64(7),
	}
	if p.err != nil {
		return DanmuFields{}, fmt.Errorf("%w: %v", ErrMalformedRecord, p.err)
	}
	return f, nil
}

// textValue 取出可解析的文本，非文本或缺失值返回false
func textValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case *string:
		if val == nil {
			return "", false
		}
		return *val, true
	case series.Element:
		if val.IsNA() || val.Type() != series.String {
			return "", false
		}
		return val.String(), true
	default:
		return "", false
	}
}

// fieldParser 按位置转换字段，只记录第一个错误
type fieldParser struct {
	parts []string
	err   error
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("第%d个字段 %q: %w", i+1, p.parts[i], err)
	}
}

func (p *fieldParser) parseFloat(i int) float64 {
	v, err := strconv.ParseFloat(p.parts[i], 64)
	if err != nil {
		p.fail(i, err)
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(i, errors.New("非有限数值"))
		return 0
	}
	return v
}

func (p *fieldParser) parseInt(i int) int {
	v, err := strconv.Atoi(p.parts[i])
	if err != nil {
		p.fail(i, err)
		return 0
	}
	return v
}

func (p *fieldParser) parseInt64(i int) int64 {
	v, err := strconv.ParseInt(p.parts[i], 10, 64)
	if err != nil {
		p.fail(i, err)
		return 0
	}
	return v
}
