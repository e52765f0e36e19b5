package processor

import (
	"errors"
	"fmt"
)

// Logger 处理过程中需要的日志接口，storage.Logger 满足该接口
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
}

// RowFailure 单行处理失败的诊断信息
type RowFailure struct {
	Row int    // 行下标(从0开始)
	Raw string // 原始输入
	Err error
}

// BatchResult 逐行处理的结果，Values 与输入等长，失败行为nil
type BatchResult[T any] struct {
	Values   []*T
	Failures []RowFailure
}

// Succeeded 成功行数
func (b BatchResult[T]) Succeeded() int {
	return len(b.Values) - len(b.Failures)
}

// MapRows 对每一行独立执行fn，单行失败只记录诊断信息，不影响其他行
func MapRows[S, T any](rows []S, raw func(S) string, fn func(S) (T, error), logger Logger) BatchResult[T] {
	res := BatchResult[T]{Values: make([]*T, len(rows))}
	for i, row := range rows {
		v, err := safeCall(fn, row)
		if err != nil {
			f := RowFailure{Row: i, Raw: raw(row), Err: err}
			res.Failures = append(res.Failures, f)
			logFailure(logger, f)
			continue
		}
		res.Values[i] = &v
	}
	return res
}

// safeCall 把单行处理中的panic转换为错误
func safeCall[S, T any](fn func(S) (T, error), row S) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrMalformedRecord, r)
		}
	}()
	return fn(row)
}

func logFailure(logger Logger, f RowFailure) {
	if logger == nil {
		return
	}
	if errors.Is(f.Err, ErrMissingInput) {
		logger.Debug(fmt.Sprintf("第%d行弹幕信息缺失", f.Row+1))
		return
	}
	if errors.Is(f.Err, ErrShortRecord) {
		logger.Debug(fmt.Sprintf("第%d行%v: %s", f.Row+1, f.Err, f.Raw))
		return
	}
	logger.Warning(fmt.Sprintf("解析错误: %v\n原始数据: %s", f.Err, f.Raw))
}
