package utils

import (
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// Ext 返回小写的文件扩展名
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsTableFile 判断是否为支持的表格文件
func IsTableFile(path string) bool {
	return Contains([]string{".xlsx", ".csv"}, Ext(path))
}

// CleanedName 生成清洗后文件名: cleaned_<原文件名>
func CleanedName(dir, input, ext string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, "cleaned_"+base+ext)
}
