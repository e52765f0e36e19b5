// writer.go
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"DanmuAnalysis/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// WriteTable 按扩展名保存为xlsx或csv
func WriteTable(df dataframe.DataFrame, filePath string) error {
	if err := ensureDir(filepath.Dir(filePath)); err != nil {
		return err
	}
	switch utils.Ext(filePath) {
	case ".xlsx":
		return SaveToExcel(df, filePath)
	case ".csv":
		return SaveToCSV(df, filePath)
	default:
		return fmt.Errorf("不支持的输出文件类型: %s", filePath)
	}
}

// SaveToExcel 将DataFrame保存为Excel文件，空值写为空单元格
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("写入列名失败: %w", err)
		}
	}

	cols := make([]series.Series, len(colNames))
	for i, name := range colNames {
		cols[i] = df.Col(name)
	}

	// 写入数据
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, col := range cols {
			elem := col.Elem(rowIdx)
			if elem.IsNA() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, col.Val(rowIdx)); err != nil {
				return fmt.Errorf("写入单元格 %s 失败: %w", cell, err)
			}
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// SaveToCSV 将DataFrame保存为csv文件
func SaveToCSV(df dataframe.DataFrame, filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("创建csv文件失败: %w", err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("写入csv文件失败: %w", err)
	}
	return f.Close()
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if dirPath == "" || dirPath == "." {
		return nil
	}
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}
