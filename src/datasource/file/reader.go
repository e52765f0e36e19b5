// reader.go
package file

import (
	"fmt"
	"io"
	"os"
	"strings"

	"DanmuAnalysis/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// naValues 读取时视为缺失值的单元格内容
var naValues = []string{"", "NA", "NaN", "<nil>"}

// ReadOptions 读取表格文件的选项
type ReadOptions struct {
	SheetName string // xlsx工作表名，为空时取第一个工作表
	HeaderRow int    // xlsx标题行下标
	Encoding  string // csv编码: utf-8 / gbk / gb18030
}

// ReadTable 按扩展名读取xlsx或csv，所有列按字符串读取，空单元格为缺失值
func ReadTable(filePath string, opts ReadOptions) (dataframe.DataFrame, error) {
	switch utils.Ext(filePath) {
	case ".xlsx":
		return ReadXLSX(filePath, opts.SheetName, opts.HeaderRow)
	case ".csv":
		return ReadCSV(filePath, opts.Encoding)
	default:
		return dataframe.New(), fmt.Errorf("不支持的文件类型: %s", filePath)
	}
}

func ReadXLSX(filePath, sheetName string, headerRow int) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开xlsx文件失败: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在: %s", sheetName, filePath)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet, headerRow)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet, headerRow int) (dataframe.DataFrame, error) {
	if headerRow < 0 || len(sheet.Rows) <= headerRow || sheet.Rows[headerRow] == nil {
		return dataframe.New(), fmt.Errorf("工作表 %s 没有第%d行标题", sheet.Name, headerRow+1)
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[headerRow].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	// 去掉末尾的空标题
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return dataframe.New(), fmt.Errorf("工作表 %s 标题行为空", sheet.Name)
	}

	// 准备数据列
	columns := make([][]interface{}, len(headers))
	for i := range columns {
		columns[i] = make([]interface{}, 0, len(sheet.Rows)-headerRow-1)
	}

	// 填充数据(标题行之后)，单元格不足时补空值
	for _, row := range sheet.Rows[headerRow+1:] {
		if row == nil || isBlankRow(row) {
			continue
		}
		for i := range headers {
			var value interface{} // nil 即缺失值
			if i < len(row.Cells) && row.Cells[i] != nil && !utils.Contains(naValues, strings.TrimSpace(row.Cells[i].Value)) {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	// 创建Series切片
	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return df, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

func isBlankRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if cell != nil && strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// ReadCSV 读取csv文件，去掉UTF-8 BOM，gbk/gb18030文件先转码为UTF-8
func ReadCSV(filePath, encoding string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开csv文件失败: %w", err)
	}
	defer f.Close()

	r, err := decodeReader(f, encoding)
	if err != nil {
		return dataframe.New(), err
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("解析csv文件失败 %s: %w", filePath, df.Err)
	}
	return df, nil
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder()), nil
	case "gbk":
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder()), nil
	case "gb18030":
		return transform.NewReader(r, simplifiedchinese.GB18030.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("不支持的编码: %s", encoding)
	}
}
