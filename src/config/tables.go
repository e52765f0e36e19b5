package config

// Tables 是只读的编码对照表，构造时复制一份映射，之后不再修改
type Tables struct {
	mode     map[int]string
	fontSize map[int]string
	unknown  string
}

// NewTables 根据数据配置构建对照表，dc为nil时使用内置表
func NewTables(dc *DataConfig) Tables {
	if dc == nil {
		dc = DefaultDataConfig()
	}
	t := Tables{
		mode:     make(map[int]string, len(dc.Mode)),
		fontSize: make(map[int]string, len(dc.FontSize)),
		unknown:  dc.UnknownLabel,
	}
	for k, v := range dc.Mode {
		t.mode[k] = v
	}
	for k, v := range dc.FontSize {
		t.fontSize[k] = v
	}
	if t.unknown == "" {
		t.unknown = DefaultDataConfig().UnknownLabel
	}
	return t
}

// ModeName 返回弹幕模式名称，未收录的编码返回未知标记
func (t Tables) ModeName(code int) string {
	if name, ok := t.mode[code]; ok {
		return name
	}
	return t.unknown
}

// FontSizeName 返回字号名称，未收录的编码返回未知标记
func (t Tables) FontSizeName(code int) string {
	if name, ok := t.fontSize[code]; ok {
		return name
	}
	return t.unknown
}

func (t Tables) UnknownLabel() string { return t.unknown }
