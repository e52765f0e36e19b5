package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir       string `json:"data_dir"`       // 弹幕导出文件所在目录
	InputFile     string `json:"input_file"`     // 原始弹幕文件(xlsx/csv)
	SheetName     string `json:"sheet_name"`     // 工作表名，为空时取第一个工作表
	HeaderRow     int    `json:"header_row"`     // 标题行下标(从0开始)
	InputEncoding string `json:"input_encoding"` // csv文件编码: utf-8 或 gbk
	OutputFile    string `json:"output_file"`    // 清洗后数据的保存路径
	ChartDir      string `json:"chart_dir"`      // 图表输出目录
	FontPath      string `json:"font_path"`      // 中文字体(ttf)，为空时使用默认字体
	LogName       string `json:"log_name"`
	LogMaxSize    string `json:"log_max_size"`

	Analysis struct {
		BucketWidth    float64   `json:"bucket_width"`    // 时间分段宽度(秒)
		RollingWindow  int       `json:"rolling_window"`  // 滚动窗口大小(条)
		Percentiles    []float64 `json:"percentiles"`     // 累积比例标记点
		TimezoneOffset Duration  `json:"timezone_offset"` // 发送时间的固定时区偏移
		FailureSamples int       `json:"failure_samples"` // 报告中展示的解析失败样例数
	} `json:"analysis"`

	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server   string   `json:"server"`   // SMTP服务器地址
		Username string   `json:"username"` // 发件邮箱
		Password string   `json:"password"` // 授权码
		Subject  string   `json:"subject"`  // 报告邮件主题
		To       []string `json:"to"`       // 收件人
	} `json:"send_email"`

	DingTalk struct {
		Webhook string `json:"webhook"` // 机器人webhook地址
		Secret  string `json:"secret"`  // 加签密钥
	} `json:"dingtalk"`
}

// DataConfig 弹幕编码对照表
type DataConfig struct {
	Mode         map[int]string `json:"mode"`
	FontSize     map[int]string `json:"fontsize"`
	UnknownLabel string         `json:"unknown_label"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
)

// LoadConfig 只在进程内加载一次配置
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

// DefaultConfig 返回没有配置文件时使用的默认配置
func DefaultConfig() *Config {
	cfg := &Config{
		DataDir:       "data",
		InputFile:     filepath.Join("data", "danmu.xlsx"),
		InputEncoding: "utf-8",
		OutputFile:    filepath.Join("data", "cleaned_danmu.xlsx"),
		ChartDir:      filepath.Join("data", "charts"),
		LogName:       "app.log",
		LogMaxSize:    "10 * 1024 * 1024",
	}
	cfg.Analysis.BucketWidth = 30
	cfg.Analysis.RollingWindow = 30
	cfg.Analysis.Percentiles = []float64{25, 50, 75}
	cfg.Analysis.TimezoneOffset = Duration(8 * time.Hour)
	cfg.Analysis.FailureSamples = 5
	cfg.Email.CheckInterval = Duration(5 * time.Minute)
	cfg.SendEmail.Subject = "弹幕分析报告"
	return cfg
}

// DefaultDataConfig 返回内置的弹幕模式与字号对照表
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		Mode: map[int]string{
			1: "滚动弹幕",
			2: "滚动弹幕",
			3: "滚动弹幕",
			4: "底端弹幕",
			5: "顶端弹幕",
			6: "逆向弹幕",
			7: "精准定位",
			8: "高级弹幕",
		},
		FontSize: map[int]string{
			12: "非常小",
			16: "特小",
			18: "小",
			25: "中",
			36: "大",
			45: "很大",
			64: "特别大",
		},
		UnknownLabel: "未知",
	}
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

// readFile 读取配置文件，文件不存在时返回nil由调用方使用默认值
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		resultChan <- cfg
		return
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	if err := cfg.validate(); err != nil {
		errChan <- err
		return
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	if len(data) == 0 {
		resultChan <- DefaultDataConfig()
		return
	}
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	// 未配置的表沿用内置值
	def := DefaultDataConfig()
	if len(dcfg.Mode) == 0 {
		dcfg.Mode = def.Mode
	}
	if len(dcfg.FontSize) == 0 {
		dcfg.FontSize = def.FontSize
	}
	if dcfg.UnknownLabel == "" {
		dcfg.UnknownLabel = def.UnknownLabel
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func (c *Config) validate() error {
	if c.Analysis.BucketWidth <= 0 {
		return fmt.Errorf("analysis.bucket_width 必须大于0: %v", c.Analysis.BucketWidth)
	}
	if c.Analysis.RollingWindow <= 0 {
		return fmt.Errorf("analysis.rolling_window 必须大于0: %d", c.Analysis.RollingWindow)
	}
	switch c.InputEncoding {
	case "", "utf-8", "utf8", "gbk", "gb18030":
	default:
		return fmt.Errorf("不支持的input_encoding: %s", c.InputEncoding)
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
