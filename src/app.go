package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"DanmuAnalysis/src/config"
	"DanmuAnalysis/src/datapush"
	"DanmuAnalysis/src/datasource/email"
	"DanmuAnalysis/src/datasource/file"
	"DanmuAnalysis/src/pipeline"
	"DanmuAnalysis/src/report"
	"DanmuAnalysis/src/storage"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

const (
	jsonFile     = "config.json"
	dataJsonFile = "dataconfig.json"
)

// app 命令共享的配置、日志和处理流程
type app struct {
	cfg      *config.Config
	logger   *storage.Logger
	pipeline *pipeline.Pipeline
	robot    *datapush.Robot
	sender   *email.SMTPSender
}

func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) *app {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline.New(pipeline.OptionsFromConfig(cfg), config.NewTables(dcfg), logger),
	}
	if cfg.DingTalk.Webhook != "" {
		a.robot = datapush.NewRobot(cfg.DingTalk.Webhook, cfg.DingTalk.Secret)
	}
	if cfg.SendEmail.Server != "" && len(cfg.SendEmail.To) > 0 {
		a.sender = email.NewSMTPSender(cfg.SendEmail.Server, cfg.SendEmail.Username,
			cfg.SendEmail.Password, cfg.SendEmail.To, logger)
	}
	return a
}

// runCommand 执行子命令，出错时记FATAL，无论成败都关闭日志文件
func runCommand(a *app, fn func(*app) error) error {
	defer a.logger.Close()
	if err := fn(a); err != nil {
		a.logger.Fatal(err.Error())
		return err
	}
	return nil
}

// loadFont 注册图表中文字体，未配置时图表中的中文标签无法正常显示
func loadFont(path string, logger *storage.Logger) {
	if path == "" {
		logger.Info("未配置 font_path，图表使用默认字体，中文标签需要在 config.json 中配置中文字体(ttf/otf)")
		return
	}
	if err := report.LoadFont(path); err != nil {
		logger.Warning(fmt.Sprintf("加载中文字体失败，使用默认字体: %v", err))
	}
}

func newRootCmd() *cobra.Command {
	var (
		configDir string
		input     string
		output    string
		logLevel  string
		a         *app
	)

	root := &cobra.Command{
		Use:           "danmu",
		Short:         "弹幕数据清洗与时间分布分析",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, dcfg, err := config.LoadConfig(configDir, jsonFile, dataJsonFile)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if input != "" {
				cfg.InputFile = input
			}
			if output != "" {
				cfg.OutputFile = output
			}

			level, err := storage.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger, err := storage.NewLogger(cfg.LogName)
			if err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			logger.SetLevel(level)

			loadFont(cfg.FontPath, logger)
			a = newApp(cfg, dcfg, logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configDir, "config", "./config", "配置文件目录(config.json, dataconfig.json)")
	root.PersistentFlags().StringVar(&input, "input", "", "原始弹幕文件，覆盖配置中的 input_file")
	root.PersistentFlags().StringVar(&output, "output", "", "清洗结果文件，覆盖配置中的 output_file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "日志级别: DEBUG/INFO/WARNING/ERROR/FATAL")

	wrap := func(fn func(*app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return runCommand(a, fn)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "clean",
			Short: "解码并解释 danmu_infos，导出清洗后的表格",
			RunE:  wrap((*app).clean),
		},
		&cobra.Command{
			Use:   "analyze",
			Short: "分析已清洗的表格，输出统计结果和图表",
			RunE:  wrap((*app).analyze),
		},
		&cobra.Command{
			Use:   "run",
			Short: "清洗并分析一个弹幕文件",
			RunE:  wrap((*app).run),
		},
		&cobra.Command{
			Use:   "watch",
			Short: "监控数据目录，新导出的弹幕文件自动处理",
			RunE:  wrap((*app).watch),
		},
		&cobra.Command{
			Use:   "mail",
			Short: "定时检查邮箱，处理附件中的弹幕文件并回复报告",
			RunE:  wrap((*app).mail),
		},
	)
	return root
}

func (a *app) clean() error {
	_, quality, err := a.pipeline.Clean(a.cfg.InputFile, a.cfg.OutputFile)
	if err != nil {
		return err
	}
	var b strings.Builder
	report.WriteQuality(&b, quality)
	a.logger.Info("\n" + b.String())
	a.rotate()
	return nil
}

func (a *app) analyze() error {
	res, err := a.pipeline.AnalyzeFile(a.cfg.OutputFile)
	if err != nil {
		return err
	}
	a.notify(res)
	a.rotate()
	return nil
}

func (a *app) run() error {
	res, err := a.pipeline.Run(a.cfg.InputFile, a.cfg.OutputFile)
	if err != nil {
		return err
	}
	a.notify(res)
	a.rotate()
	return nil
}

// process 处理监控或邮件收到的新文件，单个文件失败不影响后续文件
func (a *app) process(path string) {
	a.logger.Info("发现新文件: " + path)
	res, err := a.pipeline.Run(path, pipeline.OutputFor(path))
	if err != nil {
		a.logger.Error(fmt.Sprintf("处理文件失败 %s: %v", path, err))
		return
	}
	a.notify(res)
	a.rotate()
}

func (a *app) watch() error {
	monitor, err := file.NewFileMonitor(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("创建文件监控失败: %w", err)
	}
	defer monitor.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a.logger.Info(fmt.Sprintf("开始监控目录: %s，按Ctrl+C退出", a.cfg.DataDir))
	if err := monitor.Watch(ctx, a.process); err != nil {
		return fmt.Errorf("文件监控出错: %w", err)
	}
	a.logger.Info("文件监控已停止")
	return nil
}

func (a *app) mail() error {
	client := email.NewEmailClient(a.cfg.Email.Server, a.cfg.Email.Username, a.cfg.Email.Password, a.logger)
	handler := email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.DataDir, a.logger)

	interval := time.Duration(a.cfg.Email.CheckInterval)
	if interval <= 0 {
		return fmt.Errorf("邮件检查间隔必须为正数: %v", interval)
	}
	cronSpec := fmt.Sprintf("@every %s", interval.String())

	var mu sync.Mutex
	c := cron.New()
	err := c.AddFunc(cronSpec, func() {
		// 上一次检查未结束时跳过本次
		if !mu.TryLock() {
			a.logger.Warning("上一次邮件检查仍在进行，跳过本次")
			return
		}
		defer mu.Unlock()
		a.checkMail(client, handler)
	})
	if err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	c.Start()
	defer c.Stop()

	a.logger.Info(fmt.Sprintf("邮件监控服务已启动(检查间隔: %v)，按Ctrl+C退出", interval))
	<-ctx.Done()
	a.logger.Info("邮件监控服务已停止")
	return nil
}

func (a *app) checkMail(client email.MailService, handler *email.AttachmentHandler) {
	t1 := time.Now()
	newEmail, err := email.CheckAndProcessEmails(client, a.cfg.Email.TargetSubject, a.logger)
	if err != nil {
		a.logger.Error("检查处理邮件失败: " + err.Error())
		return
	}
	if newEmail == nil {
		return
	}

	files, err := handler.Handle(newEmail)
	if err != nil {
		a.logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", newEmail.UID, err))
	}
	for _, f := range files {
		a.process(f)
	}
	a.logger.Info(fmt.Sprintf("邮件处理使用时间: %v", time.Since(t1)))
}

// notify 推送文本报告到钉钉，并发送报告邮件
func (a *app) notify(res *pipeline.Result) {
	if a.robot != nil {
		if err := a.robot.SendText(res.Text); err != nil {
			a.logger.Error("钉钉推送失败: " + err.Error())
		}
	}
	if a.sender != nil {
		err := a.sender.Send(email.Report{
			Subject:     a.cfg.SendEmail.Subject,
			Body:        res.Text,
			Attachments: res.Attachments(),
		})
		if err != nil {
			a.logger.Error(err.Error())
		}
	}
}

func (a *app) rotate() {
	if err := a.logger.CheckRotate(a.cfg.LogMaxSize); err != nil {
		a.logger.Error("日志轮转失败: " + err.Error())
	}
}

// signalContext 收到SIGINT/SIGTERM时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
