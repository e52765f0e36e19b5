// client.go
package email

import (
	// 标准库导入
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	// 第三方库导入
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/jordan-wright/email"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

/******************** 常量定义 ********************/
const (
	MaxFetchMessages   = 100            // 单次最大获取邮件数量，防止内存溢出
	FetchBufferSize    = 10             // 邮件获取通道缓冲区大小
	RecentMailDuration = 24 * time.Hour // 判定为"新邮件"的时间范围
	DefaultSMTPPort    = "465"
)

/******************** 接口定义 ********************/

// MailService 邮件服务核心接口
type MailService interface {
	// Connect 建立与邮件服务器的连接
	Connect() error

	// Disconnect 安全断开与邮件服务器的连接
	Disconnect()

	// FetchUnreadEmails 获取未读邮件列表
	FetchUnreadEmails() ([]*Email, error)
}

// Logger 邮件处理需要的日志接口，storage.Logger 满足该接口
type Logger interface {
	Info(msg string)
	Warning(msg string)
}

/******************** 数据结构 ********************/

// Email 邮件基础数据结构
type Email struct {
	UID         uint32        // 邮件唯一标识符(IMAP UID)
	Date        time.Time     // 邮件发送时间
	From        string        // 发件人信息(已解码)
	Subject     string        // 邮件主题(已解码)
	Attachments []*Attachment // 邮件附件列表
}

// Attachment 邮件附件数据结构
type Attachment struct {
	Filename string // 附件文件名(已解码)
	Content  []byte // 附件二进制内容
}

/******************** 邮件客户端实现 ********************/

// EmailClient IMAP邮件客户端实现
type EmailClient struct {
	server    string         // IMAP服务器地址(包含端口)
	username  string         // 登录用户名
	password  string         // 登录密码/授权码
	client    *client.Client // IMAP客户端实例
	logger    Logger
	mu        sync.Mutex // 线程安全锁
	connected bool       // 连接状态标记
}

// NewEmailClient 创建邮件客户端实例
// server 形如 "imap.qq.com:993"
func NewEmailClient(server, username, password string, logger Logger) *EmailClient {
	return &EmailClient{
		server:   server,
		username: username,
		password: password,
		logger:   logger,
	}
}

// Connect 建立TLS连接并登录，已有连接有效时直接复用
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 连接有效性检查
	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		// 连接已失效则重置
		s.client.Logout()
		s.client = nil
		s.connected = false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	// 登录认证
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	s.client = c
	s.connected = true
	return nil
}

// Disconnect 安全断开连接
func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchUnreadEmails 获取INBOX中24小时内的未读邮件
func (s *EmailClient) FetchUnreadEmails() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("未连接到邮件服务器")
	}

	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("选择邮箱失败: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// 限制获取数量，保留最新的部分
	if len(ids) > MaxFetchMessages {
		ids = ids[len(ids)-MaxFetchMessages:]
	}

	return s.fetchMessages(ids)
}

// fetchMessages 获取指定ID的邮件内容
func (s *EmailClient) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)

	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			s.warn(fmt.Sprintf("邮件(UID:%d)正文为空", msg.Uid))
			continue
		}
		e, err := ParseMessage(r, s.logger)
		if err != nil {
			s.warn(fmt.Sprintf("解析邮件失败: %v", err))
			continue
		}
		e.UID = msg.Uid
		emails = append(emails, e)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}

	return emails, nil
}

func (s *EmailClient) warn(msg string) {
	if s.logger != nil {
		s.logger.Warning(msg)
	}
}

/******************** 邮件解析相关 ********************/

// ParseMessage 解析一封RFC 5322邮件的头信息和附件
func ParseMessage(r io.Reader, logger Logger) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}

	header := mr.Header
	date, _ := header.Date() // 日期解析错误不影响后续处理

	e := &Email{
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if logger != nil {
				logger.Warning(fmt.Sprintf("跳过无法解析的邮件部分: %v", err))
			}
			break
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		if err := parseAttachment(h, p.Body, e); err != nil && logger != nil {
			logger.Warning(fmt.Sprintf("解析附件失败: %v", err))
		}
	}
	return e, nil
}

// parseAttachment 解析单个附件
func parseAttachment(h *mail.AttachmentHeader, body io.Reader, e *Email) error {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		return fmt.Errorf("无效的附件名")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("读取附件内容失败: %w", err)
	}

	e.Attachments = append(e.Attachments, &Attachment{
		Filename: decodeHeader(filename),
		Content:  buf.Bytes(),
	})
	return nil
}

/******************** 工具函数 ********************/

// decodeHeader 解码邮件头特殊编码
// 支持格式: =?charset?encoding?encoded-text?=
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}

	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader 支持GBK/GB2312/GB18030转UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "gbk", "gb2312":
		return transform.NewReader(input, simplifiedchinese.GBK.NewDecoder()), nil
	case "gb18030":
		return transform.NewReader(input, simplifiedchinese.GB18030.NewDecoder()), nil
	default:
		return input, nil
	}
}

/******************** 业务逻辑函数 ********************/

// CheckAndProcessEmails 检查邮箱，返回主题包含keyword的最新邮件，没有时返回nil
func CheckAndProcessEmails(mailService MailService, keyword string, logger Logger) (*Email, error) {
	startTime := time.Now()
	logger.Info("开始检查邮箱...")

	if err := mailService.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer mailService.Disconnect()

	emails, err := mailService.FetchUnreadEmails()
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}

	if len(emails) == 0 {
		logger.Info("没有新邮件")
		return nil, nil
	}

	targetEmail := filterLatestTargetEmail(emails, keyword)
	if targetEmail == nil {
		logger.Info("没有目标邮件")
		return nil, nil
	}

	logger.Info(fmt.Sprintf("检查完成，耗时: %v", time.Since(startTime)))
	return targetEmail, nil
}

// filterLatestTargetEmail 返回主题包含keyword的最新邮件
func filterLatestTargetEmail(emails []*Email, keyword string) *Email {
	var targetEmails []*Email
	for _, e := range emails {
		if strings.Contains(e.Subject, keyword) {
			targetEmails = append(targetEmails, e)
		}
	}

	if len(targetEmails) == 0 {
		return nil
	}

	// 按日期降序排序
	sort.SliceStable(targetEmails, func(i, j int) bool {
		return targetEmails[i].Date.After(targetEmails[j].Date)
	})

	return targetEmails[0]
}

/******************** 报告邮件 ********************/

// Report 分析报告邮件
type Report struct {
	Subject     string
	Body        string
	Attachments []string // 清洗结果和图表文件
}

// SMTPSender 通过SMTP(SSL)发送报告邮件
type SMTPSender struct {
	Server   string
	Username string
	Password string
	To       []string
	logger   Logger
}

func NewSMTPSender(server, username, password string, to []string, logger Logger) *SMTPSender {
	return &SMTPSender{
		Server:   server,
		Username: username,
		Password: password,
		To:       to,
		logger:   logger,
	}
}

// BuildMessage 组装报告邮件，不存在的附件跳过
func (s *SMTPSender) BuildMessage(r Report) *email.Email {
	e := email.NewEmail()
	e.From = fmt.Sprintf("弹幕分析 <%s>", s.Username)
	e.To = s.To
	e.Subject = r.Subject
	e.Text = []byte(r.Body)

	for _, path := range r.Attachments {
		if _, err := os.Stat(path); err != nil {
			s.logger.Warning(fmt.Sprintf("附件文件不存在: %s", path))
			continue
		}
		if _, err := e.AttachFile(path); err != nil {
			s.logger.Warning(fmt.Sprintf("附件添加失败 %s: %v", filepath.Base(path), err))
		}
	}
	return e
}

// Send 发送报告邮件
func (s *SMTPSender) Send(r Report) error {
	if len(s.To) == 0 {
		return fmt.Errorf("未配置报告收件人")
	}

	// 确保服务器地址包含端口
	smtpAddr := s.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":" + DefaultSMTPPort
	}
	host := strings.Split(smtpAddr, ":")[0]

	e := s.BuildMessage(r)
	err := e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", s.Username, s.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, smtpAddr)
	}
	s.logger.Info("报告邮件发送成功")
	return nil
}
