package datapush

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// 常量定义
const (
	RETRY_TIMES    = 3
	RETRY_INTERVAL = 2 * time.Second
	MAX_CONTENT    = 18000 // 机器人单条消息长度上限(字节)，超出截断
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// 文本消息
type textMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// Robot 钉钉群机器人
type Robot struct {
	Webhook  string
	Secret   string // 加签密钥，为空时不加签
	client   *http.Client
	interval time.Duration
	now      func() time.Time
}

func NewRobot(webhook, secret string) *Robot {
	return &Robot{
		Webhook:  webhook,
		Secret:   secret,
		client:   &http.Client{Timeout: 10 * time.Second},
		interval: RETRY_INTERVAL,
		now:      time.Now,
	}
}

// SendText 推送文本消息，失败时重试
func (r *Robot) SendText(content string) error {
	if r.Webhook == "" {
		return fmt.Errorf("未配置钉钉机器人webhook")
	}

	msg := textMessage{MsgType: "text"}
	msg.Text.Content = truncate(content, MAX_CONTENT)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %w", err)
	}

	return retry(func() error {
		return r.post(payload)
	}, RETRY_TIMES, r.interval)
}

func (r *Robot) post(payload []byte) error {
	target, err := r.signedURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", target, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("钉钉返回状态码 %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败: %s", result.ErrMsg)
	}
	return nil
}

// signedURL 按钉钉加签规则在webhook后追加timestamp和sign
func (r *Robot) signedURL() (string, error) {
	if r.Secret == "" {
		return r.Webhook, nil
	}

	u, err := url.Parse(r.Webhook)
	if err != nil {
		return "", fmt.Errorf("webhook地址无效: %w", err)
	}

	timestamp := strconv.FormatInt(r.now().UnixMilli(), 10)
	q := u.Query()
	q.Set("timestamp", timestamp)
	q.Set("sign", Sign(timestamp, r.Secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Sign 计算 base64(HmacSHA256(timestamp+"\n"+secret, secret))
func Sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// 按字节截断，不截断在多字节字符中间
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
