// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"DanmuAnalysis/src/utils"
)

// ====================== 邮件处理器实现 ======================

// AttachmentHandler 保存目标邮件中的弹幕导出附件(.xlsx/.csv)
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
	logger        Logger
}

func NewAttachmentHandler(subject, dataDir string, logger Logger) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
		logger:        logger,
	}
}

// IsProcessed 检查邮件是否已处理过
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存邮件中的表格附件，返回保存后的文件路径
// 已处理或主题不匹配的邮件返回nil
func (h *AttachmentHandler) Handle(e *Email) ([]string, error) {
	if h.IsProcessed(e.UID) {
		return nil, nil
	}

	if !strings.Contains(e.Subject, h.TargetSubject) {
		h.logger.Info(fmt.Sprintf("跳过主题不匹配的邮件: %s", e.Subject))
		return nil, nil
	}

	h.logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		e.Subject, e.From, e.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, attachment := range SelectTableAttachments(e.Attachments) {
		// 去掉附件名中的目录部分
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.logger.Info(fmt.Sprintf("附件已保存到: %s", filePath))
		saved = append(saved, filePath)
	}

	if len(saved) > 0 {
		h.markAsProcessed(e.UID)
	}
	return saved, nil
}

// SelectTableAttachments 选出弹幕导出附件，已清洗过的文件不选
func SelectTableAttachments(attachments []*Attachment) []*Attachment {
	var selected []*Attachment
	for _, a := range attachments {
		name := strings.ToLower(filepath.Base(a.Filename))
		if strings.HasPrefix(name, "cleaned_") {
			continue
		}
		if utils.IsTableFile(name) {
			selected = append(selected, a)
		}
	}
	return selected
}
