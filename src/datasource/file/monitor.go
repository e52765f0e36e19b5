// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"DanmuAnalysis/src/utils"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控目录中新导出的弹幕文件
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	lastMod  map[string]time.Time
	mu       sync.Mutex
}

func NewFileMonitor(dir string) (*FileMonitor, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
		lastMod:  make(map[string]time.Time),
	}, nil
}

// Watch 阻塞监听目录，每个新文件或更新过的文件依次调用一次handler
// ctx取消或watcher关闭时返回
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !m.accept(event.Name) {
				continue
			}
			handler(event.Name)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// accept 过滤非表格文件、清洗结果和未变化的文件
func (m *FileMonitor) accept(path string) bool {
	if !IsSourceFile(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !info.ModTime().After(m.lastMod[path]) {
		return false
	}
	m.lastMod[path] = info.ModTime()
	return true
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

// IsSourceFile 判断是否为待处理的原始导出文件
// 清洗结果(cleaned_前缀)和Excel临时文件(~$前缀)不处理
func IsSourceFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, "cleaned_") || strings.HasPrefix(name, "~$") {
		return false
	}
	return utils.IsTableFile(name)
}
