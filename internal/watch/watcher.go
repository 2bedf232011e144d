package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

const eventBuffer = 100

// Watcher 监听目标文件变化
type Watcher struct {
	mu      sync.RWMutex
	enabled bool
	root    string
	targets map[string]string // 绝对路径 -> 目标路径
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	eventCh chan Event
	logger  *zap.Logger
}

// NewWatcher 创建监听器，targets 为相对于 root 的路径
func NewWatcher(root string, targets []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	w := &Watcher{
		root:    absRoot,
		targets: make(map[string]string, len(targets)),
		eventCh: make(chan Event, eventBuffer),
		logger:  logger,
	}
	for _, t := range targets {
		w.targets[filepath.Join(absRoot, t)] = t
	}
	return w, nil
}

// Start 开始监听目标所在的目录
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enabled {
		_ = w.stopInternal()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("创建文件监听失败: %w", err)
	}

	dirs := make(map[string]bool)
	for abs := range w.targets {
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return errors.Errorf("监听目录失败 %s: %w", dir, err)
		}
	}

	w.watcher = fw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.enabled = true

	go w.readLoop(w.ctx, fw)

	w.logger.Info("文件监听已启动", zap.Int("targets", len(w.targets)), zap.Int("dirs", len(dirs)))
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopInternal()
}

// stopInternal 内部停止方法（不加锁）
func (w *Watcher) stopInternal() error {
	if !w.enabled {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
		w.watcher = nil
	}
	w.enabled = false
	w.logger.Info("文件监听已停止")
	return err
}

// Events 事件通道
func (w *Watcher) Events() <-chan Event {
	return w.eventCh
}

func (w *Watcher) readLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("文件监听出错", zap.Error(err))
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			target, ok := w.targets[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			event := Event{Path: target, Op: ev.Op.String(), Timestamp: time.Now().UnixMilli()}
			select {
			case w.eventCh <- event:
				w.logger.Debug("检测到文件变化", zap.String("path", target), zap.String("op", event.Op))
			default:
				w.logger.Warn("事件队列已满，丢弃事件", zap.String("path", target))
			}
		}
	}
}
