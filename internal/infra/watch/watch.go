package watch

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Notifier 用 fsnotify 监听单个目录（不递归），把“有新内容”合并成一个唤醒信号。
//
// 它只负责缩短两次轮询之间的等待；真正的文件列表永远以轮询结果为准，
// 所以丢事件、重复事件都不会影响正确性。
type Notifier struct {
	w      *fsnotify.Watcher
	wake   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New 开始监听 dir。logger 为 nil 时不记录 fsnotify 错误。
func New(dir string, logger *zap.Logger) (*Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("监听目录 %q 失败：%w", dir, err)
	}

	n := &Notifier{
		w:      w,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("dir", dir)),
	}
	n.wg.Add(1)
	go n.forward()
	return n, nil
}

// Wake 返回唤醒信号通道。容量为 1：多次事件在被消费前只保留一个信号。
func (n *Notifier) Wake() <-chan struct{} {
	return n.wake
}

// Close 停止监听；可重复调用。
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		err = n.w.Close()
		n.wg.Wait()
	})
	return err
}

func (n *Notifier) forward() {
	defer n.wg.Done()
	for {
		select {
		case ev, ok := <-n.w.Events:
			if !ok {
				return
			}
			// Remove/Rename 多半是移动循环自己造成的，不需要唤醒。
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Chmod) {
				continue
			}
			n.logger.Debug("source changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			n.signal()
		case err, ok := <-n.w.Errors:
			if !ok {
				return
			}
			n.logger.Warn("watch error", zap.Error(err))
		case <-n.done:
			return
		}
	}
}

func (n *Notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}
