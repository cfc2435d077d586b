package mover

import (
	"time"

	"github.com/John-Robertt/filemover/internal/app/observer"
	"github.com/John-Robertt/filemover/internal/infra/fsx"
	"go.uber.org/zap"
)

// DefaultInterval 是两次轮询之间的默认等待时间。
// 有 watcher 时，新文件会提前唤醒循环，这个值只是兜底。
const DefaultInterval = 500 * time.Millisecond

// Waker 在源目录有变化时发出唤醒信号；*watch.Notifier 满足该接口。
type Waker interface {
	Wake() <-chan struct{}
	Close() error
}

// WatchFunc 为一次会话的源目录创建 Waker。每次 Start 调用一次，会话结束时 Close。
type WatchFunc func(dir string, logger *zap.Logger) (Waker, error)

type Option func(*Engine)

// WithInterval 设置轮询间隔；<=0 时使用 DefaultInterval。
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithMode 设置移动方式（fsx.ModeCopy / fsx.ModeRename）。
func WithMode(m fsx.Mode) Option {
	return func(e *Engine) {
		if m != "" {
			e.mode = m
		}
	}
}

// WithWatch 启用变化通知。创建失败时只记录 warn，退化为纯轮询。
func WithWatch(f WatchFunc) Option {
	return func(e *Engine) { e.watch = f }
}

// WithLogger 注入 logger；默认不输出日志。
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegistry 使用外部注册表（多个组件共享同一组观察者时使用）。
func WithRegistry(r *observer.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.observers = r
		}
	}
}

// WithErrorHandler 注册错误回调：每个 *TransferError 以及导致循环退出的致命错误都会回调一次。
// 回调在循环 goroutine 上同步执行。
func WithErrorHandler(f func(error)) Option {
	return func(e *Engine) { e.onError = f }
}
