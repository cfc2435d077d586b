// Package mover 实现“源目录 -> 目标目录”的持续移动循环。
//
// 状态机只有两个状态：Idle（running=false）与 Moving（running=true）。
//
//	Start/Run：Idle -> Moving，通知 "File moving started"，在调用方 goroutine 上阻塞执行轮询循环
//	Stop：     Moving -> Idle，只翻转标志并唤醒循环；"File moving stopped" 由循环退出时发出
//
// 因此 started/stopped 两条消息严格包住本轮所有 "N File Moved" 消息。
// 取消是协作式的：Stop 最多等待一个正在传输的文件完成。
package mover

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/filemover/internal/app/observer"
	"github.com/John-Robertt/filemover/internal/domain"
	"github.com/John-Robertt/filemover/internal/infra/fsx"
	"github.com/John-Robertt/filemover/internal/scan"
)

// Engine 持有 source/destination 与 running 标志，并驱动移动循环。
type Engine struct {
	mu          sync.Mutex
	source      string
	destination string
	stopCh      chan struct{} // 当前会话的停止信号；Idle 时为 nil
	done        chan struct{} // 当前循环退出时关闭；没有循环时为 nil
	report      domain.SessionReport

	running atomic.Bool
	moved   atomic.Int64
	failed  atomic.Int64

	observers *observer.Registry
	interval  time.Duration
	mode      fsx.Mode
	watch     WatchFunc
	onError   func(error)
	logger    *zap.Logger

	now   func() time.Time
	newID func() string

	// 测试替换点：文件搬运的两个步骤。
	moveFile     func(src, dstDir, name string, mode fsx.Mode) error
	removeSource func(src string) error
}

// session 是一次 Run 的快照：循环只读这里的路径，不再读 Engine 的字段。
type session struct {
	src, dst string
	stop     <-chan struct{}
	done     chan struct{}
	waker    Waker

	// failing 记录“仍在失败”的文件及其最近一次错误，避免每轮轮询重复通知同一个错误。
	failing map[string]failure
}

type failure struct {
	op  string
	msg string
}

// New 创建 Idle 状态的 Engine。非空路径会先 Normalize 再检查存在性；
// 不存在时返回 *fsx.PathNotFoundError，且不会对文件系统做任何修改。
func New(source, destination string, opts ...Option) (*Engine, error) {
	e := &Engine{
		interval: DefaultInterval,
		mode:     fsx.ModeCopy,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,

		moveFile:     fsx.MoveFile,
		removeSource: fsx.RemoveSource,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.observers == nil {
		e.observers = observer.NewRegistry(e.logger)
	}

	var err error
	if e.source, err = validPath(source); err != nil {
		return nil, err
	}
	if e.destination, err = validPath(destination); err != nil {
		return nil, err
	}
	return e, nil
}

func validPath(p string) (string, error) {
	p = fsx.Normalize(p)
	if p == "" {
		return "", nil
	}
	if err := fsx.CheckPath(p); err != nil {
		return "", err
	}
	return p, nil
}

// Attach 注册观察者（允许重复，重复注册会收到重复消息）。
func (e *Engine) Attach(o observer.Observer) { e.observers.Attach(o) }

// Detach 移除第一个匹配的观察者；不存在时返回 *observer.NotFoundError。
func (e *Engine) Detach(o observer.Observer) error { return e.observers.Detach(o) }

// Notify 向所有观察者广播一条消息。
func (e *Engine) Notify(message string) { e.observers.Notify(message) }

func (e *Engine) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

func (e *Engine) Destination() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destination
}

// SetSource 修改源目录。前置条件：Engine 处于 Idle 且上一轮循环已退出，否则返回 ErrRunning。
// 空串表示清除。
func (e *Engine) SetSource(p string) error { return e.setPath(&e.source, p) }

// SetDestination 修改目标目录，约束同 SetSource。
func (e *Engine) SetDestination(p string) error { return e.setPath(&e.destination, p) }

func (e *Engine) setPath(field *string, p string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		return ErrRunning
	}
	v, err := validPath(p)
	if err != nil {
		return err
	}
	*field = v
	return nil
}

// Ready 表示 source 与 destination 都已设置（TUI 用它决定开关是否可用）。
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source != "" && e.destination != ""
}

// Running 返回当前是否处于 Moving 状态。
func (e *Engine) Running() bool { return e.running.Load() }

// MovedCount 返回本次（或最近一次）会话中已成功移动的文件数；每次 Start 归零。
func (e *Engine) MovedCount() int { return int(e.moved.Load()) }

// FailedCount 返回本次（或最近一次）会话中单文件失败的次数。
func (e *Engine) FailedCount() int { return int(e.failed.Load()) }

// Report 返回当前或最近一次会话的报告拷贝。
func (e *Engine) Report() domain.SessionReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report.Clone()
}

// Start 等价于 Run(context.Background())。
func (e *Engine) Start() error { return e.Run(context.Background()) }

// Run 让 Engine 进入 Moving 并在当前 goroutine 上执行轮询循环，直到：
//   - 另一个 goroutine 调用 Stop：返回 nil
//   - ctx 被取消：返回 ctx.Err()
//   - 源目录无法列出：返回包装后的错误
//
// 三种情况下 Engine 都会回到 Idle，并在最后通知 "File moving stopped"。
func (e *Engine) Run(ctx context.Context) error {
	s, err := e.begin()
	if err != nil {
		return err
	}
	return e.run(ctx, s)
}

// Go 在新 goroutine 上执行 Run，返回的通道会收到 Run 的结果。
// 状态切换在 Go 返回前已完成：Go 返回后立刻 Stop 也一定生效。
func (e *Engine) Go(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	s, err := e.begin()
	if err != nil {
		errc <- err
		return errc
	}
	go func() { errc <- e.run(ctx, s) }()
	return errc
}

// Stop 请求退出循环：Moving -> Idle。
//
// Stop 不等待循环退出（需要时调用 Wait）；返回后 Running() 一定为 false。
// 对 Idle 的 Engine 调用 Stop 是无副作用的空操作，返回 false，也不会发出任何通知。
func (e *Engine) Stop() bool {
	if !e.running.CompareAndSwap(true, false) {
		return false
	}
	e.mu.Lock()
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.mu.Unlock()
	e.logger.Info("stop requested")
	return true
}

// Wait 阻塞直到当前循环（如果有）退出。
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) begin() (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		return nil, ErrAlreadyRunning
	}
	if e.source == "" || e.destination == "" {
		return nil, ErrPathsUnset
	}
	if fsx.SamePath(e.source, e.destination) {
		return nil, ErrSamePath
	}

	stop := make(chan struct{})
	s := &session{
		src:     e.source,
		dst:     e.destination,
		stop:    stop,
		done:    make(chan struct{}),
		failing: make(map[string]failure),
	}
	e.stopCh = stop
	e.done = s.done
	e.report = domain.SessionReport{
		ID:          e.newID(),
		Source:      s.src,
		Destination: s.dst,
		Mode:        string(e.mode),
		StartedAt:   e.now(),
		Files:       []domain.FileResult{},
	}
	e.moved.Store(0)
	e.failed.Store(0)
	e.running.Store(true)
	return s, nil
}

func (e *Engine) run(ctx context.Context, s *session) error {
	log := e.logger.With(zap.String("source", s.src), zap.String("destination", s.dst))
	log.Info("file moving started", zap.String("mode", string(e.mode)), zap.Duration("interval", e.interval))
	e.observers.Notify(domain.MsgStarted)

	if e.watch != nil {
		w, err := e.watch(s.src, e.logger)
		if err != nil {
			log.Warn("watch unavailable, polling only", zap.Error(err))
		} else {
			s.waker = w
		}
	}

	err := e.loop(ctx, s)

	if s.waker != nil {
		_ = s.waker.Close()
	}

	e.mu.Lock()
	e.running.Store(false)
	e.stopCh = nil
	e.report.FinishedAt = e.now()
	e.report.Finalize()
	e.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		log.Error("file moving aborted", zap.Error(err))
		e.reportError(err)
		e.observers.Notify(domain.AbortedMessage(err))
	}
	log.Info("file moving stopped", zap.Int("moved", e.MovedCount()), zap.Int("failed", e.FailedCount()))
	e.observers.Notify(domain.MsgStopped)

	e.mu.Lock()
	e.done = nil
	e.mu.Unlock()
	close(s.done)
	return err
}

func (e *Engine) loop(ctx context.Context, s *session) error {
	for e.running.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}

		files, err := scan.Files(s.src)
		if err != nil {
			return fmt.Errorf("列出源目录 %q 失败：%w", s.src, err)
		}

		moved := 0
		for _, f := range files {
			// 文件之间检查一次：Stop 最多等待一个正在传输的文件。
			if !e.running.Load() || ctx.Err() != nil {
				break
			}
			if e.transfer(f, s) {
				moved++
			}
		}

		// 本轮有进展就立刻再列一次；否则等到下一次唤醒/超时。
		if moved == 0 {
			e.wait(ctx, s)
		}
	}
	return ctx.Err()
}

func (e *Engine) wait(ctx context.Context, s *session) {
	t := time.NewTimer(e.interval)
	defer t.Stop()

	var wake <-chan struct{}
	if s.waker != nil {
		wake = s.waker.Wake()
	}

	select {
	case <-ctx.Done():
	case <-s.stop:
	case <-wake:
	case <-t.C:
	}
}

// transfer 移动一个文件；成功返回 true。失败不会中断本轮。
func (e *Engine) transfer(f domain.SourceFile, s *session) bool {
	dst := filepath.Join(s.dst, f.Name)

	var err error
	if prev, ok := s.failing[f.Name]; ok && prev.op == fsx.OpRemove && copied(dst, f) {
		// 上一轮已复制成功、只是删不掉源文件：只重试删除，不再重写目标。
		err = e.removeSource(f.Path)
	} else {
		err = e.moveFile(f.Path, s.dst, f.Name, e.mode)
	}

	if err != nil {
		te := &TransferError{Name: f.Name, Src: f.Path, Dst: dst, Op: fsx.FailedOp(err), Err: err}
		msg := err.Error()
		if prev, ok := s.failing[f.Name]; ok && prev.msg == msg {
			// 同一个错误已经通知过，只在 debug 级别记录重试。
			e.logger.Debug("transfer still failing", zap.String("file", f.Name), zap.Error(err))
			return false
		}
		s.failing[f.Name] = failure{op: te.Op, msg: msg}

		e.failed.Add(1)
		e.record(domain.FileResult{Name: f.Name, Src: f.Path, Dst: dst, Status: domain.FileStatusFailed, Op: te.Op, Error: msg})
		e.logger.Warn("transfer failed", zap.String("file", f.Name), zap.String("op", te.Op), zap.Error(err))
		e.reportError(te)
		e.observers.Notify(domain.FailedMessage(f.Name, err))
		return false
	}
	delete(s.failing, f.Name)

	n := e.moved.Add(1)
	e.record(domain.FileResult{Name: f.Name, Src: f.Path, Dst: dst, Status: domain.FileStatusMoved})
	e.logger.Debug("file moved", zap.String("file", f.Name), zap.Int64("size", f.Size), zap.Int64("n", n))
	e.observers.Notify(domain.MovedMessage(int(n)))
	return true
}

// copied 判断目标文件是否就是上一轮复制出的那份（大小与源一致）。
func copied(dst string, f domain.SourceFile) bool {
	fi, err := os.Stat(dst)
	return err == nil && fi.Mode().IsRegular() && fi.Size() == f.Size
}

func (e *Engine) record(r domain.FileResult) {
	e.mu.Lock()
	e.report.Files = append(e.report.Files, r)
	e.mu.Unlock()
}

func (e *Engine) reportError(err error) {
	if e.onError != nil {
		e.onError(err)
	}
}
