// Package observer 把“进度/状态消息”从移动循环中解耦出来。
//
// 约束：
// - 循环只发消息，不做任何输出；CLI/TUI/Redis 等由各自的 Observer 决定如何展示。
// - Notify 在调用方 goroutine 上同步执行，按 Attach 顺序逐个投递。
// - Observer 实现必须并发安全：消息在循环 goroutine 上投递，读取方通常在另一个 goroutine。
package observer

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Observer 接收状态消息，例如 "File moving started"、"3 File Moved"。
type Observer interface {
	Update(message string)
}

// Func 让普通函数充当 Observer。
//
// 注意：Detach 对函数按代码指针比较，同一个函数字面量生成的多个闭包会被视为同一个 Observer。
// 需要精确 Detach 时请使用指针类型的实现。
type Func func(message string)

func (f Func) Update(message string) { f(message) }

// ErrObserverNotFound 是 Detach 未找到目标时的哨兵错误。
var ErrObserverNotFound = errors.New("observer not found")

// NotFoundError 表示 Detach 的 Observer 不在注册表中。
type NotFoundError struct {
	Observer Observer
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("observer %T 未注册", e.Observer)
}

func (e *NotFoundError) Unwrap() error { return ErrObserverNotFound }

// Registry 是有序、允许重复的 Observer 集合。
//
// 重复 Attach 同一个 Observer 会收到重复消息；Detach 只移除第一次出现的那一项。
type Registry struct {
	mu        sync.Mutex
	observers []Observer
	logger    *zap.Logger
}

// NewRegistry 返回空注册表；logger 为 nil 时不记录 observer panic。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Attach 追加到末尾；nil 会被忽略。
func (r *Registry) Attach(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
}

// Detach 移除第一个与 o 相同的项；不存在时返回 *NotFoundError。
func (r *Registry) Detach(o Observer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, cur := range r.observers {
		if same(cur, o) {
			// 不复用底层数组：Notify 可能正持有旧快照。
			next := make([]Observer, 0, len(r.observers)-1)
			next = append(next, r.observers[:i]...)
			next = append(next, r.observers[i+1:]...)
			r.observers = next
			return nil
		}
	}
	return &NotFoundError{Observer: o}
}

// Notify 把 message 按注册顺序同步投递给每个 Observer。
//
// 投递前先在锁内取快照，回调在锁外执行：Observer 可以在 Update 里 Attach/Detach，
// 变化从下一次 Notify 开始生效。某个 Observer panic 时会被 recover 并记录日志，
// 其余 Observer 照常收到消息。
func (r *Registry) Notify(message string) {
	r.mu.Lock()
	snapshot := r.observers
	r.mu.Unlock()

	for _, o := range snapshot {
		r.deliver(o, message)
	}
}

// Len 返回当前注册项数量（重复项分别计数）。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

func (r *Registry) deliver(o Observer, message string) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("observer panicked",
				zap.String("observer", fmt.Sprintf("%T", o)),
				zap.String("message", message),
				zap.Any("panic", v),
			)
		}
	}()
	o.Update(message)
}

func same(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	// 静态类型可比较不代表动态值可比较：接口字段里可能装着 slice/map。
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}
