package mover

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning：上一轮循环尚未退出时再次 Start。
	ErrAlreadyRunning = errors.New("mover: 已在运行")
	// ErrRunning：运行期间修改 source/destination（必须先 Stop 并等待循环退出）。
	ErrRunning = errors.New("mover: 运行中不能修改路径")
	// ErrPathsUnset：source 或 destination 未设置就 Start。
	ErrPathsUnset = errors.New("mover: source 与 destination 必须都已设置")
	// ErrSamePath：source 与 destination 是同一个目录（移动会把文件自己覆盖掉）。
	ErrSamePath = errors.New("mover: source 与 destination 不能是同一目录")
)

// TransferError 表示单个文件的 copy/rename/remove 失败。
// 循环会通知观察者、记录到报告并继续处理下一个文件，不会因此退出。
type TransferError struct {
	Name string
	Src  string
	Dst  string
	Op   string // fsx.OpRename / fsx.OpCopy / fsx.OpRemove
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("移动 %q 失败（%s）：%v", e.Name, e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IsTransfer 判断 err 是否为 TransferError。
func IsTransfer(err error) bool {
	var e *TransferError
	return errors.As(err, &e)
}
