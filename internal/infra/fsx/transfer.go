package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Mode 决定 MoveFile 如何把文件搬到目标目录。
type Mode string

const (
	// ModeCopy 总是先复制内容与权限位，再删除原文件。
	ModeCopy Mode = "copy"
	// ModeRename 先尝试 rename；跨盘（EXDEV）时退化为 ModeCopy。
	ModeRename Mode = "rename"
)

const (
	OpRename = "rename"
	OpCopy   = "copy"
	OpRemove = "remove"
)

// ParseMode 解析配置/CLI 中的 mode 字符串；空串视为 ModeCopy。
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCopy:
		return ModeCopy, nil
	case ModeRename:
		return ModeRename, nil
	default:
		return "", fmt.Errorf("mode 只能是 copy 或 rename，实际是 %q", s)
	}
}

// OpError 标记 MoveFile 失败在哪一步（rename/copy/remove）。
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %q：%v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// FailedOp 返回 err 链上第一个 OpError 的 Op；没有则返回空串。
func FailedOp(err error) string {
	var e *OpError
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// CopyFile 把 src 的内容与权限位复制到 dstDir/name，已存在则覆盖（last writer wins）。
//
// 写入走同目录临时文件 + rename，因此目标目录里不会出现写了一半的同名文件。
func CopyFile(src, dstDir, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return &PathTypeConflictError{Path: src, Want: "regular file", Got: fi.Mode().Type().String()}
	}

	return writeAtomic(dstDir, name, fi.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// MoveFile 把 src 移动到 dstDir/name。
//
// 只有“复制（或 rename）”与“删除原文件”都成功才返回 nil。
// 复制成功但删除失败时，目标文件保留，返回 Op=remove 的 OpError。
func MoveFile(src, dstDir, name string, mode Mode) error {
	dst := filepath.Join(dstDir, name)

	if mode == ModeRename && !isSymlink(src) {
		err := Rename(src, dst)
		if err == nil {
			return nil
		}
		if !IsCrossDevice(err) {
			return &OpError{Op: OpRename, Path: src, Err: err}
		}
		// 跨盘：退化为 copy+delete。
	}

	if err := CopyFile(src, dstDir, name); err != nil {
		return &OpError{Op: OpCopy, Path: src, Err: err}
	}
	return RemoveSource(src)
}

// RemoveSource 删除已复制完成的源文件；失败时返回 Op=remove 的 OpError。
// 用于“复制成功但删除失败”之后只重试删除这一步。
func RemoveSource(src string) error {
	if err := removeFunc(src); err != nil {
		return &OpError{Op: OpRemove, Path: src, Err: err}
	}
	return nil
}

// 符号链接只搬内容（跟随链接复制），删除的是链接本身；rename 会把链接原样搬走，所以跳过 rename。
func isSymlink(p string) bool {
	fi, err := os.Lstat(p)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}
