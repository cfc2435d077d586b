package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathNotFoundError 表示给定路径在文件系统上不存在。
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("%s is not exists", e.Path)
}

// Unwrap 让 errors.Is(err, fs.ErrNotExist) 成立。
func (e *PathNotFoundError) Unwrap() error { return os.ErrNotExist }

// IsPathNotFound 判断 err 是否为 PathNotFoundError。
func IsPathNotFound(err error) bool {
	var e *PathNotFoundError
	return errors.As(err, &e)
}

// CheckPath 只做 stat，不修改文件系统。
// 不存在返回 PathNotFoundError；其他 stat 错误（例如权限）原样包装返回。
func CheckPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &PathNotFoundError{Path: path}
		}
		return fmt.Errorf("检查路径 %q 失败：%w", path, err)
	}
	return nil
}

// Normalize 去掉首尾空白并 Clean；空串保持为空串（表示“未设置”）。
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// SamePath 判断两个路径是否指向同一位置（先比较绝对路径，再用 os.SameFile 兜底处理符号链接）。
func SamePath(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA == nil && errB == nil && aa == bb {
		return true
	}
	fa, errA := os.Stat(a)
	fb, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
