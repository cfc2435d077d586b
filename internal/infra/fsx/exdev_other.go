//go:build !unix

package fsx

// 非 unix 平台没有 EXDEV 语义；跨卷 rename 的错误按普通错误处理。
func isEXDEV(err error) bool { return false }
