package domain

import (
	"fmt"
	"strconv"
)

// 观察者收到的状态消息。前三条的文本是对外契约（CLI 状态行、TUI 标签与测试都按原文匹配）。
const (
	MsgStarted = "File moving started"
	MsgStopped = "File moving stopped"

	movedSuffix = " File Moved"
)

// MovedMessage 返回第 n 个文件移动成功后的消息，例如 "2 File Moved"。
func MovedMessage(n int) string {
	return strconv.Itoa(n) + movedSuffix
}

// FailedMessage 是单个文件移动失败时的消息；循环会继续处理下一个文件。
func FailedMessage(name string, err error) string {
	return fmt.Sprintf("File Move Failed: %s: %v", name, err)
}

// AbortedMessage 是轮询循环因致命错误（例如源目录无法列出）而退出时的消息。
func AbortedMessage(err error) string {
	return fmt.Sprintf("File moving failed: %v", err)
}
