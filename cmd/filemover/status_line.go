package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/John-Robertt/filemover/internal/app/observer"
	"github.com/John-Robertt/filemover/internal/domain"
)

var _ observer.Observer = (*statusLine)(nil)

// statusLine 是控制台观察者。
//
// 交互终端下每条消息覆盖同一行（"\r" + 清行），只有 started/stopped/失败消息会留在屏幕上；
// 非 TTY（管道、日志文件）下每条消息一行。
type statusLine struct {
	w   io.Writer
	tty bool

	moved, failed, state *color.Color

	mu    sync.Mutex
	dirty bool // 当前行是否是一条尚未换行的覆盖消息
}

func newStatusLine(w io.Writer, tty, colored bool) *statusLine {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &statusLine{
		w:      w,
		tty:    tty,
		moved:  mk(color.FgGreen),
		failed: mk(color.FgRed, color.Bold),
		state:  mk(color.FgCyan),
	}
}

func (s *statusLine) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, sticky := s.render(message)
	if !s.tty {
		fmt.Fprintln(s.w, text)
		return
	}

	if sticky {
		if s.dirty {
			fmt.Fprint(s.w, "\r\033[K")
		}
		fmt.Fprintln(s.w, text)
		s.dirty = false
		return
	}
	fmt.Fprintf(s.w, "\r%s\033[K", text)
	s.dirty = true
}

// Finish 在最后一条覆盖消息后补一个换行，避免摘要行接在状态行后面。
func (s *statusLine) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		fmt.Fprintln(s.w)
		s.dirty = false
	}
}

// render 返回着色后的文本，以及该消息在 TTY 下是否需要单独占一行。
func (s *statusLine) render(message string) (string, bool) {
	switch {
	case message == domain.MsgStarted || message == domain.MsgStopped:
		return s.state.Sprint(message), true
	case strings.HasPrefix(message, "File Move Failed") || strings.HasPrefix(message, "File moving failed"):
		return s.failed.Sprint(message), true
	case strings.HasSuffix(message, " File Moved"):
		return s.moved.Sprint(message), false
	default:
		return message, false
	}
}
