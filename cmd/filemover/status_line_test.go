package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/John-Robertt/filemover/internal/domain"
)

func TestStatusLine_NonTTY_OneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	s := newStatusLine(&buf, false, false)

	s.Update(domain.MsgStarted)
	s.Update(domain.MovedMessage(1))
	s.Update(domain.MovedMessage(2))
	s.Update(domain.MsgStopped)
	s.Finish()

	want := "File moving started\n1 File Moved\n2 File Moved\nFile moving stopped\n"
	if buf.String() != want {
		t.Fatalf("输出不符合预期：\ngot=%q\nwant=%q", buf.String(), want)
	}
}

func TestStatusLine_TTY_OverwritesMovedLine(t *testing.T) {
	var buf bytes.Buffer
	s := newStatusLine(&buf, true, false)

	s.Update(domain.MsgStarted)
	s.Update(domain.MovedMessage(1))
	s.Update(domain.MovedMessage(2))
	s.Update(domain.FailedMessage("x.txt", errors.New("boom")))
	s.Update(domain.MovedMessage(3))
	s.Finish()

	want := "File moving started\n" +
		"\r1 File Moved\033[K" +
		"\r2 File Moved\033[K" +
		"\r\033[KFile Move Failed: x.txt: boom\n" +
		"\r3 File Moved\033[K" +
		"\n"
	if buf.String() != want {
		t.Fatalf("输出不符合预期：\ngot=%q\nwant=%q", buf.String(), want)
	}
}

func TestStatusLine_FinishWithoutPendingLine(t *testing.T) {
	var buf bytes.Buffer
	s := newStatusLine(&buf, true, false)

	s.Update(domain.MsgStopped)
	s.Finish()

	if buf.String() != "File moving stopped\n" {
		t.Fatalf("不应多输出换行：%q", buf.String())
	}
}

func TestStatusLine_Colored(t *testing.T) {
	var buf bytes.Buffer
	s := newStatusLine(&buf, false, true)

	s.Update(domain.MovedMessage(1))
	s.Update(domain.AbortedMessage(errors.New("gone")))

	out := buf.String()
	if !strings.Contains(out, "\x1b[32m1 File Moved") {
		t.Fatalf("moved 消息应为绿色：%q", out)
	}
	if !strings.Contains(out, "File moving failed: gone") || !strings.Contains(out, "\x1b[31") {
		t.Fatalf("失败消息应为红色：%q", out)
	}
}
