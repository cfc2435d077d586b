package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/filemover/internal/app/mover"
	"github.com/John-Robertt/filemover/internal/domain"
)

func newTestModel(t *testing.T, src, dst string) (tuiModel, *mover.Engine, *chanObserver) {
	t.Helper()
	eng, err := mover.New(src, dst, mover.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New 失败：%v", err)
	}
	feed := newChanObserver(16)
	eng.Attach(feed)
	return newTUIModel(context.Background(), eng, feed.ch), eng, feed
}

func typeKeys(m tuiModel, keys ...string) tuiModel {
	for _, k := range keys {
		m, _ = m.handleKey(k)
	}
	return m
}

func TestTUI_ToggleDisabledUntilReady(t *testing.T) {
	m, eng, _ := newTestModel(t, "", "")

	m, cmd := m.handleKey("enter")
	if cmd != nil || m.starting {
		t.Fatalf("路径未设置时开关应不可用")
	}
	if m.buttonLabel() != "Start Moving" {
		t.Fatalf("按钮文字不正确：%q", m.buttonLabel())
	}
	if eng.Running() {
		t.Fatalf("不应进入 Moving")
	}
}

func TestTUI_EditPaths(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	m, eng, _ := newTestModel(t, "", "")

	m = typeKeys(m, "s")
	if m.editing != editSource {
		t.Fatalf("按 s 应进入源目录编辑")
	}
	m = typeKeys(m, strings.Split(src+"x", "")...)
	m = typeKeys(m, "backspace", "enter")
	if m.editing != editNone || m.errText != "" {
		t.Fatalf("提交后应退出编辑：editing=%v err=%q", m.editing, m.errText)
	}
	if eng.Source() != src {
		t.Fatalf("source 未更新：%q", eng.Source())
	}

	// 不存在的路径：提示错误并保持编辑状态。
	m = typeKeys(m, "d")
	m = typeKeys(m, strings.Split(filepath.Join(dst, "missing"), "")...)
	m = typeKeys(m, "enter")
	if m.editing != editDestination || !strings.Contains(m.errText, "is not exists") {
		t.Fatalf("应提示路径不存在：editing=%v err=%q", m.editing, m.errText)
	}
	if eng.Destination() != "" {
		t.Fatalf("无效路径不应被接受：%q", eng.Destination())
	}

	m = typeKeys(m, "esc", "d")
	m.input = []rune(dst)
	m = typeKeys(m, "enter")
	if !eng.Ready() {
		t.Fatalf("两个路径都设置后应 Ready")
	}
}

func TestTUI_QuitKeyTypedWhileEditing(t *testing.T) {
	m, _, _ := newTestModel(t, "", "")
	m = typeKeys(m, "s", "q")
	if string(m.input) != "q" {
		t.Fatalf("编辑时 q 应作为输入字符：%q", string(m.input))
	}
}

func TestTUI_StartStop(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	m, eng, feed := newTestModel(t, src, dst)

	m, cmd := m.handleKey("space")
	if cmd == nil || !m.starting {
		t.Fatalf("Ready 时应发出启动命令")
	}
	if m.buttonLabel() != "Stop Moving" {
		t.Fatalf("启动中按钮应显示 Stop Moving：%q", m.buttonLabel())
	}

	done := make(chan runDoneMsg, 1)
	go func() { done <- cmd().(runDoneMsg) }()

	// 读取 started 消息并更新状态标签。
	next, _ := m.Update(statusMsg(<-feed.ch))
	m = next.(tuiModel)
	if m.status != domain.MsgStarted || m.starting {
		t.Fatalf("收到 started 后状态不正确：status=%q starting=%v", m.status, m.starting)
	}

	deadline := time.Now().Add(5 * time.Second)
	for eng.MovedCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if eng.MovedCount() != 1 {
		t.Fatalf("文件应被移动")
	}

	m, _ = m.handleKey("enter")
	select {
	case msg := <-done:
		if msg.err != nil {
			t.Fatalf("不期望错误：%v", msg.err)
		}
		next, _ = m.Update(msg)
		m = next.(tuiModel)
	case <-time.After(5 * time.Second):
		t.Fatalf("Stop 后会话应结束")
	}
	if m.buttonLabel() != "Start Moving" || m.errText != "" {
		t.Fatalf("停止后状态不正确：label=%q err=%q", m.buttonLabel(), m.errText)
	}
}

func TestTUI_EditRefusedWhileRunning(t *testing.T) {
	m, eng, _ := newTestModel(t, t.TempDir(), t.TempDir())
	errc := eng.Go(context.Background())
	defer func() {
		eng.Stop()
		<-errc
	}()

	m = typeKeys(m, "s")
	if m.editing != editNone || m.errText == "" {
		t.Fatalf("运行中不应进入编辑：editing=%v err=%q", m.editing, m.errText)
	}
}

func TestChanObserver_KeepsLatest(t *testing.T) {
	o := newChanObserver(2)
	o.Update("a")
	o.Update("b")
	o.Update("c")

	got := []string{<-o.ch, <-o.ch}
	if got[0] != "b" || got[1] != "c" {
		t.Fatalf("缓冲满时应丢弃最旧消息：%v", got)
	}
}

func TestTUI_ViewShowsStatus(t *testing.T) {
	m, _, _ := newTestModel(t, "", "")
	m.status = "3 File Moved"
	if s := m.render(); !strings.Contains(s, "3 File Moved") || !strings.Contains(s, "(未设置)") {
		t.Fatalf("界面缺少状态或路径：%q", s)
	}
}
