package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNotifier_WakesOnCreate(t *testing.T) {
	dir := t.TempDir()
	n, err := New(dir, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer n.Close()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	select {
	case <-n.Wake():
	case <-time.After(5 * time.Second):
		t.Fatalf("创建文件后应收到唤醒信号")
	}
}

func TestNotifier_CoalescesSignals(t *testing.T) {
	dir := t.TempDir()
	n, err := New(dir, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer n.Close()

	n.signal()
	n.signal()
	n.signal()

	if got := len(n.wake); got != 1 {
		t.Fatalf("多次信号应合并为 1 个，实际 %d", got)
	}
}

func TestNotifier_MissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "gone"), nil); err == nil {
		t.Fatalf("目录不存在时应报错")
	}
}

func TestNotifier_CloseIdempotent(t *testing.T) {
	n, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("第一次 Close 不应报错：%v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("重复 Close 不应报错：%v", err)
	}
}
