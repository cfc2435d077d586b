//go:build unix

package fsx

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestRename_CrossDeviceEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if !IsCrossDevice(err) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
}

func TestMoveFile_RenameMode_EXDEVFallsBackToCopy(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	in := filepath.Join(src, "a.txt")
	if err := os.WriteFile(in, []byte("hello"), 0o644); err != nil {
		t.Fatalf("写入源文件失败：%v", err)
	}

	// 只让“源文件 -> 目标”的 rename 报 EXDEV；临时文件落位的 rename 走真实实现。
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		if oldpath == in {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return old(oldpath, newpath)
	}
	defer func() { renameFunc = old }()

	if err := MoveFile(in, dst, "a.txt", ModeRename); err != nil {
		t.Fatalf("EXDEV 时应退化为 copy+delete，实际错误：%v", err)
	}
	b, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	if err != nil || string(b) != "hello" {
		t.Fatalf("目标内容不正确：%q err=%v", string(b), err)
	}
	if _, err := os.Stat(in); !os.IsNotExist(err) {
		t.Fatalf("源文件应被删除：err=%v", err)
	}
}

func TestMoveFile_SymlinkCopiesTargetAndRemovesLink(t *testing.T) {
	outside := t.TempDir()
	src := t.TempDir()
	dst := t.TempDir()

	target := filepath.Join(outside, "real.txt")
	if err := os.WriteFile(target, []byte("data"), 0o644); err != nil {
		t.Fatalf("写入目标文件失败：%v", err)
	}
	link := filepath.Join(src, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}

	if err := MoveFile(link, dst, "link.txt", ModeRename); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	fi, err := os.Lstat(filepath.Join(dst, "link.txt"))
	if err != nil {
		t.Fatalf("目标应存在：%v", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		t.Fatalf("目标应是普通文件而不是链接")
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Fatalf("源链接应被删除：err=%v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("链接指向的原文件不应被删除：%v", err)
	}
}
