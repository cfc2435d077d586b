package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFiles_OnlyTopLevelRegularFiles(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "b.bin"))
	touch(t, filepath.Join(root, "a.txt"))
	// 子目录及其内容都不应出现（不递归）。
	touch(t, filepath.Join(root, "sub", "c.txt"))

	got, err := Files(root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个文件，实际 %d：%+v", len(got), got)
	}
	if got[0].Name != "a.txt" || got[1].Name != "b.bin" {
		t.Fatalf("顺序应与 ReadDir 一致：%q %q", got[0].Name, got[1].Name)
	}
	if got[0].Path != filepath.Join(root, "a.txt") {
		t.Fatalf("Path 不正确：%q", got[0].Path)
	}
	if got[0].Size != 1 {
		t.Fatalf("Size 不正确：%d", got[0].Size)
	}
}

func TestFiles_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows 上创建符号链接需要额外权限")
	}
	root := t.TempDir()
	outside := t.TempDir()

	touch(t, filepath.Join(outside, "real.txt"))
	if err := os.Symlink(filepath.Join(outside, "real.txt"), filepath.Join(root, "file-link")); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "dir-link")); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}
	// 悬空链接：stat 失败，跳过。
	if err := os.Symlink(filepath.Join(outside, "missing"), filepath.Join(root, "dangling")); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}

	got, err := Files(root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Name != "file-link" {
		t.Fatalf("只应收录指向文件的链接：%+v", got)
	}
}

func TestFiles_MissingDir(t *testing.T) {
	if _, err := Files(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Fatalf("目录不存在时应报错")
	}
}

func touch(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
