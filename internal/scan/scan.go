package scan

import (
	"os"
	"path/filepath"

	"github.com/John-Robertt/filemover/internal/domain"
)

// Files 列出 dir 下（不递归）的 regular file。
//
// 规则：
// - 目录、指向目录的符号链接、设备/管道/socket 一律跳过
// - 指向文件的符号链接按文件处理（与“跟随链接”的 stat 语义一致）
// - 列表与 stat 之间文件消失（被其他进程拿走）不算错误，直接跳过
// - 顺序就是 os.ReadDir 的顺序（按文件名），不做额外排序
//
// 只有 dir 本身无法读取时才返回错误。
func Files(dir string) ([]domain.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.SourceFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())

		// os.Stat 跟随符号链接；DirEntry.Info 不跟随。
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, domain.SourceFile{
			Name:    e.Name(),
			Path:    path,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
	}
	return files, nil
}
