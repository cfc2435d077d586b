package domain

// SourceFile 描述一次轮询在源目录里看到的待移动文件（只做 stat，不读内容）。
//
// 不变量：
// - Path == filepath.Join(源目录, Name)
// - 只收录 regular file（符号链接按指向判断）
type SourceFile struct {
	Name    string
	Path    string
	Size    int64
	ModUnix int64
}
