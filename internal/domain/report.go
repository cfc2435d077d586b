package domain

import (
	"encoding/json"
	"time"
)

const (
	FileStatusMoved  = "moved"
	FileStatusFailed = "failed"
)

// SessionReport 描述一次 Run（从 start 到返回）的结果，可写成 report.json。
type SessionReport struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary SessionSummary `json:"summary"`
	Files   []FileResult   `json:"files"`
}

type SessionSummary struct {
	Moved  int `json:"moved"`
	Failed int `json:"failed"`
}

type FileResult struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Status string `json:"status"`
	Op     string `json:"op,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 files 计算得出
//
// files 保持移动发生的先后顺序，不排序。
func (r *SessionReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Files == nil {
		r.Files = []FileResult{}
	}

	var s SessionSummary
	for _, f := range r.Files {
		switch f.Status {
		case FileStatusMoved:
			s.Moved++
		case FileStatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// Clone 返回一份不与原对象共享 Files 底层数组的拷贝（供并发读取）。
func (r SessionReport) Clone() SessionReport {
	out := r
	out.Files = append([]FileResult(nil), r.Files...)
	return out
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r SessionReport) MarshalJSON() ([]byte, error) {
	type Alias SessionReport
	return json.Marshal(Alias(r))
}
