package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "debug", "INFO", " warn ", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Fatalf("%q 应合法：%v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("非法级别应报错")
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	_ = l.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info 不应在 warn 级别输出：%q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "filemover") {
		t.Fatalf("warn 应输出且带 logger 名：%q", out)
	}
}
