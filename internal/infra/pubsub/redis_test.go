package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobs "go.uber.org/zap/zaptest/observer"
)

type published struct {
	channel string
	message interface{}
}

type stubPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *stubPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return redis.NewIntResult(0, errors.New("missing deadline"))
	}
	p.sent = append(p.sent, published{channel: channel, message: message})
	return redis.NewIntResult(1, p.err)
}

func TestRedisObserver_PublishesMessage(t *testing.T) {
	pub := &stubPublisher{}
	o := NewRedisObserver(pub, "", nil)

	o.Update("1 File Moved")
	o.Update("File moving stopped")

	if o.Channel() != DefaultChannel {
		t.Fatalf("期望默认频道 %q，实际 %q", DefaultChannel, o.Channel())
	}
	if len(pub.sent) != 2 {
		t.Fatalf("期望发布 2 条，实际 %d", len(pub.sent))
	}
	if pub.sent[0].channel != DefaultChannel || pub.sent[0].message != "1 File Moved" {
		t.Fatalf("发布内容不正确：%+v", pub.sent[0])
	}
}

func TestRedisObserver_ErrorLoggedNotPropagated(t *testing.T) {
	core, logs := zapobs.New(zapcore.WarnLevel)
	pub := &stubPublisher{err: errors.New("connection refused")}
	o := NewRedisObserver(pub, "moves", zap.New(core))

	o.Update("File moving started")

	entries := logs.FilterMessage("redis publish failed").All()
	if len(entries) != 1 {
		t.Fatalf("发布失败应记录一条 warn 日志，实际 %d", len(entries))
	}
	if got := entries[0].ContextMap()["channel"]; got != "moves" {
		t.Fatalf("日志应带频道名，实际 %v", got)
	}
}
