// Package pubsub 把移动状态消息转发到 Redis 频道，供其他进程订阅。
package pubsub

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel 是未指定频道时使用的 Redis 频道名。
const DefaultChannel = "filemover:status"

// DefaultTimeout 是单次 PUBLISH 的超时。
const DefaultTimeout = 2 * time.Second

// Publisher 是 *redis.Client 满足的最小接口。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisObserver 实现 Observer：每条消息原样 PUBLISH 到 Channel。
//
// 发布失败只记录日志，不会回传给移动循环。
type RedisObserver struct {
	pub     Publisher
	channel string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisObserver 构造观察者；channel 为空时使用 DefaultChannel。
func NewRedisObserver(pub Publisher, channel string, logger *zap.Logger) *RedisObserver {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisObserver{pub: pub, channel: channel, timeout: DefaultTimeout, logger: logger}
}

// Channel 返回发布使用的频道。
func (o *RedisObserver) Channel() string { return o.channel }

func (o *RedisObserver) Update(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	receivers, err := o.pub.Publish(ctx, o.channel, message).Result()
	if err != nil {
		o.logger.Warn("redis publish failed",
			zap.String("channel", o.channel),
			zap.String("message", message),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("redis published", zap.String("channel", o.channel), zap.Int64("receivers", receivers))
}

// Dial 按 opts 建立连接并 PING 一次；失败时关闭客户端并返回错误。
func Dial(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
