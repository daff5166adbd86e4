package settings

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

const (
	// KeySettings 全局设置 Redis Hash Key
	KeySettings = "roomgate:settings"

	// AllowAnonymousRead 是否允许匿名用户读取公开内容
	AllowAnonymousRead = "Accounts_AllowAnonymousRead"
)

// Provider 全局设置只读访问器
// 每次调用都读取当前值，不缓存启动时的快照
type Provider interface {
	AllowAnonymousRead(ctx context.Context) (bool, error)
}

type anonymousReadKey struct{}

// WithAnonymousRead 在 ctx 中固定匿名读取开关，同一次判断内的后续读取都使用该值
func WithAnonymousRead(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, anonymousReadKey{}, enabled)
}

// AnonymousRead 优先使用 ctx 中固定的值，没有时从 p 读取
func AnonymousRead(ctx context.Context, p Provider) (bool, error) {
	if enabled, ok := ctx.Value(anonymousReadKey{}).(bool); ok {
		return enabled, nil
	}
	return p.AllowAnonymousRead(ctx)
}

// RedisProvider 基于 Redis Hash 的设置读取
type RedisProvider struct {
	client   *redis.Client
	fallback bool
	logger   *slog.Logger
}

// NewRedisProvider 创建 Redis 设置读取器
// fallback 为 Redis 中没有该设置时使用的默认值
func NewRedisProvider(client *redis.Client, fallback bool) *RedisProvider {
	return &RedisProvider{
		client:   client,
		fallback: fallback,
		logger:   slog.Default().With("component", "RedisSettings"),
	}
}

// AllowAnonymousRead 读取匿名读取开关
func (p *RedisProvider) AllowAnonymousRead(ctx context.Context) (bool, error) {
	value, err := p.client.HGet(ctx, KeySettings, AllowAnonymousRead).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return p.fallback, nil
		}
		return false, err
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		p.logger.Warn("Invalid setting value, using default",
			"setting", AllowAnonymousRead,
			"value", value,
			"default", p.fallback)
		return p.fallback, nil
	}
	return enabled, nil
}

// SetAllowAnonymousRead 写入匿名读取开关（运维工具和测试使用）
func (p *RedisProvider) SetAllowAnonymousRead(ctx context.Context, enabled bool) error {
	return p.client.HSet(ctx, KeySettings, AllowAnonymousRead, strconv.FormatBool(enabled)).Err()
}

// MemoryProvider 进程内设置，可在运行时修改
type MemoryProvider struct {
	anonymousRead atomic.Bool
}

// NewMemoryProvider 创建内存设置
func NewMemoryProvider(allowAnonymousRead bool) *MemoryProvider {
	p := &MemoryProvider{}
	p.anonymousRead.Store(allowAnonymousRead)
	return p
}

// AllowAnonymousRead 读取匿名读取开关
func (p *MemoryProvider) AllowAnonymousRead(ctx context.Context) (bool, error) {
	return p.anonymousRead.Load(), nil
}

// SetAllowAnonymousRead 修改匿名读取开关
func (p *MemoryProvider) SetAllowAnonymousRead(enabled bool) {
	p.anonymousRead.Store(enabled)
}
