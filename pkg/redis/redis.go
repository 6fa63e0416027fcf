package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"resv-system/backend/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、登录限流与设置快照缓存
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromClient 使用已有的 go-redis 客户端构造（测试中可注入）
func NewFromClient(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if c == nil {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

const rateLimitPrefix = "ratelimit:"

// Allow 基于 ZSet 的滑动窗口计数：窗口内请求数未超过 limit 时放行
// Redis 不可用时放行并记录警告，不阻断业务
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if c == nil || limit <= 0 {
		return true
	}

	now := time.Now().UnixNano()
	redisKey := rateLimitPrefix + key
	min := strconv.FormatInt(now-window.Nanoseconds(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", min)
	pipe.ZAdd(ctx, redisKey, goredis.Z{Score: float64(now), Member: now})
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("限流计数失败，默认放行", zap.String("key", key), zap.Error(err))
		return true
	}
	return card.Val() <= int64(limit)
}

// ── 设置快照缓存 ──

const settingsKey = "cache:settings"

// GetSettings 读取缓存的设置表（name → value），未命中返回 nil
func (c *Client) GetSettings(ctx context.Context) (map[string]string, error) {
	if c == nil {
		return nil, nil
	}
	values, err := c.rdb.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// SetSettings 写入设置缓存
func (c *Client) SetSettings(ctx context.Context, values map[string]string, ttl time.Duration) error {
	if c == nil || len(values) == 0 {
		return nil
	}
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, settingsKey)
	pipe.HSet(ctx, settingsKey, values)
	if ttl > 0 {
		pipe.Expire(ctx, settingsKey, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateSettings 管理员修改设置后清除缓存
func (c *Client) InvalidateSettings(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, settingsKey).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
