// Package cache 提供 Redis 缓存功能
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: miss")

// 缓存键前缀
const (
	KeyPrefixPaymentStatus = "payment:status:"
	KeyPrefixBooking       = "booking:"
	KeyPrefixRateLimit     = "ratelimit:"
	KeyPrefixLock          = "lock:"
)

var rdb *redis.Client

// Init 初始化 Redis 连接
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	rdb = client
	return rdb, nil
}

// GetClient 获取 Redis 客户端
func GetClient() *redis.Client {
	return rdb
}

// Close 关闭 Redis 连接
func Close() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// Store JSON 缓存
type Store struct {
	client redis.Cmdable
}

// NewStore 创建缓存
func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Set 序列化为 JSON 后写入
func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.client.Set(ctx, key, data, expiration).Err()
}

// Get 读取并反序列化，未命中返回 ErrMiss
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete 删除缓存
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// TryLock 尝试获取带过期时间的锁，返回是否成功
func (s *Store) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, KeyPrefixLock+name, time.Now().Unix(), ttl).Result()
}

// Unlock 释放锁
func (s *Store) Unlock(ctx context.Context, name string) error {
	return s.client.Del(ctx, KeyPrefixLock+name).Err()
}

// BuildKey 构建缓存键，各部分以冒号连接
func BuildKey(prefix string, parts ...string) string {
	return prefix + strings.Join(parts, ":")
}
