package driver

import (
	"context"
	"time"

	"dm-gateway/internal/platform/config"
	"dm-gateway/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// ConnectRedis 連接 Redis（事件總線）.
// 未配置 Redis URL 時返回 nil，服務以單實例模式運行.
func ConnectRedis() error {
	cfg := config.Get()
	if cfg == nil || cfg.Redis.URL == "" {
		logger.LogInfof("未配置 Redis，跨實例廣播停用（單實例模式）")
		return nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}

	redisClient = client
	logger.LogInfof("Redis connected successfully")
	return nil
}

// GetRedisClient 獲取 Redis 客戶端實例，未連接時為 nil.
func GetRedisClient() *redis.Client {
	return redisClient
}

// IsRedisConnected 檢查 Redis 是否已連接.
func IsRedisConnected() bool {
	return redisClient != nil
}

// CloseRedis 關閉 Redis 連接.
func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
