package database

import (
	"context"
	"time"

	"debt-splitter/config"
	"debt-splitter/logging"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var Redis *redis.Client

// ConnectRedis is optional: when Redis is unreachable the app runs without a
// cache and Redis stays nil.
func ConnectRedis() {
	opts, err := redis.ParseURL(config.AppConfig.RedisURL)
	if err != nil {
		logging.L().Warn("⚠️  Invalid REDIS_URL, running without cache", zap.Error(err))
		return
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.L().Warn("⚠️  Redis not available, running without cache", zap.Error(err))
		client.Close()
		return
	}

	Redis = client
	logging.L().Info("✅ Redis connected successfully")
}
