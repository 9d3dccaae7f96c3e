package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func ConnectRedis(addr, password string, db int, log *zap.Logger) {
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := RDB.Ping(ctx).Result()
	if err != nil {
		log.Fatal("could not connect to Redis", zap.String("addr", addr), zap.Error(err))
	}
	log.Info("connected to Redis", zap.String("addr", addr))
}

func CloseRedis(log *zap.Logger) {
	if RDB != nil {
		RDB.Close()
		log.Info("redis connection closed")
	}
}
