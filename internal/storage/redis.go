package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var Rdb *redis.Client
var Ctx = context.Background()

func InitRedis(addr, password string, db int) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return Rdb.Ping(Ctx).Err()
}

// SaveReconnectKey 记录座位的重连凭证，服务重启后仍可校验
func SaveReconnectKey(ctx context.Context, roomID, userID, key string, ttl time.Duration) error {
	return Rdb.Set(ctx, reconnectKey(roomID, userID), key, ttl).Err()
}

// GetReconnectKey 读取座位的重连凭证，不存在返回空串
func GetReconnectKey(ctx context.Context, roomID, userID string) (string, error) {
	val, err := Rdb.Get(ctx, reconnectKey(roomID, userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func reconnectKey(roomID, userID string) string {
	return fmt.Sprintf("room:reconnect:%s:%s", roomID, userID)
}
