package matchmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

// key 约定：
//
//	set: mm:pool:{pool}:{tableSize}   -> Set(userID,...)
//	kv : mm:player:{userID}           -> value "pool:tableSize" (便于取消时定位池)
//	对 player key 设置 TTL，避免长期遗留
func poolKey(pool string, tableSize int) string {
	return fmt.Sprintf("mm:pool:%s:%d", pool, tableSize)
}
func playerKey(userID string) string {
	return fmt.Sprintf("mm:player:%s", userID)
}

func (r *redisRepo) Enqueue(ctx context.Context, pool string, tableSize int, userID string, ttlSeconds int) error {
	p := r.rdb.Pipeline()
	p.SAdd(ctx, poolKey(pool, tableSize), userID)
	p.Set(ctx, playerKey(userID), fmt.Sprintf("%s:%d", pool, tableSize), time.Duration(ttlSeconds)*time.Second)
	_, err := p.Exec(ctx)
	return err
}

func (r *redisRepo) PopNRandom(ctx context.Context, pool string, tableSize int, n int) ([]string, error) {
	key := poolKey(pool, tableSize)
	// SPOP COUNT 一次随机弹出 n 个元素并从集合删除（原子）
	res, err := r.rdb.SPopN(ctx, key, int64(n)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) > 0 {
		p := r.rdb.Pipeline()
		for _, id := range res {
			p.Del(ctx, playerKey(id))
		}
		_, _ = p.Exec(ctx)
	}
	return res, nil
}

func (r *redisRepo) Remove(ctx context.Context, userID string) error {
	kv, err := r.rdb.Get(ctx, playerKey(userID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	// 解析 "pool:tableSize" 格式
	parts := strings.SplitN(kv, ":", 2)
	if len(parts) != 2 {
		_ = r.rdb.Del(ctx, playerKey(userID)).Err()
		return nil
	}
	size, err := strconv.Atoi(parts[1])
	if err != nil {
		_ = r.rdb.Del(ctx, playerKey(userID)).Err()
		return nil
	}

	poolK := poolKey(parts[0], size)
	playerK := playerKey(userID)

	// Lua 脚本：删除 playerKey、从集合中移除成员；若集合空则删除集合
	script := `
        redis.call("DEL", KEYS[1])
        redis.call("SREM", KEYS[2], ARGV[1])
        if redis.call("SCARD", KEYS[2]) == 0 then
            redis.call("DEL", KEYS[2])
        end
        return 1
    `
	if err := r.rdb.Eval(ctx, script, []string{playerK, poolK}, userID).Err(); err != nil {
		// Eval 不可用时回退到非原子实现
		p := r.rdb.Pipeline()
		p.SRem(ctx, poolK, userID)
		p.Del(ctx, playerK)
		if _, execErr := p.Exec(ctx); execErr != nil {
			return execErr
		}
		if n, _ := r.rdb.SCard(ctx, poolK).Result(); n == 0 {
			_ = r.rdb.Del(ctx, poolK).Err()
		}
	}

	return nil
}

func (r *redisRepo) SaveRoom(ctx context.Context, room *Room, ttlSeconds int) error {
	key := fmt.Sprintf("mm:room:%s", room.ID)
	data, _ := json.Marshal(room)
	p := r.rdb.Pipeline()
	p.Set(ctx, key, data, time.Duration(ttlSeconds)*time.Second)
	for _, id := range room.Players {
		p.Set(ctx, fmt.Sprintf("mm:playerRoom:%s", id), room.ID, time.Duration(ttlSeconds)*time.Second)
	}
	_, err := p.Exec(ctx)
	return err
}

func (r *redisRepo) Count(ctx context.Context, pool string, tableSize int) (int64, error) {
	return r.rdb.SCard(ctx, poolKey(pool, tableSize)).Result()
}

func (r *redisRepo) GetPlayerRoom(ctx context.Context, userID string) (string, error) {
	val, err := r.rdb.Get(ctx, fmt.Sprintf("mm:playerRoom:%s", userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
