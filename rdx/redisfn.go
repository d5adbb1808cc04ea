package rdx

import (
	"log"
	"os"
	"time"

	"tirtha/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

func init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}

func RdxSet(key, value string) error {
	return Conn.Set(globals.Ctx, key, value, 0).Err()
}

func RdxSetTTL(key, value string, ttl time.Duration) error {
	return Conn.Set(globals.Ctx, key, value, ttl).Err()
}

func RdxGet(key string) (string, error) {
	return Conn.Get(globals.Ctx, key).Result()
}

func RdxDel(key string) error {
	return Conn.Del(globals.Ctx, key).Err()
}

func RdxHset(hash, key, value string) error {
	return Conn.HSet(globals.Ctx, hash, key, value).Err()
}

func RdxHget(hash, key string) (string, error) {
	return Conn.HGet(globals.Ctx, hash, key).Result()
}

// Invalidate is best-effort: a stale display cache only affects the query
// path, never reserve, which always reads authoritative state.
func Invalidate(key string) {
	if err := RdxDel(key); err != nil && err != redis.Nil {
		log.Printf("redis invalidate %s: %v", key, err)
	}
}
