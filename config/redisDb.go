package config

import (
	"context"
	"log"
	"os"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// NewRedisLocker returns a redislock client, or nil when REDIS_ADDRESS is not
// configured or Redis is unreachable. Callers must treat a nil locker as
// "run without the lock": the lock is a best-effort optimization and
// correctness must not depend on Redis being up.
func NewRedisLocker() *redislock.Client {
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unreachable at %s: %v; continuing without job lock", address, err)
		return nil
	}
	return redislock.New(rdb)
}
