package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// InitRedis initializes the redis client backing the billing event queue
// and the auth token blacklist. Redis is optional: when the connection
// fails the server runs on, dropping events and skipping blacklist checks.
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dial_timeout", 5*time.Second)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    viper.GetString("redis.password"),
		DB:          viper.GetInt("redis.db"),
		DialTimeout: viper.GetDuration("redis.dial_timeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("redis.dial_timeout"))
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] Connection to %s failed, events and token blacklist disabled: %v", addr, err)
		return nil
	}

	log.Printf("[REDIS] Connected to %s", addr)
	return rdb
}
