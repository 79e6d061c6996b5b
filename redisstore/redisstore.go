// Package redisstore holds the shared Redis client used for ephemeral
// client-side state: staged dispatch contexts, proof-of-delivery references
// and per-agent submitted-bid sets. It stands in for the browser-local
// storage the web dashboards would use.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"campusbites-telegram/config"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

func Init(cfg config.RedisConfig) error {
	client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func Client() *redis.Client {
	return client
}

func Close() {
	if client != nil {
		_ = client.Close()
	}
}
