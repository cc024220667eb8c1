package database

import (
	"context"
	"fmt"

	"github.com/amirrezaask/randomset/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// NewRedis connects to Redis and pings it once.
func NewRedis(ctx context.Context, c RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		DB:       c.DB,
		Username: c.Username,
		Password: c.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "cannot ping redis at %s:%d", c.Host, c.Port)
	}

	return client, nil
}
