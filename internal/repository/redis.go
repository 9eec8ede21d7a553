package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rentdapp/internal/config"
	"rentdapp/internal/models"

	"github.com/redis/go-redis/v9"
)

// Storage keys mirror the two browser storage entries of the web client.
const (
	keyToken = "auth_token"
	keyUser  = "current_user"
)

type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSessionRepository(client *redis.Client, prefix string) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, prefix: prefix}
}

func (r *RedisSessionRepository) Save(ctx context.Context, s models.Session) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	var user []byte
	if s.User != nil {
		var err error
		if user, err = json.Marshal(s.User); err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.prefix+keyToken, s.Token, 0)
		if user != nil {
			p.Set(ctx, r.prefix+keyUser, user, 0)
		} else {
			p.Del(ctx, r.prefix+keyUser)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Load(ctx context.Context) (*models.Session, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	vals, err := r.client.MGet(ctx, r.prefix+keyToken, r.prefix+keyUser).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}
	token, _ := vals[0].(string)
	if token == "" {
		return nil, nil
	}

	s := &models.Session{Token: token}
	if raw, ok := vals[1].(string); ok && raw != "" {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user: %w", err)
		}
		s.User = &u
	}
	return s, nil
}

func (r *RedisSessionRepository) Clear(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.prefix+keyToken, r.prefix+keyUser).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
