package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetProducts(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	if err := r.get(ctx, KeyProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *RedisCache) SetProducts(ctx context.Context, products []*domain.Product) error {
	return r.set(ctx, KeyProducts, products)
}

func (r *RedisCache) GetCategories(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	if err := r.get(ctx, KeyCategories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *RedisCache) SetCategories(ctx context.Context, categories []*domain.Category) error {
	return r.set(ctx, KeyCategories, categories)
}

func (r *RedisCache) GetSales(ctx context.Context) ([]*domain.Sale, error) {
	var sales []*domain.Sale
	if err := r.get(ctx, KeySales, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *RedisCache) SetSales(ctx context.Context, sales []*domain.Sale) error {
	return r.set(ctx, KeySales, sales)
}

func (r *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	// Jitter spreads expiry so the three views don't all miss at once.
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
