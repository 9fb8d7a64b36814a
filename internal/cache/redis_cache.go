package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kamepos/backend/internal/domain"
)

const productListKey = "catalog:products"

type RedisCatalog struct {
	client      *redis.Client
	feedChannel string
}

func NewRedisCatalog(addr string, password string, db int, feedChannel string) *RedisCatalog {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalog{client: client, feedChannel: feedChannel}
}

func (c *RedisCatalog) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalog) Close() error {
	return c.client.Close()
}

func (c *RedisCatalog) GetProducts(ctx context.Context) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, productListKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCatalog) SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productListKey, payload, ttl).Err()
}

func (c *RedisCatalog) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, productListKey).Err()
}

func (c *RedisCatalog) PublishCatalogEvent(ctx context.Context, event domain.CatalogEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.feedChannel, payload).Err()
}
