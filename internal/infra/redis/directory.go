package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DirectoryLoader fetches display names from a backing store.
type DirectoryLoader interface {
	LoadDisplayName(ctx context.Context, userID string) (string, error)
}

// Directory caches user display names in Redis:
//
//	SET user:{userID}:name {displayName}
type Directory struct {
	client *redis.Client
	loader DirectoryLoader
	ttl    time.Duration
}

func NewDirectory(client *redis.Client, loader DirectoryLoader, ttl time.Duration) *Directory {
	return &Directory{client: client, loader: loader, ttl: ttl}
}

func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	key := userKey(userID)
	if name, err := d.client.Get(ctx, key).Result(); err == nil && name != "" {
		return name, nil
	}

	name, err := d.loader.LoadDisplayName(ctx, userID)
	if err != nil {
		return "", err
	}
	_ = d.client.Set(ctx, key, name, d.ttl).Err()
	return name, nil
}

func userKey(userID string) string {
	return "user:" + userID + ":name"
}
