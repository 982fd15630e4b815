package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys, per owner.
const (
	outstandingKeyFmt = "udhaar:outstanding:%d"
	lowStockKeyFmt    = "stock:low:%d"

	reportTTL = 2 * time.Minute
)

var client *redis.Client

// Init initializes the Redis connection. The cache degrades gracefully: when
// Redis is unavailable every lookup is a miss and writes are no-ops.
func Init() error {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetOutstanding returns the cached outstanding-udhaar listing for an owner.
func GetOutstanding(ctx context.Context, ownerID int64) ([]byte, bool) {
	return get(ctx, fmt.Sprintf(outstandingKeyFmt, ownerID))
}

// SetOutstanding caches the outstanding-udhaar listing for an owner.
func SetOutstanding(ctx context.Context, ownerID int64, data []byte) {
	set(ctx, fmt.Sprintf(outstandingKeyFmt, ownerID), data)
}

// InvalidateOutstanding drops the cached listing after any ledger mutation.
func InvalidateOutstanding(ctx context.Context, ownerID int64) {
	del(ctx, fmt.Sprintf(outstandingKeyFmt, ownerID))
}

// GetLowStock returns the cached low-stock report for an owner.
func GetLowStock(ctx context.Context, ownerID int64) ([]byte, bool) {
	return get(ctx, fmt.Sprintf(lowStockKeyFmt, ownerID))
}

// SetLowStock caches the low-stock report for an owner.
func SetLowStock(ctx context.Context, ownerID int64, data []byte) {
	set(ctx, fmt.Sprintf(lowStockKeyFmt, ownerID), data)
}

// InvalidateLowStock drops the cached report after any stock mutation.
func InvalidateLowStock(ctx context.Context, ownerID int64) {
	del(ctx, fmt.Sprintf(lowStockKeyFmt, ownerID))
}

func get(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func set(ctx context.Context, key string, data []byte) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, reportTTL)
}

func del(ctx context.Context, key string) {
	if client == nil {
		return
	}
	client.Del(ctx, key)
}
