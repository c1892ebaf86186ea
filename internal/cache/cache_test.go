package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dealmint/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	if err := SetPromotion(ctx, &PromotionSnapshot{ID: "p-1"}, time.Second); err != nil {
		t.Fatalf("set on disabled cache failed: %v", err)
	}
	got, hit, err := GetPromotion(ctx, "p-1")
	if err != nil || hit || got != nil {
		t.Fatalf("disabled cache should miss: %v %v %v", got, hit, err)
	}
	if err := InvalidatePromotion(ctx, "p-1"); err != nil {
		t.Fatalf("invalidate on disabled cache failed: %v", err)
	}
	if err := Ping(ctx); err != nil {
		t.Fatalf("ping on disabled cache failed: %v", err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	client, prefix := NewClient(&config.RedisConfig{Enabled: true})
	defer client.Close()
	if prefix != "dm" {
		t.Fatalf("default prefix want dm got %s", prefix)
	}
	old := redisPrefix
	redisPrefix = prefix
	t.Cleanup(func() { redisPrefix = old })
	if got := buildKey(promotionKey("abc")); got != "dm:promotion:abc" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := buildKey("  "); got != "dm" {
		t.Fatalf("blank key should map to prefix, got %s", got)
	}
}
