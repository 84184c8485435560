package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"polymigrate/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	return c, mr
}

func TestRedisCacheGetMissingKey(t *testing.T) {
	c, _ := newTestCache(t)
	value, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "" {
		t.Fatalf("Get() = %q, want empty", value)
	}
}

func TestRedisCacheMGetPreservesOrder(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	mr.Set("a", "1")
	mr.Set("c", "3")

	values, err := c.MGet(ctx, "a", "b", "c")
	if err != nil {
		t.Fatalf("MGet() error = %v", err)
	}
	want := []cache.Value{{Data: "1", Found: true}, {}, {Data: "3", Found: true}}
	if len(values) != len(want) {
		t.Fatalf("len = %d, want %d", len(values), len(want))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("values[%d] = %+v, want %+v", i, values[i], want[i])
		}
	}
}

func TestRedisCacheTxPipelineAppliesTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	err := c.TxPipeline(ctx, func(pipe cache.Pipeliner) error {
		_ = pipe.Set("k1", "v1", time.Minute)
		_ = pipe.Set("k2", "v2", time.Minute)
		return nil
	})
	if err != nil {
		t.Fatalf("TxPipeline() error = %v", err)
	}
	if got, _ := mr.Get("k2"); got != "v2" {
		t.Fatalf("k2 = %q", got)
	}
	mr.FastForward(2 * time.Minute)
	if mr.Exists("k1") || mr.Exists("k2") {
		t.Fatal("keys should expire together")
	}
}

func TestRedisCacheTxPipelineAbortsOnCallbackError(t *testing.T) {
	c, mr := newTestCache(t)
	err := c.TxPipeline(context.Background(), func(pipe cache.Pipeliner) error {
		_ = pipe.Set("k", "v", 0)
		return fmt.Errorf("stop")
	})
	if err == nil {
		t.Fatal("expected callback error")
	}
	if mr.Exists("k") {
		t.Fatal("discarded pipeline must not write")
	}
}

func TestDeleteByPattern(t *testing.T) {
	c, mr := newTestCache(t)
	for i := 0; i < 25; i++ {
		mr.Set(fmt.Sprintf("ns_1_test_%d", i), "x")
	}
	mr.Set("ns_12_test_1", "keep")

	deleted, err := cache.DeleteByPattern(context.Background(), c, "ns_1_*", 10)
	if err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if deleted != 25 {
		t.Fatalf("deleted = %d, want 25", deleted)
	}
	if !mr.Exists("ns_12_test_1") {
		t.Fatal("key of another namespace was removed")
	}
}

func TestRedisConfigAddress(t *testing.T) {
	cases := []struct {
		cfg  cache.RedisConfig
		want string
	}{
		{cfg: cache.RedisConfig{Addr: "redis:6380", Host: "ignored"}, want: "redis:6380"},
		{cfg: cache.RedisConfig{Host: "cache.local"}, want: "cache.local:6379"},
		{cfg: cache.RedisConfig{Host: "cache.local", Port: 6390}, want: "cache.local:6390"},
		{cfg: cache.RedisConfig{}, want: ""},
	}
	for _, tc := range cases {
		if got := tc.cfg.Address(); got != tc.want {
			t.Fatalf("Address() = %q, want %q", got, tc.want)
		}
	}
}
