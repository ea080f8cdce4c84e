package bitrix

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Requires a disposable redis: REDIS_ADDR_TEST=localhost:6379 go test ./pkg/bitrix
func TestRedisSnapshotSourceSharesLoads(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("set REDIS_ADDR_TEST to run redis tests")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	inner := &staticSource{snap: CategorySnapshot{
		Legacy:    map[string]string{"3": "Wholesale"},
		Universal: map[string]string{"7": "Retail"},
	}}
	src := NewRedisSnapshotSource(client, inner, time.Minute)
	src.key = "ledger:test:" + t.Name()
	t.Cleanup(func() { client.Del(ctx, src.key) })

	first := src.LoadCategories(ctx)
	second := src.LoadCategories(ctx)
	if inner.loads != 1 {
		t.Fatalf("inner loads = %d, want 1", inner.loads)
	}
	if first.Legacy["3"] != "Wholesale" || second.Universal["7"] != "Retail" {
		t.Fatalf("snapshots = %+v / %+v", first, second)
	}
}

func TestRedisSnapshotSourceFallsThroughWhenDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	inner := &staticSource{snap: CategorySnapshot{Legacy: map[string]string{"3": "Wholesale"}}}
	src := NewRedisSnapshotSource(client, inner, time.Minute)

	snap := src.LoadCategories(context.Background())
	if snap.Legacy["3"] != "Wholesale" || inner.loads != 1 {
		t.Fatalf("snapshot = %+v, loads = %d", snap, inner.loads)
	}
}

func TestRedisSnapshotUsableWithinTTL(t *testing.T) {
	clock := newFakeClock()
	src := NewRedisSnapshotSource(nil, &staticSource{}, 10*time.Minute)
	src.now = clock.Now

	cases := []struct {
		name     string
		loadedAt time.Time
		want     bool
	}{
		{"no load time", time.Time{}, false},
		{"just loaded", clock.Now(), true},
		{"nine minutes old", clock.Now().Add(-9 * time.Minute), true},
		{"exactly one ttl old", clock.Now().Add(-10 * time.Minute), false},
		{"older than ttl", clock.Now().Add(-19 * time.Minute), false},
	}
	for _, tc := range cases {
		snap := CategorySnapshot{Legacy: map[string]string{"3": "Wholesale"}, LoadedAt: tc.loadedAt}
		if got := src.usable(snap); got != tc.want {
			t.Errorf("%s: usable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRedisSnapshotStampsInnerLoads(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	clock := newFakeClock()

	src := NewRedisSnapshotSource(client, &staticSource{snap: CategorySnapshot{Legacy: map[string]string{"3": "Wholesale"}}}, time.Minute)
	src.now = clock.Now

	snap := src.LoadCategories(context.Background())
	if !snap.LoadedAt.Equal(clock.Now()) {
		t.Fatalf("LoadedAt = %v, want %v", snap.LoadedAt, clock.Now())
	}
}
