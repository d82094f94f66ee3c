package cache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips when none is running.
// The integration build tag covers the same paths against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, DefaultOptions())
}

func TestManager_RedisKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	m := NewManager(client, Options{})
	got := m.RedisKey(Key{Path: "/ergast/f1/2021.json"})
	if got != "f1:ergast/f1/2021.json" {
		t.Errorf("RedisKey() = %q", got)
	}

	m = NewManager(client, Options{Prefix: "test"})
	if got := m.RedisKey(Key{Path: "a"}); got != "test:a" {
		t.Errorf("RedisKey() = %q", got)
	}
}

func TestManager_PutAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, Options{TTL: time.Minute})
	ctx := context.Background()

	key := Key{
		Path:  "/ergast/f1/2021/5/pitstops.json",
		Query: url.Values{"limit": {"1000"}, "offset": {"0"}},
	}
	body := []byte(`{"MRData":{"total":"3"}}`)

	if err := manager.Put(ctx, key, NewEntry("u", body)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Body) != string(body) {
		t.Errorf("Body = %s, want %s", got.Body, body)
	}

	ttl := client.TTL(ctx, manager.RedisKey(key)).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Redis TTL = %v, want (0, 1m]", ttl)
	}
}

func TestManager_ZeroTTLKeepsEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, Options{})
	ctx := context.Background()
	key := Key{Path: "/ergast/f1/2010.json"}

	if err := manager.Put(ctx, key, NewEntry("u", []byte("{}"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	// -1 means the key exists without expiry
	if ttl := client.TTL(ctx, manager.RedisKey(key)).Val(); ttl != -1 {
		t.Errorf("Redis TTL = %v, want no expiry", ttl)
	}
}

func TestManager_GetMiss(t *testing.T) {
	manager := NewManager(setupTestRedis(t), DefaultOptions())

	_, err := manager.Get(context.Background(), Key{Path: "/missing"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_InvalidEntryIsDropped(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, DefaultOptions())
	ctx := context.Background()
	key := Key{Path: "/corrupt"}

	if err := client.Set(ctx, manager.RedisKey(key), "not json", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("second Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_PutNil(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, DefaultOptions())
	if err := manager.Put(context.Background(), Key{}, nil); err == nil {
		t.Error("Put(nil) should fail")
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(setupTestRedis(t), DefaultOptions())
	ctx := context.Background()
	key := Key{Path: "/delete-me"}

	if err := manager.Put(ctx, key, NewEntry("u", []byte("x"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_PurgeSeason(t *testing.T) {
	manager := NewManager(setupTestRedis(t), DefaultOptions())
	ctx := context.Background()

	keep := Key{Path: "/ergast/f1/2023/1/results.json"}
	drop := []Key{
		{Path: "/ergast/f1/2024.json"},
		{Path: "/ergast/f1/2024/1/results.json", Query: url.Values{"limit": {"1000"}}},
		{Path: "/ergast/f1/2024/1/pitstops.json", Query: url.Values{"limit": {"1000"}, "offset": {"0"}}},
	}
	for _, k := range append(drop, keep) {
		if err := manager.Put(ctx, k, NewEntry("u", []byte("{}"))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	removed, err := manager.Purge(ctx, "/ergast/f1/2024")
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != len(drop) {
		t.Errorf("Purge() removed %d keys, want %d", removed, len(drop))
	}
	if _, err := manager.Get(ctx, keep); err != nil {
		t.Errorf("Get(other season) error = %v", err)
	}
	for _, k := range drop {
		if _, err := manager.Get(ctx, k); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Get(%s) error = %v, want ErrCacheMiss", k, err)
		}
	}
}
