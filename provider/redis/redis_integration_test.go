//go:build integration

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// setupRedis starts a throwaway Redis container.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisRoundTrip(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	p, err := New(Config{Client: rdb, InstanceName: "SampleInstance"})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := p.Get(ctx, "book-key"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := p.Set(ctx, "book-key", []byte(`{"id":1}`), pr.EntryOptions{}); err != nil {
		t.Fatal(err)
	}
	b, ok, err := p.Get(ctx, "book-key")
	if err != nil || !ok || string(b) != `{"id":1}` {
		t.Fatalf("got %q %v %v", b, ok, err)
	}

	// instance name prefixes the physical key; no expiry by default
	ttl, err := rdb.PTTL(ctx, "SampleInstancebook-key").Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl != -1 {
		t.Fatalf("want persistent key, got ttl %v", ttl)
	}

	if err := p.Remove(ctx, "book-key"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "book-key"); ok {
		t.Fatal("expected miss after remove")
	}
}

func TestRedisSlidingRearm(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	p, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	p.now = func() time.Time { return now }

	if err := p.Set(ctx, "k", []byte("v"), pr.EntryOptions{Absolute: time.Hour, Sliding: 10 * time.Second}); err != nil {
		t.Fatal(err)
	}
	if ttl := rdb.PTTL(ctx, "k").Val(); ttl <= 0 || ttl > 10*time.Second {
		t.Fatalf("want sliding ttl, got %v", ttl)
	}

	// refresh close to the absolute deadline caps the window
	now = now.Add(time.Hour - 3*time.Second)
	if err := p.Refresh(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if ttl := rdb.PTTL(ctx, "k").Val(); ttl <= 0 || ttl > 3*time.Second {
		t.Fatalf("want ttl capped by absolute deadline, got %v", ttl)
	}

	// past the deadline the entry is removed on read
	now = now.Add(5 * time.Second)
	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("want miss past absolute deadline, got ok=%v err=%v", ok, err)
	}
	if n := rdb.Exists(ctx, "k").Val(); n != 0 {
		t.Fatal("expected key deleted")
	}
}

func TestRedisCloseOwnership(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	shared, _ := New(Config{Client: rdb})
	if err := shared.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("shared client must stay open: %v", err)
	}

	owned, _ := New(Config{Client: rdb, CloseClient: true})
	if err := owned.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := owned.Close(ctx); err != nil {
		t.Fatal("second close is a no-op")
	}
	if err := rdb.Ping(ctx).Err(); err == nil {
		t.Fatal("owned client must be closed")
	}
}

// interleave runs fn once, right after the first HMGET the client sends.
type interleave struct {
	once sync.Once
	fn   func()
}

func (h *interleave) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (h *interleave) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		err := next(ctx, cmd)
		if cmd.Name() == "hmget" {
			h.once.Do(h.fn)
		}
		return err
	}
}

func (h *interleave) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func TestRedisReadDoesNotRearmConcurrentWrite(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	writer, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.Set(ctx, "k", []byte("old"), pr.EntryOptions{Sliding: time.Minute}); err != nil {
		t.Fatal(err)
	}

	// a second client whose reads race a persistent overwrite
	readerClient := goredis.NewClient(&goredis.Options{Addr: rdb.Options().Addr})
	t.Cleanup(func() { _ = readerClient.Close() })
	readerClient.AddHook(&interleave{fn: func() {
		if err := writer.Set(ctx, "k", []byte("new"), pr.EntryOptions{}); err != nil {
			t.Error(err)
		}
	}})
	reader, err := New(Config{Client: readerClient})
	if err != nil {
		t.Fatal(err)
	}

	b, ok, err := reader.Get(ctx, "k")
	if err != nil || !ok || string(b) != "old" {
		t.Fatalf("want snapshot read of old entry, got %q %v %v", b, ok, err)
	}
	if ttl := rdb.PTTL(ctx, "k").Val(); ttl != -1 {
		t.Fatalf("concurrent persistent write must keep no expiry, got ttl %v", ttl)
	}
	if v := rdb.HGet(ctx, "k", fieldData).Val(); v != "new" {
		t.Fatalf("want new data, got %q", v)
	}
}
