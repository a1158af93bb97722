package bus

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"docchat/internal/config"
	"docchat/internal/models"
	"docchat/internal/redis"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed bus tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	client, err := redis.NewClient(config.RedisConfig{Host: host, Port: port, DB: db})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func newRedisBus(t *testing.T) *Redis {
	t.Helper()
	b, err := NewRedis(newTestRedisClient(t))
	if err != nil {
		t.Fatalf("create redis bus: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRedisBusCrossInstanceDelivery(t *testing.T) {
	a := newRedisBus(t)
	b := newRedisBus(t)
	// Give both listeners a moment to finish subscribing.
	time.Sleep(100 * time.Millisecond)

	type delivery struct{ s *models.Session }
	got := make(chan delivery, 4)
	b.Subscribe(func(s *models.Session) { got <- delivery{s} })

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := &models.Session{UploadID: "abc123", Filename: "doc.pdf", CreatedAt: created, Status: "45%"}
	if err := a.Announce(context.Background(), in); err != nil {
		t.Fatalf("announce: %v", err)
	}
	select {
	case d := <-got:
		if d.s == nil || d.s.UploadID != "abc123" || d.s.Status != "45%" || !d.s.CreatedAt.Equal(created) {
			t.Fatalf("envelope mangled in transit: %#v", d.s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("announcement never reached the other instance")
	}

	if err := a.Announce(context.Background(), nil); err != nil {
		t.Fatalf("announce nil: %v", err)
	}
	select {
	case d := <-got:
		if d.s != nil {
			t.Fatalf("expected nil delivery, got %#v", d.s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("nil announcement never reached the other instance")
	}
}

func TestRedisBusSkipsOwnPublications(t *testing.T) {
	a := newRedisBus(t)
	time.Sleep(100 * time.Millisecond)

	got := make(chan *models.Session, 4)
	a.Subscribe(func(s *models.Session) { got <- s })

	if err := a.Announce(context.Background(), &models.Session{UploadID: "self", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("announce: %v", err)
	}

	select {
	case s := <-got:
		if s == nil || s.UploadID != "self" {
			t.Fatalf("local delivery wrong: %#v", s)
		}
	default:
		t.Fatalf("local subscribers must be served synchronously")
	}

	// The published envelope must not loop back to the announcer.
	select {
	case s := <-got:
		t.Fatalf("own publication delivered twice: %#v", s)
	case <-time.After(500 * time.Millisecond):
	}
}
