package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nbeast/nbeast/internal/domain"
	redisinfra "github.com/nbeast/nbeast/internal/infrastructure/redis"
)

func newTestCache(t *testing.T) (*redisinfra.SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return redisinfra.NewSessionCache(client, time.Minute), mr
}

func testSession() *domain.Session {
	return &domain.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Email:     "test@example.com",
		Name:      "Test",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func TestSessionCache_SetThenGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	want := testSession()

	if err := cache.Set(ctx, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := cache.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil, want session")
	}
	if got.UserID != want.UserID || got.Email != want.Email {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSessionCache_MissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
}

func TestSessionCache_ExpiresAfterTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, testSession()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get after TTL = %+v, want nil", got)
	}
}

func TestSessionCache_DeleteRemovesEntry(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, testSession()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := cache.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get after Delete = %+v, want nil", got)
	}
}

func TestSessionCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)

	mr.Set("session:sess-1", "{not json")

	got, err := cache.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil for corrupt entry", got)
	}
}
