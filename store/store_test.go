package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rushteam/tagspace/core"
)

func exercise(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()
	key := "tagspace-test/0"

	if _, err := s.Get(ctx, key); !core.IsStoreNotFound(err) {
		t.Fatalf("Get() before Set error = %v, want not found", err)
	}
	if err := s.Set(ctx, key, []byte("blob")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff([]byte("blob"), got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, key); !core.IsNotFound(err) {
		t.Errorf("Get() after Delete error = %v, want not found", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exercise(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v := []byte("abc")
	_ = s.Set(ctx, "k", v)
	v[0] = 'x'
	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer s.Close()
	exercise(t, s)
}
