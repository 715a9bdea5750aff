package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "expensy.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "a", []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "a", []byte(`[1,2]`)); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || string(v) != `[1,2]` {
		t.Fatalf("get a = %q,%v,%v", v, ok, err)
	}

	if err := s.Set(ctx, "b", nil); err != nil {
		t.Fatal(err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys = %v (%v)", keys, err)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatal("a should be deleted")
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("keys after clear = %v", keys)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	again, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	v, ok, err := again.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("after reopen = %q,%v,%v", v, ok, err)
	}
}
