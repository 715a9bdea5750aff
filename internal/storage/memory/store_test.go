package memory

import (
	"context"
	"errors"
	"testing"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	buf := []byte("hello")
	if err := s.Set(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'j'
	v, ok, _ := s.Get(ctx, "k")
	if !ok || string(v) != "hello" {
		t.Fatalf("stored value must be a copy, got %q", v)
	}

	s.FailWrites = errors.New("disk full")
	if err := s.Set(ctx, "k", []byte("x")); err == nil {
		t.Fatal("expected write failure")
	}
	s.FailWrites = nil

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected empty store after clear")
	}
}
