package thumbstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryPutGetRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "s1", "a.pdf-1", []byte("jpeg")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = m.Put(ctx, "s2", "b.pdf-1", []byte("other"))

	got, err := m.Get(ctx, "s1", "a.pdf-1")
	if err != nil || string(got) != "jpeg" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := m.Get(ctx, "s1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.Release(ctx, "s1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := m.Get(ctx, "s1", "a.pdf-1"); !errors.Is(err, ErrNotFound) {
		t.Error("blob survived Release")
	}
	if m.Sessions() != 1 {
		t.Errorf("Sessions() = %d, want 1", m.Sessions())
	}
}
