package status

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}

	start := time.Now()
	_ = s.Set(ctx, "s1", Status{ExportID: "e1", State: StateRunning, Mode: "archive", Start: &start})
	_ = s.Set(ctx, "s1", Status{ExportID: "e1", State: StateSucceeded, Mode: "archive", Start: &start})

	st, ok, err := s.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Get(s1) = %v, %v", ok, err)
	}
	if st.State != StateSucceeded || st.ExportID != "e1" {
		t.Errorf("status = %+v", st)
	}
}

func TestMemoryRelease(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.Set(ctx, "s1", Status{State: StateSucceeded})
	_ = s.Set(ctx, "s2", Status{State: StateRunning})

	if err := s.Release(ctx, "s1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "s1"); ok {
		t.Error("s1 still present after Release")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if err := s.Release(ctx, "unknown"); err != nil {
		t.Errorf("Release(unknown) = %v", err)
	}
}

func TestNewRedisGivesUpOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	start := time.Now()
	url := "redis://" + ln.Addr().String() + "/0?read_timeout=-1&write_timeout=-1"
	if _, err := NewRedis(url, time.Minute); err == nil {
		t.Fatal("connected to a server that never answers")
	}
	if took := time.Since(start); took > connectTimeout+2*time.Second {
		t.Errorf("NewRedis took %v", took)
	}
}
