package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openMemory(t *testing.T, ttl time.Duration) *PayloadCache {
	t.Helper()
	c, err := Open("", ttl)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPayloadCache_SetGet(t *testing.T) {
	c := openMemory(t, 0)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "match:NA1_1"); err != nil || ok {
		t.Fatalf("Get on empty cache = ok %v, err %v", ok, err)
	}

	body := []byte(`{"metadata":{"matchId":"NA1_1"}}`)
	if err := c.Set(ctx, "match:NA1_1", body); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, "match:NA1_1")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if string(got) != string(body) {
		t.Errorf("Get = %s, want %s", got, body)
	}

	// keys do not collide across kinds
	if _, ok, _ := c.Get(ctx, "timeline:NA1_1"); ok {
		t.Error("timeline key should be absent")
	}
}

func TestPayloadCache_TTL(t *testing.T) {
	// badger TTLs have one second resolution
	c := openMemory(t, time.Second)
	ctx := context.Background()

	if err := c.Set(ctx, "match:NA1_2", []byte("{}")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(2100 * time.Millisecond)

	if _, ok, err := c.Get(ctx, "match:NA1_2"); err != nil || ok {
		t.Errorf("expired entry: ok %v, err %v", ok, err)
	}
}

func TestPayloadCache_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := Open(dir, time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Set(ctx, "timeline:NA1_3", []byte(`{"info":{}}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, time.Hour)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if _, ok, err := reopened.Get(ctx, "timeline:NA1_3"); err != nil || !ok {
		t.Errorf("entry should survive reopen: ok %v, err %v", ok, err)
	}
}

func TestPayloadCache_ServeStopsOnCancel(t *testing.T) {
	c := openMemory(t, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
