package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(ttl)
	s.now = clock.now
	return s, clock
}

func TestMemoryStore_PutGet(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss on empty store, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "k", []byte(`{"price":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"price":1}` {
		t.Errorf("unexpected payload %s", got)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx := context.Background()
	payload := []byte("abc")
	s.Put(ctx, "k", payload)
	payload[0] = 'x'

	got, _, _ := s.Get(ctx, "k")
	got[1] = 'y'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored payload was mutated: %s", again)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	ctx := context.Background()
	s.Put(ctx, "k", []byte("v"))

	clock.t = clock.t.Add(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Error("expected hit before ttl")
	}
	clock.t = clock.t.Add(time.Second)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected miss at ttl")
	}
	if s.Len() != 0 {
		t.Errorf("expired entry should be removed, len=%d", s.Len())
	}
}

func TestMemoryStore_ZeroTTLDisablesCaching(t *testing.T) {
	s, _ := newTestStore(0)
	s.Put(context.Background(), "k", []byte("v"))
	if s.Len() != 0 {
		t.Errorf("expected nothing cached, len=%d", s.Len())
	}
}

func TestMemoryStore_BoundedSize(t *testing.T) {
	s, clock := newTestStore(time.Hour)
	s.maxEntries = 3
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		clock.t = clock.t.Add(time.Second)
		s.Put(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "k0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok, _ := s.Get(ctx, "k4"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestKey_Deterministic(t *testing.T) {
	type req struct {
		S    float64 `json:"S"`
		Seed uint64  `json:"seed"`
	}
	a, err := Key("european_price", req{S: 100, Seed: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Key("european_price", req{S: 100, Seed: 1})
	if a != b {
		t.Error("identical requests should share a key")
	}
	if c, _ := Key("european_price", req{S: 100, Seed: 2}); c == a {
		t.Error("different seeds should not share a key")
	}
	if d, _ := Key("lattice_price", req{S: 100, Seed: 1}); d == a {
		t.Error("different methods should not share a key")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
}
