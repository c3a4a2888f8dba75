package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestComputeHash(t *testing.T) {
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	content, _ := json.Marshal(map[string]any{"title": "write report"})

	h1 := computeHash("", "id1", "task.created", 7, now, content)
	h2 := computeHash("", "id1", "task.created", 7, now, content)
	if h1 != h2 {
		t.Fatalf("same inputs should produce same hash: %s != %s", h1, h2)
	}

	if h3 := computeHash("", "id2", "task.created", 7, now, content); h1 == h3 {
		t.Fatalf("different ID should produce different hash")
	}
	if h4 := computeHash("prevhash", "id1", "task.created", 7, now, content); h1 == h4 {
		t.Fatalf("different prevHash should produce different hash")
	}
	if h5 := computeHash("", "id1", "task.created", 8, now, content); h1 == h5 {
		t.Fatalf("different task ID should produce different hash")
	}
}

func TestMemStoreChain(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	first, err := s.Append(ctx, "task.created", 1, map[string]any{"title": "a"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := s.Append(ctx, "task.completed", 1, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, "settings.updated", 0, map[string]any{"topN": 5}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if first.PrevHash != "" {
		t.Errorf("first entry prev_hash = %q, want empty", first.PrevHash)
	}
	if second.PrevHash != first.Hash {
		t.Errorf("second entry not chained to first")
	}
	if err := s.VerifyChain(ctx); err != nil {
		t.Fatalf("verify chain: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	recent, _ := s.Recent(ctx, 2)
	if len(recent) != 2 || recent[0].Type != "settings.updated" || recent[1].Type != "task.completed" {
		t.Fatalf("recent returned wrong entries: %+v", recent)
	}

	byTask, _ := s.ByTask(ctx, 1, 10)
	if len(byTask) != 2 {
		t.Fatalf("by task = %d entries, want 2", len(byTask))
	}

	since, err := s.Since(ctx, first.ID, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(since) != 2 || since[0].ID != second.ID {
		t.Fatalf("since returned wrong entries: %+v", since)
	}
}

func TestMemStoreDetectsTampering(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.Append(ctx, "task.created", 1, map[string]any{"title": "a"})
	s.Append(ctx, "task.created", 2, map[string]any{"title": "b"})

	s.entries[0].Content["title"] = "tampered"
	if err := s.VerifyChain(ctx); err == nil {
		t.Fatal("expected verify to fail after tampering")
	}
}

func TestBusFansOut(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(NewMemStore())
	ch := bus.Subscribe(0)
	defer bus.Unsubscribe(ch)

	e, err := bus.Append(ctx, "task.created", 3, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case got := <-ch:
		if got.ID != e.ID {
			t.Fatalf("subscriber got %s, want %s", got.ID, e.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}
}

func TestBusTaskFilter(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(NewMemStore())
	only7 := bus.Subscribe(7)
	defer bus.Unsubscribe(only7)

	bus.Append(ctx, "task.created", 3, nil)
	bus.Append(ctx, "settings.updated", 0, nil)
	want, err := bus.Append(ctx, "task.completed", 7, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case got := <-only7:
		if got.ID != want.ID {
			t.Fatalf("filtered subscriber got %s (%s), want %s", got.Type, got.ID, want.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber did not receive its task's entry")
	}
	if len(only7) != 0 {
		t.Fatalf("%d unrelated entries delivered", len(only7))
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(NewMemStore())
	ch := bus.Subscribe(0)
	defer bus.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+10; i++ {
		if _, err := bus.Append(ctx, "task.updated", 1, nil); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered %d entries, want %d", len(ch), subscriberBuffer)
	}
	if n, _ := bus.Count(ctx); n != subscriberBuffer+10 {
		t.Fatalf("store has %d entries, want every append recorded", n)
	}
}
