package docstore_test

import (
	"context"
	"testing"
	"time"

	"powerplay/internal/docstore"
	"powerplay/internal/testsupport"
)

func collectEvents(t *testing.T, events <-chan docstore.Event, want int) []docstore.Event {
	t.Helper()

	collected := make([]docstore.Event, 0, want)
	deadline := time.After(5 * time.Second)
	for len(collected) < want {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("feed closed after %d of %d events", len(collected), want)
			}
			collected = append(collected, event)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(collected), want)
		}
	}
	return collected
}

func TestWatcherEmitsSnapshotThenChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	existing := testsupport.NewItem(t, store, "existing@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := docstore.NewWatcher(store, 10*time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx)
	}()

	snapshot := collectEvents(t, watcher.Events(), 1)
	if !snapshot[0].Initial || snapshot[0].Item.ID != existing.ID {
		t.Fatalf("expected initial snapshot of existing item, got %#v", snapshot[0])
	}

	if _, err := store.SetScore(context.Background(), existing.ID, 310); err != nil {
		t.Fatalf("SetScore failed: %v", err)
	}
	created, err := store.Create(context.Background(), "late@example.com", testsupport.NewInputs("late@example.com"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	live := collectEvents(t, watcher.Events(), 2)
	for _, event := range live {
		if event.Initial {
			t.Fatalf("live change flagged as initial: %#v", event)
		}
	}
	if live[0].Item.ID != existing.ID || live[1].Item.ID != created.ID {
		t.Fatalf("changes out of write order: %s, %s", live[0].Item.ID, live[1].Item.ID)
	}
	if live[0].Item.Score == nil || *live[0].Item.Score != 310 {
		t.Fatalf("change event carries stale score: %#v", live[0].Item.Score)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcherCoalescesRepeatedWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "busy@example.com")

	// Several writes landing between polls surface as one event carrying
	// the latest state.
	for score := int64(1); score <= 3; score++ {
		if _, err := store.SetScore(context.Background(), item.ID, score); err != nil {
			t.Fatalf("SetScore failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := docstore.NewWatcher(store, 10*time.Millisecond, nil)
	go func() { _ = watcher.Run(ctx) }()

	events := collectEvents(t, watcher.Events(), 1)
	if !events[0].Initial {
		t.Fatalf("expected snapshot event, got %#v", events[0])
	}
	if events[0].Item.Score == nil || *events[0].Item.Score != 3 {
		t.Fatalf("snapshot should carry the latest write: %#v", events[0].Item.Score)
	}
}
