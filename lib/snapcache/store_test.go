// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package snapcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// cachedView is a stand-in for a dashboard snapshot.
type cachedView struct {
	EventName string `cbor:"event_name"`
	Total     int    `cbor:"total"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestStoreRoundTrip verifies Put then Get returns the snapshot and
// its timestamp.
func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	savedAt := time.Date(2026, 6, 20, 21, 30, 0, 0, time.UTC)

	in := cachedView{EventName: "Arena Night", Total: 12}
	if err := store.Put(ctx, "7", in, savedAt); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out cachedView
	gotSavedAt, ok, err := store.Get(ctx, "7", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get: ok = false after Put")
	}
	if out != in {
		t.Fatalf("Get = %+v, want %+v", out, in)
	}
	if !gotSavedAt.Equal(savedAt) {
		t.Fatalf("savedAt = %v, want %v", gotSavedAt, savedAt)
	}
}

// TestStoreGetMissing verifies a cache miss is not an error.
func TestStoreGetMissing(t *testing.T) {
	store := openTestStore(t)

	var out cachedView
	_, ok, err := store.Get(context.Background(), "absent", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get: ok = true for missing event")
	}
}

// TestStorePutOverwrites verifies a changed snapshot replaces the
// stored one.
func TestStorePutOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "7", cachedView{Total: 1}, time.Unix(100, 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "7", cachedView{Total: 2}, time.Unix(200, 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out cachedView
	_, ok, err := store.Get(ctx, "7", &out)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if out.Total != 2 {
		t.Fatalf("Total = %d, want 2", out.Total)
	}
}

// TestStorePutUnchangedRefreshesTimestamp verifies the digest check:
// an identical snapshot only updates saved_at.
func TestStorePutUnchangedRefreshesTimestamp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	view := cachedView{EventName: "Arena Night", Total: 5}

	if err := store.Put(ctx, "7", view, time.UnixMilli(1000)); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := store.Put(ctx, "7", view, time.UnixMilli(2000)); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	var out cachedView
	savedAt, ok, err := store.Get(ctx, "7", &out)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if savedAt.UnixMilli() != 2000 {
		t.Fatalf("savedAt = %d, want 2000", savedAt.UnixMilli())
	}
	if out != view {
		t.Fatalf("Get = %+v, want %+v", out, view)
	}
}

// TestStoreSeparateEvents verifies snapshots are keyed by event.
func TestStoreSeparateEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "7", cachedView{Total: 7}, now); err != nil {
		t.Fatalf("Put 7: %v", err)
	}
	if err := store.Put(ctx, "8", cachedView{Total: 8}, now); err != nil {
		t.Fatalf("Put 8: %v", err)
	}

	var out cachedView
	if _, ok, _ := store.Get(ctx, "7", &out); !ok || out.Total != 7 {
		t.Fatalf("event 7 = %+v ok=%v", out, ok)
	}
	if _, ok, _ := store.Get(ctx, "8", &out); !ok || out.Total != 8 {
		t.Fatalf("event 8 = %+v ok=%v", out, ok)
	}
}
