package storage

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryPingStoreUpsertGet(t *testing.T) {
	store := NewMemoryPingStore()
	ts := time.Now()

	if err := store.Upsert("walk-1", 44.98, -93.26, ts); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ping, err := store.Get("walk-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ping.Latitude != 44.98 || ping.Longitude != -93.26 {
		t.Fatalf("got (%f, %f), want (44.98, -93.26)", ping.Latitude, ping.Longitude)
	}
	if !ping.Timestamp.Equal(ts) {
		t.Fatalf("timestamp = %v, want %v", ping.Timestamp, ts)
	}
}

func TestMemoryPingStoreNotFound(t *testing.T) {
	store := NewMemoryPingStore()
	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryPingStoreLastWriteWins(t *testing.T) {
	store := NewMemoryPingStore()
	newer := time.Now()
	older := newer.Add(-time.Minute)

	store.Upsert("walk-1", 44.98, -93.26, newer)
	// A stale out-of-order write overwrites unconditionally.
	store.Upsert("walk-1", 45.00, -93.00, older)

	ping, err := store.Get("walk-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ping.Latitude != 45.00 || !ping.Timestamp.Equal(older) {
		t.Fatalf("stale write should win: got %+v", ping)
	}
}

func TestMemoryPingStoreRetentionSweep(t *testing.T) {
	store := NewMemoryPingStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Upsert("old", 44.98, -93.26, now.Add(-13*time.Hour))
	store.Upsert("fresh", 45.00, -93.00, now.Add(-time.Hour))

	// The sweep rode on the second upsert and removed the 13h-old record.
	if _, err := store.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired ping should be swept, got %v", err)
	}
	if _, err := store.Get("fresh"); err != nil {
		t.Fatalf("fresh ping must survive the sweep: %v", err)
	}
}

func TestMemoryPingStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryPingStore()
	store.Upsert("walk-1", 44.98, -93.26, time.Now())

	ping, _ := store.Get("walk-1")
	ping.Latitude = 0

	again, _ := store.Get("walk-1")
	if again.Latitude != 44.98 {
		t.Fatal("mutating a returned ping must not affect the store")
	}
}
