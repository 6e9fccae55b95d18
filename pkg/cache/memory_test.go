package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "book:1:google_books", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, err := store.Get(ctx, "book:1:google_books")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Get = %q, want payload", data)
	}
}

func TestMemoryStore_MissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "book:absent:google_books")
	if err != ErrCacheMiss {
		t.Errorf("Get missing key error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := store.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("expired Get error = %v, want ErrCacheMiss", err)
	}
	if store.Len() != 0 {
		t.Error("expired item should be dropped on read")
	}
}

func TestMemoryStore_NonPositiveTTLNotStored(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if store.Len() != 0 {
		t.Error("zero TTL item should not be stored")
	}
}

func TestMemoryStore_DeleteByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	keys := []string{
		"book:9783161484100:google_books",
		"book:9783161484100:open_library",
		"book:9783161484100:ny_times",
		"book:9780306406157:google_books",
	}
	for _, k := range keys {
		if err := store.Set(ctx, k, []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	if err := store.DeleteByPrefix(ctx, "book:9783161484100:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}

	for _, k := range keys[:3] {
		if _, err := store.Get(ctx, k); err != ErrCacheMiss {
			t.Errorf("key %s should be gone", k)
		}
	}
	if _, err := store.Get(ctx, keys[3]); err != nil {
		t.Errorf("unrelated key %s should survive: %v", keys[3], err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = store.Set(ctx, "k", []byte("v"), time.Hour)
		}
	}()
	for i := 0; i < 200; i++ {
		_, _ = store.Get(ctx, "k")
	}
	<-done
}
