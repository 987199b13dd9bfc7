package storage

import (
	"testing"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/feedbin"
)

func TestBoltStoreMarksAndExpiresEntries(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		EntryTTL:        1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/feedbin.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.SeenEntry("2077")
	if err != nil || seen {
		t.Fatalf("expected unseen entry, seen=%v err=%v", seen, err)
	}

	if err := store.MarkEntry("2077"); err != nil {
		t.Fatalf("MarkEntry: %v", err)
	}

	seen, err = store.SeenEntry("2077")
	if err != nil || !seen {
		t.Fatalf("expected entry marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenEntry("2077")
	if err != nil {
		t.Fatalf("SeenEntry after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStorePersistsMetadata(t *testing.T) {
	path := t.TempDir() + "/feedbin.db"
	store, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	md, err := store.LoadMetadata("me@example.com")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if _, ok := md.LastArticleFetch(); ok {
		t.Fatalf("expected empty metadata for new account")
	}

	fetched := time.Date(2025, time.June, 15, 12, 0, 5, 0, time.UTC)
	md.SetLastArticleFetch(fetched)
	md.SetConditionalGet(feedbin.KeyTaggings, feedbin.ConditionalGetInfo{ETag: `"t1"`})
	if err := store.SaveMetadata("me@example.com", md); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadMetadata("me@example.com")
	if err != nil {
		t.Fatalf("LoadMetadata after reopen: %v", err)
	}
	if last, ok := loaded.LastArticleFetch(); !ok || !last.Equal(fetched) {
		t.Fatalf("last article fetch = %v ok=%v", last, ok)
	}
	if info, _ := loaded.ConditionalGet(feedbin.KeyTaggings); info.ETag != `"t1"` {
		t.Fatalf("conditional get = %#v", info)
	}
	if other, err := reopened.LoadMetadata("other@example.com"); err != nil || other == nil {
		t.Fatalf("expected empty metadata for other account, got %v %v", other, err)
	}
}

func TestNewStoreSupportsMemory(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkEntry("x"); err != nil {
		t.Fatalf("memory store MarkEntry: %v", err)
	}
	md, err := store.LoadMetadata("a")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	again, _ := store.LoadMetadata("a")
	if md != again {
		t.Fatalf("memory store should return the same metadata instance")
	}
}
