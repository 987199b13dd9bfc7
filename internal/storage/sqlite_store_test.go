package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/feedbin"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "feedbin.sqlite")
	store, err := NewStore("sqlite", path, Options{EntryTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	md, err := store.LoadMetadata("me@example.com")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	md.SetConditionalGet(feedbin.KeyIcons, feedbin.ConditionalGetInfo{LastModified: "Sun, 15 Jun 2025 12:00:00 GMT"})
	if err := store.SaveMetadata("me@example.com", md); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	// second save exercises the upsert path
	if err := store.SaveMetadata("me@example.com", md); err != nil {
		t.Fatalf("SaveMetadata again: %v", err)
	}
	if err := store.MarkEntry("2077"); err != nil {
		t.Fatalf("MarkEntry: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore("sqlite", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadMetadata("me@example.com")
	if err != nil {
		t.Fatalf("LoadMetadata after reopen: %v", err)
	}
	if info, ok := loaded.ConditionalGet(feedbin.KeyIcons); !ok || info.LastModified == "" {
		t.Fatalf("conditional get = %#v ok=%v", info, ok)
	}
	seen, err := reopened.SeenEntry("2077")
	if err != nil || !seen {
		t.Fatalf("SeenEntry = %v, %v", seen, err)
	}
	if seen, _ := reopened.SeenEntry("1"); seen {
		t.Fatalf("unknown entry reported as seen")
	}
}

func TestSQLiteStoreExpiresEntries(t *testing.T) {
	raw, err := openSQLite(filepath.Join(t.TempDir(), "feedbin.sqlite"), Options{
		EntryTTL:        -time.Second,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openSQLite: %v", err)
	}
	store := raw.(*sqliteStore)
	defer store.Close()

	if err := store.MarkEntry("old"); err != nil {
		t.Fatalf("MarkEntry: %v", err)
	}
	if seen, err := store.SeenEntry("old"); err != nil || seen {
		t.Fatalf("expired entry: seen=%v err=%v", seen, err)
	}
}
