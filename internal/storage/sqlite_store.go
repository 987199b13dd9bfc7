package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/feedbin"
	_ "modernc.org/sqlite"
)

// sqliteStore keeps the same data as boltStore in two SQLite tables.
type sqliteStore struct {
	conn            *sql.DB
	entryTTL        time.Duration
	cleanupInterval time.Duration

	mu          sync.Mutex
	lastCleanup time.Time
}

func openSQLite(path string, opts Options) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between sync passes and CLI calls
	conn.SetMaxOpenConns(1)

	schema := `
	PRAGMA journal_mode=WAL;
	CREATE TABLE IF NOT EXISTS account_metadata (
		account TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS seen_entries (
		id TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS seen_entries_expires_at ON seen_entries (expires_at);
	`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}

	return &sqliteStore{
		conn:            conn,
		entryTTL:        opts.EntryTTL,
		cleanupInterval: opts.CleanupInterval,
		lastCleanup:     time.Now(),
	}, nil
}

func (s *sqliteStore) Close() error {
	return s.conn.Close()
}

func (s *sqliteStore) LoadMetadata(account string) (*feedbin.AccountMetadata, error) {
	md := feedbin.NewAccountMetadata()
	var raw string
	err := s.conn.QueryRow("SELECT data FROM account_metadata WHERE account = ?", account).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return md, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata for %s: %w", account, err)
	}
	if err := json.Unmarshal([]byte(raw), md); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", account, err)
	}
	return md, nil
}

func (s *sqliteStore) SaveMetadata(account string, md *feedbin.AccountMetadata) error {
	if md == nil {
		return nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.conn.Exec(
		"INSERT INTO account_metadata (account, data) VALUES (?, ?) ON CONFLICT(account) DO UPDATE SET data = excluded.data",
		account, string(raw),
	)
	return err
}

func (s *sqliteStore) SeenEntry(id string) (bool, error) {
	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var expires int64
	err := s.conn.QueryRow("SELECT expires_at FROM seen_entries WHERE id = ?", id).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if expires <= now.Unix() {
		_, err := s.conn.Exec("DELETE FROM seen_entries WHERE id = ?", id)
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) MarkEntry(id string) error {
	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return err
	}
	_, err := s.conn.Exec(
		"INSERT INTO seen_entries (id, expires_at) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET expires_at = excluded.expires_at",
		id, now.Add(s.entryTTL).Unix(),
	)
	return err
}

func (s *sqliteStore) maybeCleanupExpired(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return nil
	}
	if _, err := s.conn.Exec("DELETE FROM seen_entries WHERE expires_at <= ?", now.Unix()); err != nil {
		return fmt.Errorf("cleanup seen entries: %w", err)
	}
	s.lastCleanup = now
	return nil
}
