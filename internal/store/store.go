package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

// Store is the SQLite-backed cache for firmographic records.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "firmographics.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	firmographicsTable := `
	CREATE TABLE IF NOT EXISTS firmographics (
		domain TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		source TEXT,
		date_fetched DATETIME,
		content_hash TEXT
	);`

	// Negative lookups, so a domain the provider does not know is not
	// re-fetched on every job.
	missesTable := `
	CREATE TABLE IF NOT EXISTS firmographic_misses (
		domain TEXT PRIMARY KEY,
		date_checked DATETIME
	);`

	for _, table := range []string{firmographicsTable, missesTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CacheFirmographics stores a record for domain, replacing any previous one.
func (s *Store) CacheFirmographics(domain string, record core.Firmographics, source string) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal firmographics: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO firmographics
	(domain, record, source, date_fetched, content_hash)
	VALUES (?, ?, ?, ?, ?)`

	if _, err := s.db.Exec(query, normalizeDomain(domain), string(body), source, time.Now().UTC(), contentHash(body)); err != nil {
		return fmt.Errorf("failed to cache firmographics: %w", err)
	}
	_, _ = s.db.Exec("DELETE FROM firmographic_misses WHERE domain = ?", normalizeDomain(domain))
	return nil
}

// GetCachedFirmographics returns the cached record when it is younger than
// maxAge. A miss returns nil, nil.
func (s *Store) GetCachedFirmographics(domain string, maxAge time.Duration) (*core.Firmographics, error) {
	query := `
	SELECT record FROM firmographics
	WHERE domain = ? AND date_fetched > ?`

	cutoff := time.Now().UTC().Add(-maxAge)
	var body string
	err := s.db.QueryRow(query, normalizeDomain(domain), cutoff).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read firmographics: %w", err)
	}

	var record core.Firmographics
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return nil, fmt.Errorf("failed to decode cached firmographics: %w", err)
	}
	return &record, nil
}

// RecordMiss remembers that the provider had no record for domain.
func (s *Store) RecordMiss(domain string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO firmographic_misses (domain, date_checked) VALUES (?, ?)",
		normalizeDomain(domain), time.Now().UTC())
	return err
}

// IsKnownMiss reports whether domain was recorded as a miss within maxAge.
func (s *Store) IsKnownMiss(domain string, maxAge time.Duration) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM firmographic_misses WHERE domain = ? AND date_checked > ?",
		normalizeDomain(domain), time.Now().UTC().Add(-maxAge)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check miss cache: %w", err)
	}
	return count > 0, nil
}

// CacheStats represents cache statistics.
type CacheStats struct {
	RecordCount int
	MissCount   int
	CacheSize   int64
	LastUpdated time.Time
}

// GetCacheStats returns statistics about the cache.
func (s *Store) GetCacheStats() (*CacheStats, error) {
	stats := &CacheStats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM firmographics":       &stats.RecordCount,
		"SELECT COUNT(*) FROM firmographic_misses": &stats.MissCount,
	}
	for query, target := range queries {
		if err := s.db.QueryRow(query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.CacheSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}
	return stats, nil
}

// CleanupOldCache removes records older than maxAge.
func (s *Store) CleanupOldCache(maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	if _, err := s.db.Exec("DELETE FROM firmographics WHERE date_fetched < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean old firmographics: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM firmographic_misses WHERE date_checked < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean old misses: %w", err)
	}
	return nil
}

// ClearCache removes all cached data.
func (s *Store) ClearCache() error {
	for _, table := range []string{"firmographics", "firmographic_misses"} {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s table: %w", table, err)
		}
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func contentHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:8])
}
