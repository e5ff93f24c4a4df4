// Package firmographics provides firmographic records for a domain from a
// live enrichment API, a local file cache, or the live API behind a SQLite
// TTL cache.
package firmographics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
	"github.com/karthiknish/profici-comp-sub000/internal/store"
)

const (
	ModeLive  = "live"
	ModeCache = "cache"
)

// Source looks up the firmographic record for a domain. An unknown domain
// yields nil, nil.
type Source interface {
	Lookup(ctx context.Context, domain string) (*core.Firmographics, error)
	Name() string
}

// HTTPSource calls a company enrichment API.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSource creates a live source.
func NewHTTPSource(baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the source name.
func (s *HTTPSource) Name() string { return ModeLive }

// Lookup fetches the record for domain. A 404 is a miss, not an error.
func (s *HTTPSource) Lookup(ctx context.Context, domain string) (*core.Firmographics, error) {
	params := url.Values{}
	params.Set("domain", domain)
	fullURL := s.baseURL + "/companies/enrich?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute enrichment request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("enrichment request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Data  *core.Firmographics `json:"data"`
		Error string              `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse enrichment response: %w", err)
	}
	if apiResponse.Error != "" {
		return nil, fmt.Errorf("enrichment error: %s", apiResponse.Error)
	}
	if apiResponse.Data != nil && apiResponse.Data.Domain == "" {
		apiResponse.Data.Domain = domain
	}
	return apiResponse.Data, nil
}

// FileSource reads records saved as <sanitized-domain>.json in a directory.
// Used outside production in place of the live API.
type FileSource struct {
	dir string
}

// NewFileSource creates a file-backed source.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Name returns the source name.
func (s *FileSource) Name() string { return ModeCache }

// Lookup reads the cached file for domain. A missing file is a miss.
func (s *FileSource) Lookup(ctx context.Context, domain string) (*core.Firmographics, error) {
	name := SanitizeFilename(domain)
	if name == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read firmographics cache file: %w", err)
	}

	var record core.Firmographics
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse firmographics cache file %s: %w", name, err)
	}
	return &record, nil
}

// Save writes a record to the directory, creating it when needed.
func (s *FileSource) Save(domain string, record core.Firmographics) error {
	name := SanitizeFilename(domain)
	if name == "" {
		return fmt.Errorf("cannot derive a cache filename from %q", domain)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal firmographics: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, name+".json"), data, 0644)
}

// SanitizeFilename maps a domain to a safe file stem: lowercase letters,
// digits, dots and hyphens are kept, anything else becomes an underscore.
func SanitizeFilename(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	var b strings.Builder
	for _, r := range domain {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "_")
	}
	return strings.Trim(name, "._")
}

// CachedSource serves records from a SQLite cache and falls back to the
// wrapped source, caching both hits and misses for ttl.
type CachedSource struct {
	next  Source
	store *store.Store
	ttl   time.Duration
}

// NewCachedSource wraps next with the cache.
func NewCachedSource(next Source, st *store.Store, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, store: st, ttl: ttl}
}

// Name returns the wrapped source name.
func (s *CachedSource) Name() string { return s.next.Name() }

// Lookup implements Source. Cache failures are logged and bypassed.
func (s *CachedSource) Lookup(ctx context.Context, domain string) (*core.Firmographics, error) {
	if record, err := s.store.GetCachedFirmographics(domain, s.ttl); err != nil {
		logger.Warn("Firmographics cache read failed", "domain", domain, "error", err.Error())
	} else if record != nil {
		logger.Debug("Firmographics cache hit", "domain", domain)
		return record, nil
	}

	if miss, err := s.store.IsKnownMiss(domain, s.ttl); err == nil && miss {
		return nil, nil
	}

	record, err := s.next.Lookup(ctx, domain)
	if err != nil {
		return nil, err
	}

	if record == nil {
		if err := s.store.RecordMiss(domain); err != nil {
			logger.Warn("Failed to record firmographics miss", "domain", domain, "error", err.Error())
		}
		return nil, nil
	}
	if err := s.store.CacheFirmographics(domain, *record, s.next.Name()); err != nil {
		logger.Warn("Failed to cache firmographics", "domain", domain, "error", err.Error())
	}
	return record, nil
}

// NewSource builds the configured source. The returned close function
// releases the cache store, if any.
func NewSource(cfg config.Firmographics) (Source, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Mode) {
	case "", ModeCache:
		return NewFileSource(cfg.CacheDir), noop, nil
	case ModeLive:
		if cfg.BaseURL == "" {
			return nil, noop, fmt.Errorf("firmographics.base_url is required in live mode")
		}
		live := NewHTTPSource(cfg.BaseURL, cfg.APIKey, cfg.TimeoutDuration())
		if cfg.StoreDir == "" {
			return live, noop, nil
		}
		st, err := store.NewStore(cfg.StoreDir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open firmographics cache: %w", err)
		}
		return NewCachedSource(live, st, cfg.TTLDuration()), st.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown firmographics mode %q", cfg.Mode)
	}
}
