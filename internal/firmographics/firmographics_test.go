package firmographics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/store"
)

type countingSource struct {
	calls  int
	record *core.Firmographics
	err    error
}

func (c *countingSource) Lookup(ctx context.Context, domain string) (*core.Firmographics, error) {
	c.calls++
	return c.record, c.err
}

func (c *countingSource) Name() string { return "counting" }

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"acme.co.uk":         "acme.co.uk",
		" ACME.co.uk ":       "acme.co.uk",
		"https://acme.com/x": "https___acme.com_x",
		"../../etc/passwd":   "etc_passwd",
		"shop.acme.com:8080": "shop.acme.com_8080",
		"":                   "",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileSource_SaveAndLookup(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "firmo"))

	record := core.Firmographics{Name: "Acme", Industry: "Manufacturing", Keywords: []string{"widgets"}}
	if err := src.Save("acme.co.uk", record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := src.Lookup(context.Background(), "ACME.co.uk")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil || got.Name != "Acme" || got.Industry != "Manufacturing" {
		t.Errorf("Unexpected record %+v", got)
	}
}

func TestFileSource_Miss(t *testing.T) {
	src := NewFileSource(t.TempDir())
	got, err := src.Lookup(context.Background(), "unknown.com")
	if err != nil || got != nil {
		t.Errorf("Expected nil, nil on miss, got %+v, %v", got, err)
	}
}

func TestFileSource_Corrupt(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "broken.com.json"), []byte("{not json"), 0644)

	if _, err := NewFileSource(dir).Lookup(context.Background(), "broken.com"); err == nil {
		t.Error("Expected error for corrupt cache file")
	}
}

func TestHTTPSource_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies/enrich" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-key" {
			t.Errorf("Unexpected auth header %q", got)
		}
		switch r.URL.Query().Get("domain") {
		case "acme.co.uk":
			_, _ = w.Write([]byte(`{"data":{"name":"Acme","industry":"Manufacturing","employee_estimate":"11-50"}}`))
		case "broken.com":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL+"/", "secret-key", time.Second)

	got, err := src.Lookup(context.Background(), "acme.co.uk")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil || got.Name != "Acme" || got.EmployeeEstimate != "11-50" || got.Domain != "acme.co.uk" {
		t.Errorf("Unexpected record %+v", got)
	}

	got, err = src.Lookup(context.Background(), "unknown.com")
	if err != nil || got != nil {
		t.Errorf("Expected miss on 404, got %+v, %v", got, err)
	}

	if _, err := src.Lookup(context.Background(), "broken.com"); err == nil {
		t.Error("Expected error on 502")
	}
}

func TestCachedSource(t *testing.T) {
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = st.Close() }()

	next := &countingSource{record: &core.Firmographics{Name: "Acme"}}
	cached := NewCachedSource(next, st, time.Hour)

	for i := 0; i < 3; i++ {
		got, err := cached.Lookup(context.Background(), "acme.co.uk")
		if err != nil || got == nil || got.Name != "Acme" {
			t.Fatalf("Lookup %d: unexpected %+v, %v", i, got, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("Expected one upstream call, got %d", next.calls)
	}
}

func TestCachedSource_Misses(t *testing.T) {
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = st.Close() }()

	next := &countingSource{}
	cached := NewCachedSource(next, st, time.Hour)

	for i := 0; i < 2; i++ {
		if got, err := cached.Lookup(context.Background(), "ghost.io"); err != nil || got != nil {
			t.Fatalf("Expected miss, got %+v, %v", got, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("Expected miss to be cached, upstream calls=%d", next.calls)
	}
}

func TestCachedSource_UpstreamError(t *testing.T) {
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = st.Close() }()

	upstream := errors.New("enrichment down")
	cached := NewCachedSource(&countingSource{err: upstream}, st, time.Hour)
	if _, err := cached.Lookup(context.Background(), "acme.co.uk"); !errors.Is(err, upstream) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}

func TestNewSource(t *testing.T) {
	src, closeFn, err := NewSource(config.Firmographics{Mode: "cache", CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewSource(cache) failed: %v", err)
	}
	if _, ok := src.(*FileSource); !ok {
		t.Errorf("Expected FileSource, got %T", src)
	}
	_ = closeFn()

	if _, _, err := NewSource(config.Firmographics{Mode: "live"}); err == nil {
		t.Error("Expected error for live mode without base URL")
	}

	src, closeFn, err = NewSource(config.Firmographics{Mode: "live", BaseURL: "https://enrich.example.com", StoreDir: t.TempDir(), TTL: "1h"})
	if err != nil {
		t.Fatalf("NewSource(live) failed: %v", err)
	}
	defer func() { _ = closeFn() }()
	if _, ok := src.(*CachedSource); !ok {
		t.Errorf("Expected CachedSource, got %T", src)
	}

	if _, _, err := NewSource(config.Firmographics{Mode: "carrier-pigeon"}); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
