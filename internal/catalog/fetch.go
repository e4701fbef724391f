package catalog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	appLog "festplan/internal/log"
)

// ErrNotModifiedNoCache is returned when the server answers 304 but no
// cached body exists to reuse.
var ErrNotModifiedNoCache = errors.New("catalog: 304 Not Modified but no cached body available")

// FetchResult is the raw program payload plus where it came from.
type FetchResult struct {
	Body      []byte
	FromCache bool // true if the cached body was reused (304, network error, non-OK)
}

// cacheEntry holds HTTP cache metadata for the catalog URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads the program JSON with conditional requests
// (ETag / Last-Modified) and keeps the last good body on disk so that a
// flaky network does not keep the planner from starting.
type Fetcher struct {
	client   *http.Client
	cacheDir string

	// Reset ignores the disk cache: no conditional headers, no fallback.
	Reset bool
}

// NewFetcher creates a Fetcher that caches under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		// Relative fallback so development runs without root permissions.
		cacheDir = "./var/catalog-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// Fetch loads the catalog from src. Anything that is not an http(s) URL is
// treated as a local path (an optional file:// prefix is stripped) and read
// directly without caching.
func (f *Fetcher) Fetch(ctx context.Context, src string) (FetchResult, error) {
	if src == "" {
		return FetchResult{}, errors.New("catalog: source is empty")
	}
	if !isHTTP(src) {
		body, err := os.ReadFile(strings.TrimPrefix(src, "file://"))
		if err != nil {
			return FetchResult{}, fmt.Errorf("catalog: read %s: %w", src, err)
		}
		appLog.Info("catalog read from file", "path", src, "bytes", len(body))
		return FetchResult{Body: body}, nil
	}
	return f.fetchHTTP(ctx, src)
}

func isHTTP(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) (FetchResult, error) {
	cachePath := f.cachePathForURL(url)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	var meta cacheEntry
	var cachedBody []byte
	if !f.Reset {
		meta, _ = f.loadCacheMeta(cachePath)
		cachedBody, _ = f.loadCacheBody(cachePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("catalog fetch start", "url", redactURL(url), "reset", f.Reset)

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("catalog fetch network error, using cached body", err, "url", redactURL(url))
			return FetchResult{Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("catalog: fetch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, fmt.Errorf("catalog: read body: %w", readErr)
		}

		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// The fresh body is still usable.
			appLog.Error("catalog cache save failed", err, "url", redactURL(url))
		}

		appLog.Info("catalog fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, ErrNotModifiedNoCache
		}
		appLog.Info("catalog not modified; using cache", "url", redactURL(url))
		return FetchResult{Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("catalog fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(url), "status", resp.StatusCode)
			return FetchResult{Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("catalog: fetch: %s", resp.Status)
	}
}

// cachePathForURL keys the cache directory by a BLAKE3 digest of the URL.
func (f *Fetcher) cachePathForURL(url string) string {
	sum := blake3.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only, e.g.
// https://example.com/private/data.json?token=x -> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "catalog://...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	host, _, _ = strings.Cut(host, "?")
	return scheme + "://" + host + redactedSuffix
}
