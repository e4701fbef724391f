package catalog

import (
	"context"
	"sync"
	"time"

	appLog "festplan/internal/log"
	"festplan/internal/model"
)

// Loader owns the current catalog. Refresh swaps in a freshly parsed
// catalog; readers keep whatever *model.Catalog they already hold, which is
// never modified after it is published.
type Loader struct {
	fetcher *Fetcher
	source  string
	opts    ParseOptions

	mu        sync.RWMutex
	current   *model.Catalog
	fromCache bool
}

func NewLoader(fetcher *Fetcher, source string, opts ParseOptions) *Loader {
	return &Loader{fetcher: fetcher, source: source, opts: opts}
}

// Refresh fetches and parses the program. On failure the previous catalog
// stays current and the error is returned.
func (l *Loader) Refresh(ctx context.Context) (*model.Catalog, error) {
	res, err := l.fetcher.Fetch(ctx, l.source)
	if err != nil {
		return nil, err
	}
	cat, err := Parse(res.Body, l.opts)
	if err != nil {
		return nil, err
	}
	cat.LoadedAt = time.Now()

	l.mu.Lock()
	l.current = cat
	l.fromCache = res.FromCache
	l.mu.Unlock()

	appLog.Info("catalog refreshed", "screenings", len(cat.Screenings), "from_cache", res.FromCache)
	return cat, nil
}

// Current returns the last successfully loaded catalog, or nil before the
// first load.
func (l *Loader) Current() *model.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// FromCache reports whether the current catalog came from the disk cache.
func (l *Loader) FromCache() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fromCache
}
