// Package refresh reloads the festival catalog on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "festplan/internal/log"
	"festplan/internal/model"
)

// Refresher is satisfied by *catalog.Loader.
type Refresher interface {
	Refresh(ctx context.Context) (*model.Catalog, error)
}

// AfterFunc runs after every successful refresh (e.g. preview capture).
// Its error is logged, never returned to the scheduler.
type AfterFunc func(ctx context.Context, cat *model.Catalog) error

// Scheduler owns a cron instance with a single refresh job. Runs never
// overlap: a tick that arrives while the previous run is still busy is
// skipped.
type Scheduler struct {
	cron  *cron.Cron
	ref   Refresher
	after AfterFunc

	// runCtx is handed to scheduled runs; Start replaces it.
	runCtx context.Context

	mu      sync.Mutex
	runs    int
	lastErr error
	lastRun time.Time
}

// New validates spec (standard 5-field cron or a descriptor such as
// "@every 1h") and registers the refresh job. loc is the zone spec is
// evaluated in; nil means time.Local.
func New(spec string, loc *time.Location, ref Refresher, after AfterFunc) (*Scheduler, error) {
	if ref == nil {
		return nil, errors.New("refresh: refresher is nil")
	}
	if loc == nil {
		loc = time.Local
	}
	lg := cronLogger{}
	s := &Scheduler{
		ref:    ref,
		after:  after,
		runCtx: context.Background(),
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(lg),
			cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
		),
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunOnce(s.runCtx) }); err != nil {
		return nil, fmt.Errorf("refresh: schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce refreshes the catalog immediately and then calls the after hook.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	cat, err := s.ref.Refresh(ctx)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.lastRun = time.Now()
	s.mu.Unlock()

	if err != nil {
		appLog.Error("scheduled catalog refresh failed", err)
		return err
	}
	if s.after != nil {
		if herr := s.after(ctx, cat); herr != nil {
			appLog.Error("post-refresh hook failed", herr)
		}
	}
	return nil
}

// Start runs the scheduler until ctx is done. It does not block.
func (s *Scheduler) Start(ctx context.Context) {
	s.runCtx = ctx
	s.cron.Start()
	appLog.Info("refresh scheduler started", "next", s.Next().Format(time.RFC3339))
	go func() {
		<-ctx.Done()
		<-s.Stop().Done()
	}()
}

// Stop stops the scheduler; the returned context is done once any running
// job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next is the time of the next scheduled run, zero if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Status reports how many runs have happened and how the last one ended.
func (s *Scheduler) Status() (runs int, lastRun time.Time, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastRun, s.lastErr
}

// cronLogger routes cron's own logging into the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
