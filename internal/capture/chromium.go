// Package capture renders the schedule page in headless Chromium and saves
// it as a PNG, for sharing or printing a day plan.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "festplan/internal/log"
)

// Default capture parameters. The viewport fits a full festival day grid
// at the default row height.
const (
	DefaultWidth      = 1600
	DefaultHeight     = 1200
	DefaultTimeoutSec = 30

	// ReadySelector is set by the /schedule page once every day grid has
	// been laid out.
	ReadySelector = `[data-ready="true"]`
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// BaseURL is the running server, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// State is the tag fragment to render; empty captures the bare program.
	State string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. Zero means
	// DefaultWidth / DefaultHeight.
	Width  int
	Height int

	// Username and Password are sent as HTTP Basic credentials when the
	// server has basic auth enabled.
	Username string
	Password string

	Timeout time.Duration
}

// Headers returns the extra request headers the browser sends with every
// request, or nil when none are needed.
func Headers(opts Options) network.Headers {
	if opts.Username == "" && opts.Password == "" {
		return nil
	}
	cred := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
	return network.Headers{"Authorization": "Basic " + cred}
}

// PageURL builds the /schedule URL for opts, carrying State as the state
// query parameter.
func PageURL(opts Options) (string, error) {
	if opts.BaseURL == "" {
		return "", errors.New("capture: BaseURL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("capture: base url: %w", err)
	}
	u = u.JoinPath("schedule")
	if opts.State != "" {
		q := u.Query()
		q.Set("state", opts.State)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// SchedulePNG navigates headless Chromium to the schedule page, waits for
// ReadySelector and writes a full-page screenshot to opts.OutputPath.
func SchedulePNG(parentCtx context.Context, opts Options) error {
	pageURL, err := PageURL(opts)
	if err != nil {
		return err
	}
	if opts.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	start := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if h := Headers(opts); h != nil {
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(h))
	}
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let webfonts finish painting.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("schedule captured", "path", opts.OutputPath, "bytes", len(png), "elapsed", time.Since(start).String())
	return nil
}
