// festplan serves a festival screening planner: the program grid, tag
// selections carried in the link, conflict detection and an ICS export.
//
// Modes:
//
//	festplan                         serve the web UI with scheduled refresh
//	festplan --print --state '?…'    print the selection to the terminal
//	festplan --export-ics out.ics    write the selection as iCalendar
//	festplan --once                  refresh, capture a preview PNG, exit
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"

	"festplan/internal/capture"
	"festplan/internal/catalog"
	"festplan/internal/config"
	"festplan/internal/ics"
	appLog "festplan/internal/log"
	"festplan/internal/model"
	"festplan/internal/plan"
	"festplan/internal/refresh"
	"festplan/internal/tagcodec"
	"festplan/internal/termview"
	"festplan/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	state      string
	print      bool
	exportICS  string
	once       bool
	resetCache bool
	debug      bool
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		appLog.Error("festplan failed", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			return fmt.Errorf("load config %s: %w", flags.configPath, err)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", flags.configPath, "error", err.Error())
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
		// Development runs keep caches next to the binary.
		conf.Catalog.CacheDir = "./var/catalog-cache"
		conf.Capture.Output = "./var/preview.png"
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", conf.Timezone, err)
	}

	appLog.Info("festplan starting",
		"version", version,
		"listen", conf.Listen,
		"timezone", loc.String(),
		"catalog", conf.Catalog.URL,
		"refresh", conf.Catalog.Refresh,
		"tags", len(conf.Tags),
		"capture", conf.Capture.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := catalog.NewFetcher(conf.Catalog.CacheDir)
	fetcher.Reset = flags.resetCache
	loader := catalog.NewLoader(fetcher, conf.Catalog.URL, catalog.ParseOptions{
		Location:    loc,
		VenuePrefix: conf.Catalog.VenuePrefix,
		VenueAbbrev: conf.Catalog.VenueAbbrev,
	})

	cat, err := loader.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}
	// Only the first load bypasses the cache.
	fetcher.Reset = false

	switch {
	case flags.print:
		return printPlan(cat, conf, flags.state)
	case flags.exportICS != "":
		return exportICS(cat, conf, flags.state, flags.exportICS)
	case flags.once:
		return runOnce(ctx, conf, loader, flags.state)
	}
	return serve(ctx, conf, loc, loader)
}

func parseFlags(args []string) (flagConfig, error) {
	var cfg flagConfig

	fs := pflag.NewFlagSet("festplan", pflag.ContinueOnError)
	fs.StringVarP(&cfg.configPath, "config", "c", "/etc/festplan/config.yaml", "path to config file")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	fs.StringVar(&cfg.state, "state", "", "tag fragment for --print, --export-ics and --once")
	fs.BoolVar(&cfg.print, "print", false, "print the selection for --state and exit")
	fs.StringVar(&cfg.exportICS, "export-ics", "", "write the selection for --state to this .ics file and exit")
	fs.BoolVar(&cfg.once, "once", false, "refresh the catalog, capture a preview PNG and exit")
	fs.BoolVar(&cfg.resetCache, "reset-cache", false, "ignore the cached catalog on the first load")
	fs.BoolVar(&cfg.debug, "debug", false, "debug logging and local cache paths")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

func planOptions(conf *config.Config) plan.Options {
	return plan.Options{
		Grid:    conf.GridLayout(),
		Defs:    conf.Tags,
		MaxPaid: conf.MaxPaidSelections,
	}
}

func printPlan(cat *model.Catalog, conf *config.Config, state string) error {
	store := tagcodec.Decode(state, conf.Tags)
	return termview.Render(os.Stdout, cat, plan.Build(cat, store, planOptions(conf)))
}

func exportICS(cat *model.Catalog, conf *config.Config, state, path string) error {
	store := tagcodec.Decode(state, conf.Tags)
	body, err := ics.Export(cat, plan.SelectedByStart(cat, store), ics.ExportOptions{Name: "Festivaaliohjelma"})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	appLog.Info("ics written", "path", path, "bytes", len(body))
	return nil
}

// runOnce serves the UI on an ephemeral port just long enough to capture
// the schedule page.
func runOnce(ctx context.Context, conf *config.Config, loader *catalog.Loader, state string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: web.NewServer(web.Options{Config: conf, Catalog: loader}).Handler()}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	if state == "" {
		state = conf.Capture.State
	}
	return capture.SchedulePNG(ctx, captureOptions(conf, "http://"+ln.Addr().String(), state))
}

// captureOptions points the browser at baseURL with the configured
// viewport, passing basic auth credentials when the server requires them.
func captureOptions(conf *config.Config, baseURL, state string) capture.Options {
	opts := capture.Options{
		BaseURL:    baseURL,
		State:      state,
		OutputPath: conf.Capture.Output,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return opts
}

func serve(ctx context.Context, conf *config.Config, loc *time.Location, loader *catalog.Loader) error {
	var after refresh.AfterFunc
	if conf.Capture.Enabled {
		after = func(ctx context.Context, _ *model.Catalog) error {
			return capture.SchedulePNG(ctx, captureOptions(conf, "http://"+conf.Listen, conf.Capture.State))
		}
	}

	refreshFn := func(ctx context.Context) error {
		_, err := loader.Refresh(ctx)
		return err
	}
	if conf.Catalog.Refresh != "" {
		sched, err := refresh.New(conf.Catalog.Refresh, loc, loader, after)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		refreshFn = sched.RunOnce
	} else {
		appLog.Info("periodic refresh disabled")
	}

	srv := &http.Server{
		Addr: conf.Listen,
		Handler: web.NewServer(web.Options{
			Config:  conf,
			Catalog: loader,
			Refresh: refreshFn,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
