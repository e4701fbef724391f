package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"festplan/internal/grid"
	"festplan/internal/tags"
)

// CatalogConfig describes where the festival program comes from.
type CatalogConfig struct {
	// URL is an http(s) endpoint or a local file path to the program JSON.
	URL string `yaml:"url" json:"url"`
	// CacheDir holds the last fetched body plus ETag metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// Refresh is a cron-style schedule (e.g. "0 */6 * * *"). Empty disables
	// periodic refresh; the catalog is then loaded only at startup.
	Refresh string `yaml:"refresh" json:"refresh"`
	// VenuePrefix is stripped from venue names that have no short name,
	// e.g. "Finnkino Cine Atlas " -> "CA".
	VenuePrefix string `yaml:"venue_prefix" json:"venue_prefix"`
	VenueAbbrev string `yaml:"venue_abbrev" json:"venue_abbrev"`
}

// GridConfig mirrors grid.Config in YAML form.
type GridConfig struct {
	StartHour   int     `yaml:"start_hour" json:"start_hour"`
	EndHour     int     `yaml:"end_hour" json:"end_hour"`
	RowHeightPx float64 `yaml:"row_height_px" json:"row_height_px"`
}

// CaptureConfig controls the headless-browser PNG of the schedule page.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Output  string `yaml:"output" json:"output"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	// State is the tag fragment rendered into the capture.
	State string `yaml:"state" json:"state"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the festival's IANA zone. Catalog times without an
	// offset are read in this zone and all grid bucketing uses it.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	Grid    GridConfig    `yaml:"grid" json:"grid"`

	// MaxPaidSelections is the paid-ticket budget; the counter warns above it.
	MaxPaidSelections int `yaml:"max_paid_selections" json:"max_paid_selections"`

	// Tags is the fixed tag enumeration, in display and encoding order.
	Tags []tags.Def `yaml:"tags" json:"tags"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "Europe/Helsinki"
	defaultCacheDir = "/var/lib/festplan/catalog-cache"
	defaultRefresh  = "0 */6 * * *"
	defaultMaxPaid  = 10
	defaultCapture  = "/var/lib/festplan/preview.png"
	defaultCaptureW = 1600
	defaultCaptureH = 1200
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		Timezone: defaultTimezone,
		LogLevel: "info",
		Catalog: CatalogConfig{
			URL:         "http://127.0.0.1:8000/data.json",
			CacheDir:    defaultCacheDir,
			Refresh:     defaultRefresh,
			VenuePrefix: "Finnkino Cine Atlas ",
			VenueAbbrev: "CA",
		},
		Grid: GridConfig{
			StartHour:   grid.DefaultStartHour,
			EndHour:     grid.DefaultEndHour,
			RowHeightPx: grid.DefaultRowHeightPx,
		},
		MaxPaidSelections: defaultMaxPaid,
		Tags:              tags.DefaultDefs(),
		Capture: CaptureConfig{
			Enabled: false,
			Output:  defaultCapture,
			Width:   defaultCaptureW,
			Height:  defaultCaptureH,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Catalog.CacheDir == "" {
		c.Catalog.CacheDir = defaultCacheDir
	}

	// Grid: hours are clamped into a day and kept in order. An all-zero
	// grid section means "not configured".
	g := &c.Grid
	if g.StartHour == 0 && g.EndHour == 0 {
		g.StartHour, g.EndHour = grid.DefaultStartHour, grid.DefaultEndHour
	}
	g.StartHour = clampHour(g.StartHour)
	g.EndHour = clampHour(g.EndHour)
	if g.EndHour < g.StartHour {
		g.StartHour, g.EndHour = g.EndHour, g.StartHour
	}
	if g.RowHeightPx <= 0 {
		g.RowHeightPx = grid.DefaultRowHeightPx
	}

	if c.MaxPaidSelections <= 0 {
		c.MaxPaidSelections = defaultMaxPaid
	}

	c.Tags = normalizeTags(c.Tags)

	if c.Capture.Output == "" {
		c.Capture.Output = defaultCapture
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureW
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureH
	}
}

// GridLayout converts the YAML grid section.
func (c *Config) GridLayout() grid.Config {
	return grid.Config{
		StartHour:   c.Grid.StartHour,
		EndHour:     c.Grid.EndHour,
		RowHeightPx: c.Grid.RowHeightPx,
	}
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 23 {
		return 23
	}
	return h
}

// normalizeTags trims and de-duplicates the enumeration. An empty list
// falls back to the defaults; "selected" is always present because
// conflicts and counters depend on it.
func normalizeTags(in []tags.Def) []tags.Def {
	if len(in) == 0 {
		return tags.DefaultDefs()
	}
	out := make([]tags.Def, 0, len(in)+1)
	seen := make(map[string]bool, len(in))
	for _, d := range in {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" || seen[d.ID] {
			continue
		}
		if d.Label == "" {
			d.Label = "#" + d.ID
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	if !seen[tags.TagSelected] {
		out = append([]tags.Def{{ID: tags.TagSelected, Label: "#" + tags.TagSelected}}, out...)
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".festplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
