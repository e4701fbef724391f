// Package grid lays out one festival day as a venue x hour grid. Each
// screening lands in the cell of its venue and start hour; its box is
// offset by the minutes past the hour and sized by its duration.
package grid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"festplan/internal/model"
)

const (
	DefaultStartHour   = 9
	DefaultEndHour     = 23
	DefaultRowHeightPx = 40.0
)

// Config fixes the hour range (both ends inclusive) and how many pixels one
// hour of wall time occupies.
type Config struct {
	StartHour   int
	EndHour     int
	RowHeightPx float64
}

func DefaultConfig() Config {
	return Config{
		StartHour:   DefaultStartHour,
		EndHour:     DefaultEndHour,
		RowHeightPx: DefaultRowHeightPx,
	}
}

// Geometry positions a box inside its cell.
type Geometry struct {
	TopPx    float64 `json:"top_px"`
	HeightPx float64 `json:"height_px"`
}

// Box is one screening placed on the grid. Selected, Conflict and Tags are
// decoration filled in by the caller; the layout never sets them.
type Box struct {
	Screening model.Screening `json:"screening"`
	Column    int             `json:"column"`
	Geometry  Geometry        `json:"geometry"`

	Selected bool     `json:"selected"`
	Conflict bool     `json:"conflict"`
	Tags     []string `json:"tags,omitempty"`
}

// Cell is one venue column within an hour row.
type Cell struct {
	VenueID string `json:"venue_id"`
	Column  int    `json:"column"`
	Boxes   []Box  `json:"boxes"`
}

// Row is one whole hour.
type Row struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
	Cells []Cell `json:"cells"`
}

// Day is the full grid for one date.
type Day struct {
	Date   string        `json:"date"`
	Venues []model.Venue `json:"venues"`
	Rows   []Row         `json:"rows"`
	// Dropped counts screenings whose start hour lies outside the grid.
	Dropped int `json:"dropped"`
}

// VenuesForDay returns the venues used by screenings, each once, in
// catalog venue order.
func VenuesForDay(screenings []model.Screening, venues []model.Venue) []model.Venue {
	used := make(map[string]bool, len(screenings))
	for _, s := range screenings {
		used[s.VenueID] = true
	}
	out := make([]model.Venue, 0, len(used))
	for _, v := range venues {
		if used[v.ID] {
			out = append(out, v)
			used[v.ID] = false
		}
	}
	return out
}

// TimeSlots returns "HH:00" labels from startHour to endHour inclusive.
func TimeSlots(startHour, endHour int) []string {
	if endHour < startHour {
		return []string{}
	}
	out := make([]string, 0, endHour-startHour+1)
	for h := startHour; h <= endHour; h++ {
		out = append(out, slotLabel(h))
	}
	return out
}

func slotLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// parseSlot reads the hour out of an "HH:MM" label.
func parseSlot(label string) (int, bool) {
	h, _, _ := strings.Cut(label, ":")
	n, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ScreeningsForCell returns the screenings on date at venueID whose start
// falls within the hour named by hourLabel. Bucketing uses the start's
// wall-clock hour only; duration and end time do not matter.
func ScreeningsForCell(date, venueID, hourLabel string, screenings []model.Screening) []model.Screening {
	hour, ok := parseSlot(hourLabel)
	if !ok {
		return []model.Screening{}
	}
	out := make([]model.Screening, 0)
	for _, s := range screenings {
		if s.VenueID != venueID {
			continue
		}
		if date != "" && s.Date() != date {
			continue
		}
		if s.Start.Hour() == hour {
			out = append(out, s)
		}
	}
	return out
}

// BoxGeometry offsets the box by the start's minutes past the hour and
// sizes it by duration, both scaled by rowHeightPx per hour. Nothing is
// clipped at the grid's last hour.
func BoxGeometry(s model.Screening, rowHeightPx float64) Geometry {
	minutes := float64(s.Start.Minute())
	dur := s.Duration().Minutes()
	return Geometry{
		TopPx:    minutes / 60 * rowHeightPx,
		HeightPx: dur / 60 * rowHeightPx,
	}
}

// GroupByDay buckets screenings by their start date.
func GroupByDay(screenings []model.Screening) map[string][]model.Screening {
	groups := make(map[string][]model.Screening)
	for _, s := range screenings {
		d := s.Date()
		groups[d] = append(groups[d], s)
	}
	return groups
}

// Dates returns the keys of groups in calendar order.
func Dates(groups map[string][]model.Screening) []string {
	out := make([]string, 0, len(groups))
	for d := range groups {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// BuildDay assembles the grid for one date. Boxes inside a cell keep the
// order of screenings; overlapping boxes are not repositioned.
func BuildDay(date string, screenings []model.Screening, venues []model.Venue, cfg Config) Day {
	if cfg.RowHeightPx <= 0 {
		cfg.RowHeightPx = DefaultRowHeightPx
	}
	day := Day{
		Date:   date,
		Venues: VenuesForDay(screenings, venues),
		Rows:   []Row{},
	}

	for _, label := range TimeSlots(cfg.StartHour, cfg.EndHour) {
		hour, _ := parseSlot(label)
		row := Row{Hour: hour, Label: label, Cells: make([]Cell, 0, len(day.Venues))}
		for col, v := range day.Venues {
			cell := Cell{VenueID: v.ID, Column: col, Boxes: []Box{}}
			for _, s := range ScreeningsForCell(date, v.ID, label, screenings) {
				cell.Boxes = append(cell.Boxes, Box{
					Screening: s,
					Column:    col,
					Geometry:  BoxGeometry(s, cfg.RowHeightPx),
				})
			}
			row.Cells = append(row.Cells, cell)
		}
		day.Rows = append(day.Rows, row)
	}

	for _, s := range screenings {
		if date != "" && s.Date() != date {
			continue
		}
		if h := s.Start.Hour(); h < cfg.StartHour || h > cfg.EndHour {
			day.Dropped++
		}
	}
	return day
}

// Boxes walks every placed box in row, then column order.
func (d *Day) Boxes(fn func(b *Box)) {
	for ri := range d.Rows {
		for ci := range d.Rows[ri].Cells {
			for bi := range d.Rows[ri].Cells[ci].Boxes {
				fn(&d.Rows[ri].Cells[ci].Boxes[bi])
			}
		}
	}
}

// Span is a helper for views that need the end of the grid in wall time.
func (c Config) Span() time.Duration {
	if c.EndHour < c.StartHour {
		return 0
	}
	return time.Duration(c.EndHour-c.StartHour+1) * time.Hour
}
