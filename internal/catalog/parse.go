// Package catalog loads the festival program: fetching with a disk cache,
// parsing the program JSON into model types and keeping the current
// catalog for readers.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	appLog "festplan/internal/log"
	"festplan/internal/model"
)

// ParseOptions controls how raw program data is normalized.
type ParseOptions struct {
	// Location is the festival's zone. Datetimes without an offset are
	// read in it; datetimes with one are converted into it. Nil means UTC.
	Location *time.Location

	// VenuePrefix/VenueAbbrev derive a short venue name when the program
	// has none: a name starting with VenuePrefix gets it replaced.
	VenuePrefix string
	VenueAbbrev string
}

// festivalJSON is the program file as published.
type festivalJSON struct {
	Days []struct {
		Date    string `json:"date"`
		Label   string `json:"label"`
		Weekday string `json:"weekday"`
	} `json:"days"`
	Venues []struct {
		VenueID   string `json:"venue_id"`
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
	} `json:"venues"`
	SeriesDefinitions []struct {
		SeriesID string `json:"series_id"`
		Name     string `json:"name"`
		Color    string `json:"color"`
	} `json:"series_definitions"`
	Screenings []screeningJSON `json:"screenings"`
}

type screeningJSON struct {
	ScreeningID     string  `json:"screening_id"`
	SeriesID        string  `json:"series_id"`
	ProgramNumber   *int    `json:"program_number"`
	Title           string  `json:"title"`
	DatetimeStart   string  `json:"datetime_start"`
	DatetimeEnd     string  `json:"datetime_end"`
	DurationMinutes int     `json:"duration_minutes"`
	VenueID         string  `json:"venue_id"`
	IsFree          bool    `json:"is_free"`
	TicketCode      *string `json:"ticket_code"`
	URL             *string `json:"url"`
}

const defaultSeriesColor = "#000000"

// Parse turns program JSON into a Catalog. Comments and trailing commas are
// accepted so hand-edited program files work too. Screenings whose start
// cannot be read are skipped and logged; everything else in the program is
// trusted as-is.
func Parse(body []byte, opts ParseOptions) (*model.Catalog, error) {
	if len(body) == 0 {
		return nil, errors.New("catalog: empty body")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var raw festivalJSON
	if err := json.Unmarshal(jsonc.ToJSON(body), &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	cat := &model.Catalog{
		Days:       make([]model.Day, 0, len(raw.Days)),
		Venues:     make([]model.Venue, 0, len(raw.Venues)),
		Screenings: make([]model.Screening, 0, len(raw.Screenings)),
		Series:     []model.Series{},
	}

	for _, d := range raw.Days {
		cat.Days = append(cat.Days, model.Day{Date: d.Date, Label: d.Label, DayOfWeek: d.Weekday})
	}

	for i, v := range raw.Venues {
		short := v.ShortName
		if short == "" && opts.VenuePrefix != "" && strings.HasPrefix(v.Name, opts.VenuePrefix) {
			short = opts.VenueAbbrev + strings.TrimPrefix(v.Name, opts.VenuePrefix)
		}
		cat.Venues = append(cat.Venues, model.Venue{
			ID:        v.VenueID,
			Name:      v.Name,
			ShortName: short,
			Order:     i,
		})
	}

	skipped := 0
	for _, rs := range raw.Screenings {
		s, err := convertScreening(rs, loc)
		if err != nil {
			skipped++
			appLog.Warn("catalog screening skipped", "screening_id", rs.ScreeningID, "reason", err.Error())
			continue
		}
		cat.Screenings = append(cat.Screenings, s)
	}

	cat.Series = deriveSeries(raw, cat.Screenings)

	if len(cat.Days) == 0 {
		cat.Days = DeriveDays(cat.Screenings, loc)
	}

	cat.Index()

	appLog.Info("catalog parse completed",
		"screenings", len(cat.Screenings),
		"venues", len(cat.Venues),
		"days", len(cat.Days),
		"skipped", skipped,
	)
	return cat, nil
}

func convertScreening(rs screeningJSON, loc *time.Location) (model.Screening, error) {
	if rs.ScreeningID == "" {
		return model.Screening{}, errors.New("missing screening_id")
	}
	start, err := parseLocalTime(rs.DatetimeStart, loc)
	if err != nil {
		return model.Screening{}, fmt.Errorf("datetime_start: %w", err)
	}

	dur := rs.DurationMinutes
	end, err := parseLocalTime(rs.DatetimeEnd, loc)
	if err != nil {
		if dur <= 0 {
			return model.Screening{}, fmt.Errorf("datetime_end: %w", err)
		}
		end = start.Add(time.Duration(dur) * time.Minute)
	}
	if dur <= 0 && end.After(start) {
		dur = int(end.Sub(start) / time.Minute)
	}

	s := model.Screening{
		ID:              rs.ScreeningID,
		Title:           rs.Title,
		SeriesID:        rs.SeriesID,
		VenueID:         rs.VenueID,
		Start:           start,
		End:             end,
		DurationMinutes: dur,
		IsFree:          rs.IsFree,
	}
	if rs.ProgramNumber != nil {
		s.ProgramNumber = *rs.ProgramNumber
	}
	if rs.TicketCode != nil {
		s.TicketCode = *rs.TicketCode
	}
	if rs.URL != nil {
		s.URL = *rs.URL
	}
	return s, nil
}

// localLayouts are tried in order for datetimes without an offset.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseLocalTime reads "2026-03-02T18:00:00" in loc, or an RFC 3339 value
// converted into loc.
func parseLocalTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

// deriveSeries lists series in first-seen screening order, taking names
// and colors from series_definitions when the program has them.
func deriveSeries(raw festivalJSON, screenings []model.Screening) []model.Series {
	defs := make(map[string]model.Series, len(raw.SeriesDefinitions))
	for _, d := range raw.SeriesDefinitions {
		defs[d.SeriesID] = model.Series{ID: d.SeriesID, Name: d.Name, Color: d.Color}
	}

	out := make([]model.Series, 0)
	seen := make(map[string]bool)
	for _, s := range screenings {
		if s.SeriesID == "" || seen[s.SeriesID] {
			continue
		}
		seen[s.SeriesID] = true
		ser, ok := defs[s.SeriesID]
		if !ok {
			ser = model.Series{ID: s.SeriesID}
		}
		if ser.Name == "" {
			ser.Name = s.SeriesID
		}
		if ser.Color == "" {
			ser.Color = defaultSeriesColor
		}
		out = append(out, ser)
	}
	return out
}
