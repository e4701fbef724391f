package model

import "time"

// Screening is one scheduled showing of a program item at a venue.
// Screenings are owned by the Catalog and treated as read-only after load.
type Screening struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SeriesID string `json:"series_id"`
	VenueID  string `json:"venue_id"`

	// ProgramNumber is the printed program map number, if any.
	ProgramNumber int `json:"program_number,omitempty"`

	// Start / End are festival local time.
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`

	IsFree     bool   `json:"is_free"`
	TicketCode string `json:"ticket_code,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Date returns the festival-local calendar date of the start, "2006-01-02".
func (s Screening) Date() string {
	return s.Start.Format("2006-01-02")
}

// Duration prefers the catalog's duration and falls back to End-Start.
func (s Screening) Duration() time.Duration {
	if s.DurationMinutes > 0 {
		return time.Duration(s.DurationMinutes) * time.Minute
	}
	if s.End.After(s.Start) {
		return s.End.Sub(s.Start)
	}
	return 0
}

// Code is what the program map prints on a box: the ticket code when
// present, otherwise the screening ID.
func (s Screening) Code() string {
	if s.TicketCode != "" {
		return s.TicketCode
	}
	return s.ID
}

// Venue is a screening location. Order is the venue's position in the
// catalog and drives grid column order.
type Venue struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
	Order     int    `json:"order"`
}

// DisplayName is the short name when the catalog supplied one.
func (v Venue) DisplayName() string {
	if v.ShortName != "" {
		return v.ShortName
	}
	return v.Name
}

// Series groups screenings for the legend (e.g. a short film programme).
type Series struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Day is one festival day column.
type Day struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	DayOfWeek string `json:"day_of_week"`
}

// Catalog is the whole festival program. It is loaded once per refresh and
// never mutated afterwards; a refresh swaps in a new Catalog.
type Catalog struct {
	Days       []Day       `json:"days"`
	Series     []Series    `json:"series"`
	Venues     []Venue     `json:"venues"`
	Screenings []Screening `json:"screenings"`

	LoadedAt time.Time `json:"loaded_at"`

	byID map[string]int
}

// Index builds the ID lookup table. Parsers call it once after filling
// Screenings; Screening() falls back to a scan when it has not been built.
func (c *Catalog) Index() {
	c.byID = make(map[string]int, len(c.Screenings))
	for i, s := range c.Screenings {
		if _, dup := c.byID[s.ID]; dup {
			continue
		}
		c.byID[s.ID] = i
	}
}

// Screening looks up a screening by ID.
func (c *Catalog) Screening(id string) (Screening, bool) {
	if c == nil {
		return Screening{}, false
	}
	if c.byID != nil {
		if i, ok := c.byID[id]; ok {
			return c.Screenings[i], true
		}
		return Screening{}, false
	}
	for _, s := range c.Screenings {
		if s.ID == id {
			return s, true
		}
	}
	return Screening{}, false
}

// HasScreening reports whether id is in the catalog.
func (c *Catalog) HasScreening(id string) bool {
	_, ok := c.Screening(id)
	return ok
}

// Venue looks up a venue by ID.
func (c *Catalog) Venue(id string) (Venue, bool) {
	if c == nil {
		return Venue{}, false
	}
	for _, v := range c.Venues {
		if v.ID == id {
			return v, true
		}
	}
	return Venue{}, false
}

// Day looks up a day by date.
func (c *Catalog) Day(date string) (Day, bool) {
	if c == nil {
		return Day{}, false
	}
	for _, d := range c.Days {
		if d.Date == date {
			return d, true
		}
	}
	return Day{}, false
}
