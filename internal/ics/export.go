// Package ics exports a personal screening plan as an iCalendar feed so it
// can be subscribed to from a phone calendar.
package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "festplan/internal/log"
	"festplan/internal/model"
)

const defaultProductID = "-//festplan//schedule//FI"

// ExportOptions controls calendar-level properties of the export.
type ExportOptions struct {
	// Name is shown by calendar apps as the subscription title.
	Name string
	// UIDDomain is appended to screening IDs to form globally unique UIDs.
	UIDDomain string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// Export renders screenings as VEVENTs, one per screening, in the given
// order. Venue names come from cat; a screening whose venue is unknown is
// exported without LOCATION.
func Export(cat *model.Catalog, screenings []model.Screening, opts ExportOptions) ([]byte, error) {
	if cat == nil {
		return nil, errors.New("ics: catalog not loaded")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	domain := opts.UIDDomain
	if domain == "" {
		domain = "festplan.local"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(defaultProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, s := range screenings {
		ev := cal.AddEvent(s.ID + "@" + domain)
		ev.SetDtStampTime(now)
		ev.SetStartAt(s.Start)
		end := s.End
		if !end.After(s.Start) {
			end = s.Start.Add(s.Duration())
		}
		ev.SetEndAt(end)
		ev.SetSummary(summary(s))
		if v, ok := cat.Venue(s.VenueID); ok {
			ev.SetLocation(v.Name)
		}
		if s.URL != "" {
			ev.SetURL(s.URL)
		}
		if d := description(s); d != "" {
			ev.SetDescription(d)
		}
	}

	appLog.Debug("ics export built", "events", len(screenings))
	return []byte(cal.Serialize()), nil
}

func summary(s model.Screening) string {
	if s.Title == "" {
		return s.Code()
	}
	return s.Title
}

func description(s model.Screening) string {
	var parts []string
	if s.TicketCode != "" {
		parts = append(parts, "Lippukoodi: "+s.TicketCode)
	}
	if s.IsFree {
		parts = append(parts, "Vapaa pääsy")
	}
	if s.ProgramNumber > 0 {
		parts = append(parts, fmt.Sprintf("Ohjelma %d", s.ProgramNumber))
	}
	return strings.Join(parts, "\n")
}
