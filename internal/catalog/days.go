package catalog

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "festplan/internal/log"
	"festplan/internal/model"
)

var (
	weekdayShort = [...]string{"Su", "Ma", "Ti", "Ke", "To", "Pe", "La"}
	weekdayLong  = [...]string{"sunnuntai", "maanantai", "tiistai", "keskiviikko", "torstai", "perjantai", "lauantai"}
)

// DayLabel formats a date the way the printed program does, e.g. "Ma 9.3.".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%s %d.%d.", weekdayShort[t.Weekday()], t.Day(), int(t.Month()))
}

// DeriveDays builds one Day per calendar date from the first to the last
// screening, gaps included, for programs that ship without a days list.
func DeriveDays(screenings []model.Screening, loc *time.Location) []model.Day {
	if len(screenings) == 0 {
		return []model.Day{}
	}
	if loc == nil {
		loc = time.UTC
	}

	first, last := screenings[0].Start.In(loc), screenings[0].Start.In(loc)
	for _, s := range screenings[1:] {
		st := s.Start.In(loc)
		if st.Before(first) {
			first = st
		}
		if st.After(last) {
			last = st
		}
	}
	from := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	until := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: from,
		Until:   until,
	})
	if err != nil {
		appLog.Error("catalog: day rule failed", err, "from", from.Format("2006-01-02"), "until", until.Format("2006-01-02"))
		return []model.Day{}
	}

	dates := r.All()
	days := make([]model.Day, 0, len(dates))
	for _, d := range dates {
		d = d.In(loc)
		days = append(days, model.Day{
			Date:      d.Format("2006-01-02"),
			Label:     DayLabel(d),
			DayOfWeek: weekdayLong[d.Weekday()],
		})
	}
	return days
}
