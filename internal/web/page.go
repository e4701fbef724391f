package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	appLog "festplan/internal/log"
	"festplan/internal/model"
	"festplan/internal/plan"
	"festplan/internal/tagcodec"
	"festplan/internal/tags"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/schedule.html"))

type pageBox struct {
	Code  string
	Title string
	Time  string
	Class string
	Style template.CSS
	// Href toggles the selected tag on this screening.
	Href string
}

type pageRow struct {
	Label string
	Cells [][]pageBox
}

type pageDay struct {
	Label   string
	Venues  []string
	Rows    []pageRow
	Columns template.CSS
	Dropped int
}

type pageSelected struct {
	Day      string
	Time     string
	Venue    string
	Code     string
	Title    string
	Conflict bool
	Href     string
}

type pageData struct {
	Days      []pageDay
	Selected  []pageSelected
	Stats     string
	OverLimit bool
	Conflicts []string
	Series    []model.Series
	RowHeight template.CSS
	ClearHref string
	ICSHref   string
	Fragment  string
}

// handlePage renders the schedule grid for a state. Boxes link to the same
// page with that screening's selection toggled, so the page works without
// any client-side code.
//
// GET /schedule?state=<fragment>
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	cat := s.current(w)
	if cat == nil {
		return
	}
	store := s.decodeState(r.URL.Query().Get("state"), cat, false)
	view := plan.Build(cat, store, s.planOptions())

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, s.pageData(cat, store, view)); err != nil {
		appLog.Error("schedule page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) pageData(cat *model.Catalog, store *tags.Store, v *plan.View) pageData {
	tog := tagcodec.NewToggler(store, s.cfg.Tags)
	toggled := func(id string) string {
		return stateHref(tog.Toggle(id, tags.TagSelected))
	}

	data := pageData{
		Stats:     fmt.Sprintf("Valittu %d, maksullisia %d/%d", v.Stats.Selected, v.Stats.Paid, v.Stats.MaxPaid),
		OverLimit: v.Stats.OverPaidLimit,
		Series:    v.Series,
		RowHeight: template.CSS(fmt.Sprintf("%.2fpx", v.RowHeightPx)),
		ClearHref: "/schedule",
		ICSHref:   exportHref(v.Fragment),
		Fragment:  v.Fragment,
	}

	for _, d := range v.Days {
		pd := pageDay{
			Label:   d.Label,
			Dropped: d.Grid.Dropped,
			Columns: template.CSS(fmt.Sprintf("4em repeat(%d, minmax(7em, 1fr))", len(d.Grid.Venues))),
		}
		for _, ven := range d.Grid.Venues {
			pd.Venues = append(pd.Venues, ven.DisplayName())
		}
		for _, row := range d.Grid.Rows {
			pr := pageRow{Label: row.Label, Cells: make([][]pageBox, len(row.Cells))}
			for i, cell := range row.Cells {
				for _, b := range cell.Boxes {
					pr.Cells[i] = append(pr.Cells[i], pageBox{
						Code:  b.Screening.Code(),
						Title: b.Screening.Title,
						Time:  timeRange(b.Screening),
						Class: boxClass(b.Screening, b.Selected, b.Conflict, b.Tags),
						Style: template.CSS(fmt.Sprintf("top:%.2fpx;height:%.2fpx", b.Geometry.TopPx, b.Geometry.HeightPx)),
						Href:  toggled(b.Screening.ID),
					})
				}
			}
			pd.Rows = append(pd.Rows, pr)
		}
		data.Days = append(data.Days, pd)
	}

	for _, sc := range v.Selected {
		day := sc.Date()
		if d, ok := cat.Day(day); ok && d.Label != "" {
			day = d.Label
		}
		venue := sc.VenueID
		if ven, ok := cat.Venue(sc.VenueID); ok {
			venue = ven.DisplayName()
		}
		data.Selected = append(data.Selected, pageSelected{
			Day:      day,
			Time:     timeRange(sc),
			Venue:    venue,
			Code:     sc.Code(),
			Title:    sc.Title,
			Conflict: v.Conflicts.Has(sc.ID),
			Href:     toggled(sc.ID),
		})
	}

	for _, p := range v.Conflicts.Pairs {
		data.Conflicts = append(data.Conflicts, fmt.Sprintf("%s × %s (%d min)", p.A, p.B, p.Minutes))
	}
	return data
}

func timeRange(s model.Screening) string {
	return s.Start.Format("15:04") + "-" + s.Start.Add(s.Duration()).Format("15:04")
}

func boxClass(s model.Screening, selected, conflict bool, tagIDs []string) string {
	classes := []string{"box"}
	if selected {
		classes = append(classes, "selected")
	}
	if conflict {
		classes = append(classes, "conflict")
	}
	if s.IsFree {
		classes = append(classes, "free")
	}
	for _, t := range tagIDs {
		if t != tags.TagSelected {
			classes = append(classes, "tag-"+t)
		}
	}
	if s.SeriesID != "" {
		classes = append(classes, "series-"+s.SeriesID)
	}
	return strings.Join(classes, " ")
}

// stateHref links to the schedule page for a fragment.
func stateHref(fragment string) string {
	if fragment == "" {
		return "/schedule"
	}
	return "/schedule?state=" + url.QueryEscape(fragment)
}

// exportHref links to the ICS export for a fragment.
func exportHref(fragment string) string {
	return "/api/export.ics?state=" + url.QueryEscape(fragment)
}
