// Package termview prints a plan for the terminal: the selected screenings
// in start order, the paid-ticket counter and any overlapping pairs.
package termview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"festplan/internal/model"
	"festplan/internal/plan"
)

// Column widths for the selection table.
const (
	columnWidthDay   = 9  // "Ma 12.3. "
	columnWidthTime  = 12 // "10:00-12:00 "
	columnWidthVenue = 8
	columnWidthCode  = 8
)

// theme holds the styles bound to one output's color profile.
type theme struct {
	title    lipgloss.Style
	dim      lipgloss.Style
	conflict lipgloss.Style
	warn     lipgloss.Style
	ok       lipgloss.Style
	cell     func(width int) lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) theme {
	return theme{
		title:    r.NewStyle().Bold(true),
		dim:      r.NewStyle().Foreground(lipgloss.Color("245")),
		conflict: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		warn:     r.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		ok:       r.NewStyle().Foreground(lipgloss.Color("42")),
		cell: func(width int) lipgloss.Style {
			return r.NewStyle().Width(width).MaxWidth(width)
		},
	}
}

// Render writes v to w. Colors follow whatever w supports; a plain buffer
// gets plain text.
func Render(w io.Writer, cat *model.Catalog, v *plan.View) error {
	th := newTheme(lipgloss.NewRenderer(w))

	var b strings.Builder
	b.WriteString(th.title.Render(fmt.Sprintf("Valitut näytökset (%d)", v.Stats.Selected)))
	b.WriteString("\n")

	if len(v.Selected) == 0 {
		b.WriteString(th.dim.Render("Ei valintoja."))
		b.WriteString("\n")
	}
	for _, s := range v.Selected {
		b.WriteString(renderRow(th, cat, v, s))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderCounter(th, v.Stats.Paid, v.Stats.MaxPaid, v.Stats.OverPaidLimit))
	b.WriteString("\n")

	if v.Conflicts.Any {
		b.WriteString(th.conflict.Render("Päällekkäiset näytökset:"))
		b.WriteString("\n")
		for _, p := range v.Conflicts.Pairs {
			fmt.Fprintf(&b, "  %s × %s  %d min\n", codeOf(cat, p.A), codeOf(cat, p.B), p.Minutes)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderRow(th theme, cat *model.Catalog, v *plan.View, s model.Screening) string {
	day := s.Date()
	if d, ok := cat.Day(day); ok && d.Label != "" {
		day = d.Label
	}
	venue := s.VenueID
	if ven, ok := cat.Venue(s.VenueID); ok {
		venue = ven.DisplayName()
	}
	end := s.Start.Add(s.Duration())

	marker := "  "
	if v.Conflicts.Has(s.ID) {
		marker = th.conflict.Render("! ")
	}

	title := s.Title
	if s.IsFree {
		title += " " + th.ok.Render("(vapaa)")
	}

	return marker +
		th.cell(columnWidthDay).Render(day) +
		th.cell(columnWidthTime).Render(s.Start.Format("15:04")+"-"+end.Format("15:04")) +
		th.cell(columnWidthVenue).Render(venue) +
		th.cell(columnWidthCode).Render(s.Code()) +
		title
}

func renderCounter(th theme, paid, maxPaid int, over bool) string {
	text := fmt.Sprintf("Maksulliset: %d/%d", paid, maxPaid)
	if over {
		return th.warn.Render(text + " (yli rajan)")
	}
	return th.dim.Render(text)
}

func codeOf(cat *model.Catalog, id string) string {
	if s, ok := cat.Screening(id); ok {
		return s.Code()
	}
	return id
}
