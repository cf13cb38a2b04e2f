package report

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"example.com/canview/internal/highlight"
	"example.com/canview/internal/rows"
	"example.com/canview/internal/view"
)

// ViewRow is a visible row with its highlight colours.
type ViewRow struct {
	rows.Row
	Style *highlight.Style `json:"style,omitempty"`
}

// ViewReport is the exported state of a view: what was visible and why.
type ViewReport struct {
	File      string       `json:"file"`
	Protocol  string       `json:"protocol"`
	Digest    string       `json:"digest,omitempty"`
	Generated time.Time    `json:"generated"`
	Search    string       `json:"search,omitempty"`
	Hidden    []string     `json:"hidden,omitempty"`
	Summary   view.Summary `json:"summary"`
	Rows      []ViewRow    `json:"rows"`
}

// FromSession captures the rows of s visible under search.
func FromSession(s *view.Session, search string) ViewReport {
	visible := s.Visible(search)
	rep := ViewReport{
		File:      s.File(),
		Protocol:  s.Protocol(),
		Digest:    s.Digest(),
		Generated: time.Now().UTC(),
		Search:    search,
		Hidden:    s.Hidden().Sorted(),
		Summary:   s.Summary(search),
		Rows:      make([]ViewRow, 0, len(visible)),
	}
	for _, r := range visible {
		rep.Rows = append(rep.Rows, ViewRow{Row: r, Style: s.Style(r)})
	}
	return rep
}

// WriteViewJSON encodes rep as indented JSON.
func WriteViewJSON(w io.Writer, rep ViewReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func SaveViewJSON(rep ViewReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadViewJSON(path string) (ViewReport, error) {
	var rep ViewReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}
