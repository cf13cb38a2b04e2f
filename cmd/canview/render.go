package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"example.com/canview/internal/highlight"
	"example.com/canview/internal/rows"
	"example.com/canview/internal/view"
)

const (
	searchHighlightBGColor = "#f5c542"
	searchHighlightFGColor = "#000000"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).BorderForeground(lipgloss.Color("240"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	searchHighlight = lipgloss.NewStyle().
			Background(lipgloss.Color(searchHighlightBGColor)).
			Foreground(lipgloss.Color(searchHighlightFGColor))
)

type column struct {
	name  string
	width int
}

// line number first, then the five display cells of a row
var columns = []column{
	{"Line", 7},
	{"Time", 16},
	{"From/To", 22},
	{"Id", 34},
	{"Data", 27},
	{"Description", 44},
}

func renderTable(visible []rows.Row, styleFor func(rows.Row) *highlight.Style, search string) string {
	var cells []string
	for _, col := range columns {
		cells = append(cells, cellStyle.Width(col.width).Render(col.name))
	}
	lines := []string{headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...))}
	if len(visible) == 0 {
		lines = append(lines, noticeStyle.Render("No data"))
		return strings.Join(lines, "\n")
	}
	for _, r := range visible {
		values := append([]string{strconv.Itoa(r.LineNumber)}, r.Cells()...)
		style := rowStyle(styleFor(r))
		cells = cells[:0]
		for i, col := range columns {
			text := truncate(values[i], col.width-2)
			cells = append(cells, style.Width(col.width).Render(highlightMatches(text, search)))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

// rowStyle converts configured highlight colours into a cell style.
func rowStyle(s *highlight.Style) lipgloss.Style {
	style := cellStyle
	if s == nil {
		return style
	}
	if r, g, b, ok := highlight.ParseColor(s.BackgroundColor); ok {
		style = style.Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b)))
	}
	if r, g, b, ok := highlight.ParseColor(s.TextColor); ok {
		style = style.Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b)))
	}
	return style
}

func highlightMatches(text, query string) string {
	if query == "" || text == "" {
		return text
	}
	var b strings.Builder
	for _, seg := range view.HighlightSegments(text, query) {
		if seg.Match {
			b.WriteString(searchHighlight.Render(seg.Text))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
