package view

import (
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/canview/internal/dict"
	"example.com/canview/internal/highlight"
	"example.com/canview/internal/rows"
)

// Definitions is the lookup surface a session needs for projection and the
// sidebar. *dict.Store satisfies it.
type Definitions interface {
	rows.Definitions
	Lookup(id string) (dict.Definition, bool)
	LookupName(name string) (dict.Definition, bool)
}

// Config carries everything a session is built from. Nil members behave as
// empty configuration.
type Config struct {
	File        string
	Protocol    string
	Digest      string
	RowCap      int
	Definitions Definitions
	Decoder     rows.Decoder
	FromTo      *rows.FromToMapping
	Highlight   *highlight.Matcher
}

// Summary describes how much of the file a view shows.
type Summary struct {
	Cap       int  `json:"cap"`
	TotalRaw  int  `json:"totalRaw"`
	Projected int  `json:"projected"`
	Visible   int  `json:"visible"`
	Hidden    int  `json:"hidden"`
	Truncated bool `json:"truncated"`
}

// SidebarEntry is one filter item, merging every raw id that shares a
// display id.
type SidebarEntry struct {
	DisplayID   string   `json:"displayId"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	IDs         []string `json:"ids"`
	Filtered    bool     `json:"filtered"`
}

// Session is the state of one file view. Its rows are fixed at construction;
// only the hidden id set changes afterwards.
type Session struct {
	mu       sync.RWMutex
	file     string
	protocol string
	digest   string
	created  time.Time
	table    rows.Table
	proj     rows.Projection
	defs     Definitions
	matcher  *highlight.Matcher
	hidden   IDSet
}

// NewSession projects table and starts with nothing hidden.
func NewSession(cfg Config, table rows.Table) *Session {
	defs := cfg.Definitions
	if defs == nil {
		defs = (*dict.Store)(nil)
	}
	proj := rows.Project(table, rows.Deps{
		Definitions: defs,
		Decoder:     cfg.Decoder,
		FromTo:      cfg.FromTo,
	}, cfg.RowCap)
	return &Session{
		file:     cfg.File,
		protocol: cfg.Protocol,
		digest:   cfg.Digest,
		created:  time.Now().UTC(),
		table:    table,
		proj:     proj,
		defs:     defs,
		matcher:  cfg.Highlight,
		hidden:   make(IDSet),
	}
}

func (s *Session) File() string       { return s.file }
func (s *Session) Protocol() string   { return s.protocol }
func (s *Session) Digest() string     { return s.digest }
func (s *Session) Created() time.Time { return s.created }

// Table returns the raw parsed table the session was built from.
func (s *Session) Table() rows.Table { return s.table }

// Rows returns every projected row.
func (s *Session) Rows() []rows.Row {
	out := make([]rows.Row, len(s.proj.Rows))
	copy(out, s.proj.Rows)
	return out
}

// Hidden returns a copy of the hidden id set.
func (s *Session) Hidden() IDSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(IDSet, len(s.hidden))
	for id := range s.hidden {
		out[id] = struct{}{}
	}
	return out
}

// Visible filters the projected rows by the hidden set and search term.
func (s *Session) Visible(search string) []rows.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return VisibleRows(s.proj.Rows, s.hidden, search)
}

// Summary counts the rows shown for search.
func (s *Session) Summary(search string) Summary {
	visible := len(s.Visible(search))
	projected := len(s.proj.Rows)
	return Summary{
		Cap:       s.proj.Cap,
		TotalRaw:  s.proj.TotalRaw,
		Projected: projected,
		Visible:   visible,
		Hidden:    projected - visible,
		Truncated: s.proj.TotalRaw > s.proj.Cap,
	}
}

// Style returns the highlight colours for r, or nil.
func (s *Session) Style(r rows.Row) *highlight.Style {
	return s.matcher.StyleFor(r.Cells())
}

// Toggle hides every id unless all of them are already hidden, in which case
// it shows them all. It returns true when the ids end up hidden.
func (s *Session) Toggle(ids []string) bool {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	allHidden := true
	for _, id := range clean {
		if !s.hidden.Has(id) {
			allHidden = false
			break
		}
	}
	for _, id := range clean {
		if allHidden {
			delete(s.hidden, id)
		} else {
			s.hidden[id] = struct{}{}
		}
	}
	return !allHidden
}

// ToggleGroup toggles every raw id merged under displayID. It reports false
// when no sidebar entry has that display id.
func (s *Session) ToggleGroup(displayID string) (hidden bool, found bool) {
	for _, entry := range s.Sidebar() {
		if entry.DisplayID == displayID {
			return s.Toggle(entry.IDs), true
		}
	}
	return false, false
}

// Sidebar lists one entry per display id, sorted case-insensitively.
func (s *Session) Sidebar() []SidebarEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := make(map[string]int)
	var entries []SidebarEntry
	for _, m := range s.proj.Meanings {
		displayID, description := s.groupOf(m)
		pos, ok := index[displayID]
		if !ok {
			pos = len(entries)
			index[displayID] = pos
			entries = append(entries, SidebarEntry{DisplayID: displayID, Description: description})
		}
		entries[pos].IDs = append(entries[pos].IDs, m.ID)
	}
	for i := range entries {
		e := &entries[i]
		e.Label = "0x" + strings.ToUpper(e.DisplayID)
		if e.Description != "" {
			e.Label += " - " + e.Description
		}
		e.Filtered = true
		for _, id := range e.IDs {
			if !s.hidden.Has(id) {
				e.Filtered = false
				break
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].DisplayID), strings.ToLower(entries[j].DisplayID)
		if a != b {
			return a < b
		}
		return entries[i].DisplayID < entries[j].DisplayID
	})
	return entries
}

// groupOf resolves the sidebar display id and description of one id. Name
// definitions with a virtual id replace the CSV meaning; message definitions
// replace it when they carry a description.
func (s *Session) groupOf(m rows.Meaning) (string, string) {
	displayID, description := m.ID, m.Meaning
	if def, ok := s.defs.LookupName(m.ID); ok && def.VirtualID != "" {
		displayID, description = def.VirtualID, def.Description
	}
	if def, ok := s.defs.Lookup(m.ID); ok {
		if def.Description != "" {
			description = def.Description
		}
		if displayID == m.ID && def.VirtualID != "" {
			displayID = def.VirtualID
		}
	}
	return displayID, description
}
