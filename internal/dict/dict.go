package dict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Unresolved is the identifier used for rows without buffer id or name.
const Unresolved = "N/A"

// Definition describes a message id or a named signal.
type Definition struct {
	ID          string
	Hex         string
	Dec         string
	Description string
	VirtualID   string
}

// Resolution is the display information for one raw identifier.
type Resolution struct {
	Description string
	DisplayID   string
	VirtualID   string
	Known       bool
}

// Store indexes message and name definitions for constant-time lookup.
type Store struct {
	byHex      map[string]Definition
	byDec      map[string]Definition
	byHexField map[string]Definition
	names      map[string]Definition
	warnings   []string
}

// JSONDefinition accepts either a bare description string or an object.
type JSONDefinition struct {
	Description string     `json:"description,omitempty"`
	Dec         FlexString `json:"dec,omitempty"`
	Hex         string     `json:"hex,omitempty"`
	VirtualID   FlexString `json:"virtualId,omitempty"`
}

// UnmarshalJSON implements the string-or-object form.
func (d *JSONDefinition) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*d = JSONDefinition{Description: s}
		return nil
	}
	type plain JSONDefinition
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*d = JSONDefinition(p)
	return nil
}

// FlexString decodes JSON strings and numbers into text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}
	*f = FlexString(n.String())
	return nil
}

// DefinitionsFile is the message definitions document keyed by hex id.
type DefinitionsFile map[string]JSONDefinition

// NamesFile is the name definitions document.
type NamesFile struct {
	Definitions map[string]JSONDefinition `json:"definitions"`
}

// FromJSON builds the lookup indexes from both documents. Entries with an
// empty or duplicate key are skipped, and an unusable dec value only drops
// the decimal alias; each case is recorded in Warnings. Keys are visited in
// sorted order so the surviving entry does not depend on map iteration.
func FromJSON(defs DefinitionsFile, names NamesFile) (*Store, error) {
	store := &Store{
		byHex:      make(map[string]Definition),
		byDec:      make(map[string]Definition),
		byHexField: make(map[string]Definition),
		names:      make(map[string]Definition),
	}
	for _, key := range sortedKeys(defs) {
		entry := defs[key]
		id := strings.ToLower(strings.TrimSpace(key))
		if id == "" {
			store.warn("definitions: empty id skipped")
			continue
		}
		if prev, exists := store.byHex[id]; exists {
			store.warn("definitions[%s]: duplicate of %s skipped", key, prev.ID)
			continue
		}
		def := Definition{
			ID:          id,
			Hex:         strings.ToLower(strings.TrimSpace(entry.Hex)),
			Dec:         strings.TrimSpace(string(entry.Dec)),
			Description: strings.TrimSpace(entry.Description),
			VirtualID:   strings.TrimSpace(string(entry.VirtualID)),
		}
		if def.Dec != "" {
			if _, err := strconv.ParseUint(def.Dec, 10, 32); err != nil {
				store.warn("definitions[%s]: dec %q is not a decimal id, alias ignored", key, def.Dec)
			} else if prev, exists := store.byDec[def.Dec]; exists {
				store.warn("definitions[%s]: dec %s already used by %s, alias ignored", key, def.Dec, prev.ID)
			} else {
				store.byDec[def.Dec] = def
			}
		}
		if def.Hex != "" {
			store.byHexField[def.Hex] = def
		}
		store.byHex[id] = def
	}
	for _, key := range sortedKeys(names.Definitions) {
		entry := names.Definitions[key]
		name := strings.TrimSpace(key)
		if name == "" {
			store.warn("name definitions: empty name skipped")
			continue
		}
		if _, exists := store.names[name]; exists {
			store.warn("name definitions[%q]: duplicate name skipped", key)
			continue
		}
		store.names[name] = Definition{
			ID:          name,
			Description: strings.TrimSpace(entry.Description),
			VirtualID:   strings.TrimSpace(string(entry.VirtualID)),
		}
	}
	return store, nil
}

// Warnings lists entries that were skipped or partially ignored while
// building the store.
func (s *Store) Warnings() []string {
	if s == nil {
		return nil
	}
	return s.warnings
}

func (s *Store) warn(format string, args ...interface{}) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

func sortedKeys(m map[string]JSONDefinition) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup finds a message definition by hex key, then by decimal id.
func (s *Store) Lookup(id string) (Definition, bool) {
	if s == nil || id == "" {
		return Definition{}, false
	}
	if def, ok := s.byHex[strings.ToLower(id)]; ok {
		return def, true
	}
	def, ok := s.byDec[id]
	return def, ok
}

// LookupName finds a definition for a non-bus signal name.
func (s *Store) LookupName(name string) (Definition, bool) {
	if s == nil || name == "" {
		return Definition{}, false
	}
	def, ok := s.names[name]
	return def, ok
}

// Resolve returns the description and sidebar grouping id for a raw id.
func (s *Store) Resolve(id string) Resolution {
	res := Resolution{Description: id, DisplayID: id}
	if id == "" || id == Unresolved {
		return res
	}
	if def, ok := s.LookupName(id); ok {
		res.Known = true
		if def.VirtualID != "" {
			res.VirtualID, res.DisplayID = def.VirtualID, def.VirtualID
		}
		if def.Description != "" {
			res.Description = def.Description
			return res
		}
	}
	if def, ok := s.Lookup(id); ok {
		res.Known = true
		if def.Description != "" {
			res.Description = def.Description
		}
		if res.VirtualID == "" && def.VirtualID != "" {
			res.VirtualID, res.DisplayID = def.VirtualID, def.VirtualID
		}
	}
	return res
}

// Contains reports whether rows with this id belong in the table. An empty
// store admits every id except Unresolved.
func (s *Store) Contains(id string) bool {
	if id == "" || id == Unresolved {
		return false
	}
	if s.IsEmpty() {
		return true
	}
	if _, ok := s.names[id]; ok {
		return true
	}
	if _, ok := s.Lookup(id); ok {
		return true
	}
	_, ok := s.byHexField[strings.ToLower(id)]
	return ok
}

// GroupKey returns the sidebar entry id that raw id is merged into.
func (s *Store) GroupKey(id string) string {
	return s.Resolve(id).DisplayID
}

// IsEmpty reports whether neither document defines anything.
func (s *Store) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.byHex) == 0 && len(s.names) == 0
}

// Len returns the number of message and name definitions.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byHex) + len(s.names)
}
