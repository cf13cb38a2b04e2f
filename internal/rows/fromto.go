package rows

import (
	"encoding/json"
	"os"
)

// DefaultFromToSeparator joins the endpoints of the From->To column.
const DefaultFromToSeparator = " => "

const unknownEndpoint = "Unknown"

// FromToRule overrides the endpoints shown for rows with a given Name.
type FromToRule struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// FromToMapping is the from_to_mapping.json document.
type FromToMapping struct {
	Rules       map[string]FromToRule `json:"rules,omitempty"`
	Separator   string                `json:"separator,omitempty"`
	DefaultFrom string                `json:"defaultFrom,omitempty"`
	DefaultTo   string                `json:"defaultTo,omitempty"`
}

// LoadFromTo reads a mapping document from disk.
func LoadFromTo(path string) (*FromToMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m FromToMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Format builds the From->To cell. A rule keyed by name wins; otherwise the
// CSV source and target are used, falling back to the configured defaults and
// then to "Unknown". A nil mapping behaves like an empty one.
func (m *FromToMapping) Format(name, source, target string) string {
	var mapping FromToMapping
	if m != nil {
		mapping = *m
	}
	sep := mapping.Separator
	if sep == "" {
		sep = DefaultFromToSeparator
	}
	defaultFrom := firstNonEmpty(mapping.DefaultFrom, source, unknownEndpoint)
	defaultTo := firstNonEmpty(mapping.DefaultTo, target, unknownEndpoint)
	if rule, ok := mapping.Rules[name]; ok && name != "" {
		return firstNonEmpty(rule.From, defaultFrom) + sep + firstNonEmpty(rule.To, defaultTo)
	}
	return firstNonEmpty(source, defaultFrom) + sep + firstNonEmpty(target, defaultTo)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
