package highlight

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MatchType selects how a rule compares its text against a row.
type MatchType string

const (
	Equals     MatchType = "equals"
	StartsWith MatchType = "startsWith"
	EndsWith   MatchType = "endsWith"
	Contains   MatchType = "contains"
)

// Rule colours rows whose joined text matches Match.
type Rule struct {
	Match           string    `json:"match"`
	MatchType       MatchType `json:"matchType,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	TextColor       string    `json:"textColor,omitempty"`
}

// Config is the row_highlight.json document.
type Config struct {
	Highlights []Rule `json:"highlights"`
}

// Style is the colour override for a row. Empty fields keep the default.
type Style struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
}

// Matcher evaluates rules in order.
type Matcher struct {
	rules    []Rule
	warnings []string
}

// NewMatcher normalises the configured rules. Unknown match types are kept and
// evaluated as Contains.
func NewMatcher(cfg Config) *Matcher {
	m := &Matcher{rules: make([]Rule, 0, len(cfg.Highlights))}
	for i, r := range cfg.Highlights {
		switch r.MatchType {
		case Equals, StartsWith, EndsWith, Contains:
		case "":
			r.MatchType = Contains
		default:
			m.warnings = append(m.warnings, fmt.Sprintf("highlights[%d]: unknown matchType %q, using contains", i, r.MatchType))
			r.MatchType = Contains
		}
		m.rules = append(m.rules, r)
	}
	return m
}

// Load reads a highlight document from disk.
func Load(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return NewMatcher(cfg), nil
}

// Warnings lists rules that were adjusted while loading.
func (m *Matcher) Warnings() []string {
	if m == nil {
		return nil
	}
	return m.warnings
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// StyleFor joins cells with a single space and returns the colours of the
// first matching rule, or nil when no rule matches.
func (m *Matcher) StyleFor(cells []string) *Style {
	if m == nil || len(m.rules) == 0 {
		return nil
	}
	text := strings.Join(cells, " ")
	for _, r := range m.rules {
		if r.matches(text) {
			return &Style{BackgroundColor: r.BackgroundColor, TextColor: r.TextColor}
		}
	}
	return nil
}

func (r Rule) matches(text string) bool {
	switch r.MatchType {
	case Equals:
		return text == r.Match
	case StartsWith:
		return strings.HasPrefix(text, r.Match)
	case EndsWith:
		return strings.HasSuffix(text, r.Match)
	default:
		return strings.Contains(text, r.Match)
	}
}

// ParseColor converts "#rgb", "#rrggbb" or "rgb(r, g, b)" into components.
func ParseColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return 0, 0, 0, false
		}
		var rgb [3]int
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || v < 0 || v > 255 {
				return 0, 0, 0, false
			}
			rgb[i] = v
		}
		return rgb[0], rgb[1], rgb[2], true
	}
	hex, found := strings.CutPrefix(s, "#")
	if !found {
		return 0, 0, 0, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16), int(v >> 8 & 0xff), int(v & 0xff), true
}
