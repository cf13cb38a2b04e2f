package highlight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleForFirstMatchWins(t *testing.T) {
	m := NewMatcher(Config{Highlights: []Rule{
		{Match: "0x2CF", BackgroundColor: "#ffeeee"},
		{Match: "Reply", MatchType: StartsWith, TextColor: "#333"},
		{Match: "Thermal", BackgroundColor: "#000000", TextColor: "#ffffff"},
	}})
	style := m.StyleFor([]string{"10:00", "Host => Probe", "0x2CF - Reply Thermal State", "10 40", ""})
	require.NotNil(t, style)
	assert.Equal(t, Style{BackgroundColor: "#ffeeee"}, *style)

	style = m.StyleFor([]string{"Reply", "x"})
	require.NotNil(t, style)
	assert.Equal(t, "#333", style.TextColor)

	assert.Nil(t, m.StyleFor([]string{"nothing", "here"}))
}

func TestMatchTypes(t *testing.T) {
	cells := []string{"a", "b", "c"}
	tests := []struct {
		rule Rule
		want bool
	}{
		{Rule{Match: "a b c", MatchType: Equals}, true},
		{Rule{Match: "a b", MatchType: Equals}, false},
		{Rule{Match: "a b", MatchType: StartsWith}, true},
		{Rule{Match: "b c", MatchType: EndsWith}, true},
		{Rule{Match: "a c", MatchType: EndsWith}, false},
		{Rule{Match: "b"}, true},
		{Rule{Match: "B"}, false},
		{Rule{Match: "b", MatchType: "regex"}, true},
	}
	for _, tt := range tests {
		m := NewMatcher(Config{Highlights: []Rule{tt.rule}})
		got := m.StyleFor(cells) != nil
		assert.Equal(t, tt.want, got, "%+v", tt.rule)
	}
}

func TestEmptyMatcher(t *testing.T) {
	var m *Matcher
	assert.Nil(t, m.StyleFor([]string{"x"}))
	assert.Nil(t, NewMatcher(Config{}).StyleFor([]string{"x"}))
	assert.Equal(t, 0, m.Len())
}

func TestLoadWarnsOnUnknownMatchType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "row_highlight.json")
	doc := `{"highlights": [{"match": "ERR", "matchType": "fuzzy", "backgroundColor": "red"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	require.Len(t, m.Warnings(), 1)
	assert.NotNil(t, m.StyleFor([]string{"ERR 1"}))
}

func TestParseColor(t *testing.T) {
	r, g, b, ok := ParseColor("#FF8000")
	require.True(t, ok)
	assert.Equal(t, []int{255, 128, 0}, []int{r, g, b})

	r, g, b, ok = ParseColor("#0f0")
	require.True(t, ok)
	assert.Equal(t, []int{0, 255, 0}, []int{r, g, b})

	r, g, b, ok = ParseColor("rgb(1, 2, 3)")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, []int{r, g, b})

	for _, bad := range []string{"", "red", "#12", "#gggggg", "rgb(1,2)", "rgb(1,2,300)"} {
		_, _, _, ok := ParseColor(bad)
		assert.False(t, ok, bad)
	}
}
