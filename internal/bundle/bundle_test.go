package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"example.com/canview/internal/rows"
	"example.com/canview/internal/view"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, ProtocolCANopen, NormalizeProtocol(" canopen "))
	assert.Equal(t, ProtocolCommon, NormalizeProtocol("Common"))
	assert.Equal(t, ProtocolCAN, NormalizeProtocol("lin"))
	assert.Equal(t, ProtocolCAN, NormalizeProtocol(""))
}

func TestLoadMissingDirectoryUsesDefaults(t *testing.T) {
	b := Load(t.TempDir(), "can")
	assert.Equal(t, ProtocolCAN, b.Protocol)
	assert.True(t, b.Definitions.IsEmpty())
	assert.True(t, b.Codec.IsEmpty())
	assert.Equal(t, 0, b.Highlight.Len())
	assert.Len(t, b.Warnings, 4)

	s := view.NewSession(b.ViewConfig("f.csv", "", 0), rows.Table{
		Headers: []string{"Buffer"},
		Rows:    [][]string{{"string=7ff:1:[00]"}},
	})
	assert.Len(t, s.Rows(), 1)
}

func TestLoadFullBundle(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "can")
	writeFile(t, dir, DefinitionsFile, `{"2cf": {"description": "Reply Thermal State"}}`)
	writeFile(t, dir, NameDefinitionsFile, `{"definitions": {"RTB_Start": {"description": "Rotor"}}}`)
	writeFile(t, dir, DataParserFile, `{"2cf": {"bytes": {"0": {"type": "hex8"}}}}`)
	writeFile(t, dir, HighlightFile, `{"highlights": [{"match": "Thermal", "backgroundColor": "#ff0000"}]}`)
	writeFile(t, dir, FromToFile, `{"separator": " -> "}`)

	b := Load(root, "CAN")
	assert.Empty(t, b.Warnings)
	assert.False(t, b.Definitions.IsEmpty())

	s := view.NewSession(b.ViewConfig("f.csv", "abc", 0), rows.Table{
		Headers: []string{"Source", "Target", "Buffer"},
		Rows: [][]string{
			{"A", "B", "string=2cf:1:[7f]"},
			{"A", "B", "string=100:1:[7f]"},
		},
	})
	got := s.Rows()
	require.Len(t, got, 1)
	assert.Equal(t, "0x2CF - Reply Thermal State", got[0].IDDisplay)
	assert.Equal(t, "0x7F", got[0].Description)
	assert.Equal(t, "A -> B", got[0].FromTo)
	assert.NotNil(t, s.Style(got[0]))
}

func TestLoadInvalidDocumentsDegrade(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "canopen")
	writeFile(t, dir, DefinitionsFile, `{not json`)
	writeFile(t, dir, DataParserFile, `{"1": {"bytes": {"x": {"type": "hex8"}}}}`)
	writeFile(t, dir, HighlightFile, `{"highlights": [{"match": "x", "matchType": "glob"}]}`)

	b := Load(root, "canopen")
	assert.True(t, b.Definitions.IsEmpty())
	assert.True(t, b.Codec.IsEmpty())
	assert.Equal(t, 1, b.Highlight.Len())
	assert.Len(t, b.Warnings, 4)
}

func TestLoadKeepsDefinitionsAroundBadEntries(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "can")
	writeFile(t, dir, DefinitionsFile, `{
		"2cf": {"description": "Reply Thermal State", "dec": "719"},
		"2d0": {"description": "Reply Pressure", "dec": "719"},
		"2d1": {"description": "Reply Flow", "dec": "0x2D1"}
	}`)

	b := Load(root, "can")
	assert.False(t, b.Definitions.IsEmpty())
	assert.Equal(t, 3, b.Definitions.Len())
	assert.Len(t, b.Warnings, 5)

	s := view.NewSession(b.ViewConfig("f.csv", "", 0), rows.Table{
		Headers: []string{"Buffer"},
		Rows: [][]string{
			{"string=2cf:1:[00]"},
			{"string=7ff:1:[00]"},
			{"string=2d1:1:[00]"},
		},
	})
	got := s.Rows()
	require.Len(t, got, 2)
	assert.Equal(t, "0x2CF - Reply Thermal State", got[0].IDDisplay)
	assert.Equal(t, "0x2D1 - Reply Flow", got[1].IDDisplay)
}

func TestLoadDefinitionsWorkbook(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "common")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f := excelize.NewFile()
	_, err := f.NewSheet("Definitions")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Definitions", "A1", &[]interface{}{"Hex", "Description"}))
	require.NoError(t, f.SetSheetRow("Definitions", "A2", &[]interface{}{"2cf", "Thermal"}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, DefinitionsWorkbook)))
	require.NoError(t, f.Close())

	b := Load(root, "common")
	assert.Equal(t, "Thermal", b.Definitions.Resolve("2cf").Description)
}

func TestCacheLoadsOnce(t *testing.T) {
	root := t.TempDir()
	c := NewCache(root)
	first := c.Get("can")
	assert.Same(t, first, c.Get("CAN"))
	c.Reload()
	assert.NotSame(t, first, c.Get("can"))
}
