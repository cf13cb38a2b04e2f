package dict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testDefs = `{
	"2cf": {"description": "Reply Thermal State", "dec": 719},
	"100": "Heartbeat",
	"1a0": {"description": "", "hex": "1a0", "virtualId": "bus"},
	"1a1": {"description": "Bus B", "virtualId": "bus"}
}`

const testNames = `{"definitions": {
	"RTB_Start": {"description": "Rotor start", "virtualId": "rtb"},
	"RTB_Stop": {"description": "", "virtualId": "rtb"},
	"Plain": {"description": "Plain signal"}
}}`

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Parse([]byte(testDefs), []byte(testNames))
	require.NoError(t, err)
	return s
}

func TestResolvePriority(t *testing.T) {
	s := mustStore(t)

	res := s.Resolve("2CF")
	assert.Equal(t, "Reply Thermal State", res.Description)
	assert.Equal(t, "2CF", res.DisplayID)
	assert.True(t, res.Known)

	assert.Equal(t, "Reply Thermal State", s.Resolve("719").Description)
	assert.Equal(t, "Heartbeat", s.Resolve("100").Description)
	assert.Equal(t, "Rotor start", s.Resolve("RTB_Start").Description)

	res = s.Resolve("RTB_Stop")
	assert.Equal(t, "RTB_Stop", res.Description, "empty name description falls through")
	assert.Equal(t, "rtb", res.DisplayID)

	res = s.Resolve("7ff")
	assert.Equal(t, "7ff", res.Description)
	assert.False(t, res.Known)
}

func TestContains(t *testing.T) {
	s := mustStore(t)
	for _, id := range []string{"2cf", "2CF", "719", "RTB_Start", "Plain", "1A0"} {
		assert.True(t, s.Contains(id), id)
	}
	for _, id := range []string{"7ff", "", Unresolved, "rtb_start"} {
		assert.False(t, s.Contains(id), id)
	}
}

func TestEmptyStoreAdmitsEverything(t *testing.T) {
	s, err := Parse(nil, nil)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
	assert.True(t, s.Contains("7ff"))
	assert.False(t, s.Contains(Unresolved))

	var nilStore *Store
	assert.True(t, nilStore.IsEmpty())
	assert.True(t, nilStore.Contains("123"))
	assert.Equal(t, "123", nilStore.Resolve("123").Description)
	assert.Equal(t, 0, nilStore.Len())
}

func TestGroupKeyMergesVirtualIDs(t *testing.T) {
	s := mustStore(t)
	assert.Equal(t, "bus", s.GroupKey("1a0"))
	assert.Equal(t, "bus", s.GroupKey("1A1"))
	assert.Equal(t, "rtb", s.GroupKey("RTB_Start"))
	assert.Equal(t, "2cf", s.GroupKey("2cf"))
}

func TestFromJSONSkipsBadEntries(t *testing.T) {
	s, err := Parse([]byte(`{"1a": "a", "1A": "b", "2b": "kept"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "b", s.Resolve("1a").Description)
	assert.Equal(t, "kept", s.Resolve("2b").Description)
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "duplicate")

	s, err = Parse([]byte(`{"1": {"description": "one", "dec": "7"}, "2": {"description": "two", "dec": 7}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("2"))
	assert.Equal(t, "one", s.Resolve("7").Description)
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "dec 7 already used by 1")

	s, err = Parse([]byte(`{"2cf": {"description": "Reply Thermal State", "dec": "0x2CF"}}`), nil)
	require.NoError(t, err)
	assert.True(t, s.Contains("2cf"))
	assert.False(t, s.Contains("0x2CF"))
	assert.Equal(t, "Reply Thermal State", s.Resolve("2cf").Description)
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "not a decimal id")

	s, err = Parse([]byte(`{" ": "blank", "3": "three"}`), []byte(`{"definitions": {"": "x", "Sig": "signal"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Len(t, s.Warnings(), 2)
}

func TestEnsureLoaded(t *testing.T) {
	dir := t.TempDir()
	_, err := EnsureLoaded("")
	assert.Error(t, err)
	_, err = EnsureLoaded(dir)
	assert.Error(t, err)

	path := filepath.Join(dir, "definitions.json")
	require.NoError(t, os.WriteFile(path, []byte(testDefs), 0o644))
	s, err := EnsureLoaded(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet(DefinitionsSheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(DefinitionsSheet, "A1", &[]interface{}{"Hex", "Dec", "Description", "VirtualId"}))
	require.NoError(t, f.SetSheetRow(DefinitionsSheet, "A2", &[]interface{}{"0x2CF", "719", "Reply Thermal State", ""}))
	require.NoError(t, f.SetSheetRow(DefinitionsSheet, "A3", &[]interface{}{"", "256", "Heartbeat", "hb"}))
	require.NoError(t, f.SetSheetRow(DefinitionsSheet, "A4", &[]interface{}{"", "0x10", "Bad row", ""}))
	_, err = f.NewSheet(NamesSheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(NamesSheet, "A1", &[]interface{}{"Name", "Description", "VirtualId"}))
	require.NoError(t, f.SetSheetRow(NamesSheet, "A2", &[]interface{}{"RTB_Start", "Rotor start", "rtb"}))
	path := filepath.Join(t.TempDir(), "definitions.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	s, err := EnsureLoaded(path)
	require.NoError(t, err)
	assert.Equal(t, "Reply Thermal State", s.Resolve("2cf").Description)
	assert.Equal(t, "Heartbeat", s.Resolve("100").Description)
	assert.Equal(t, "hb", s.GroupKey("100"))
	assert.Equal(t, "rtb", s.GroupKey("RTB_Start"))
	assert.Equal(t, 3, s.Len())
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "row 4")
}
