package dict

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names read by LoadXLSX.
const (
	DefinitionsSheet = "Definitions"
	NamesSheet       = "Names"
)

// Parse decodes the definitions and name definitions documents. Either may be
// nil.
func Parse(defsData, namesData []byte) (*Store, error) {
	var defs DefinitionsFile
	if len(defsData) > 0 {
		if err := json.Unmarshal(defsData, &defs); err != nil {
			return nil, fmt.Errorf("definitions: %w", err)
		}
	}
	var names NamesFile
	if len(namesData) > 0 {
		if err := json.Unmarshal(namesData, &names); err != nil {
			return nil, fmt.Errorf("name definitions: %w", err)
		}
	}
	return FromJSON(defs, names)
}

// Load reads both documents from disk. An empty path skips that document.
func Load(defsPath, namesPath string) (*Store, error) {
	defsData, err := readOptional(defsPath)
	if err != nil {
		return nil, err
	}
	namesData, err := readOptional(namesPath)
	if err != nil {
		return nil, err
	}
	return Parse(defsData, namesData)
}

// EnsureLoaded loads a definitions file, rejecting empty and directory paths.
// Workbooks are detected by extension.
func EnsureLoaded(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty definitions path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("definitions path %s is a directory", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return Load(path, "")
}

// LoadXLSX reads definitions from a workbook. The Definitions sheet has a
// header row naming the Hex, Dec, Description and VirtualId columns; the
// optional Names sheet uses Name, Description and VirtualId.
func LoadXLSX(path string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(DefinitionsSheet)
	if err != nil {
		return nil, err
	}
	defs := DefinitionsFile{}
	var skipped []string
	cols := headerColumns(rows)
	for idx, row := range rows {
		if idx == 0 {
			continue
		}
		hex := cell(row, cols, "hex")
		dec := cell(row, cols, "dec")
		if hex == "" && dec != "" {
			v, err := strconv.ParseUint(dec, 10, 32)
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("%s row %d: dec %q is not a decimal id, row skipped", DefinitionsSheet, idx+1, dec))
				continue
			}
			hex = strconv.FormatUint(v, 16)
		}
		if hex == "" {
			continue
		}
		defs[strings.TrimPrefix(strings.ToLower(hex), "0x")] = JSONDefinition{
			Description: cell(row, cols, "description"),
			Dec:         FlexString(dec),
			VirtualID:   FlexString(cell(row, cols, "virtualid")),
		}
	}

	names := NamesFile{Definitions: map[string]JSONDefinition{}}
	if idx, _ := f.GetSheetIndex(NamesSheet); idx >= 0 {
		nameRows, err := f.GetRows(NamesSheet)
		if err != nil {
			return nil, err
		}
		nameCols := headerColumns(nameRows)
		for i, row := range nameRows {
			if i == 0 {
				continue
			}
			name := cell(row, nameCols, "name")
			if name == "" {
				continue
			}
			names.Definitions[name] = JSONDefinition{
				Description: cell(row, nameCols, "description"),
				VirtualID:   FlexString(cell(row, nameCols, "virtualid")),
			}
		}
	}
	store, err := FromJSON(defs, names)
	if err != nil {
		return nil, err
	}
	store.warnings = append(skipped, store.warnings...)
	return store, nil
}

func readOptional(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func headerColumns(rows [][]string) map[string]int {
	cols := make(map[string]int)
	if len(rows) == 0 {
		return cols
	}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if key != "" {
			cols[key] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

