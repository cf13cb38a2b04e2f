package rows

import (
	"strings"

	"example.com/canview/internal/dict"
)

// DefaultRowCap bounds how many raw rows are projected per view.
const DefaultRowCap = 300

// Table is the parsed CSV content returned by the parse service.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Row is one projected table line.
type Row struct {
	ID          string `json:"id"`
	LineNumber  int    `json:"lineNumber"`
	Time        string `json:"time"`
	FromTo      string `json:"fromTo"`
	IDDisplay   string `json:"idDisplay"`
	DataHex     string `json:"data"`
	Description string `json:"description"`
}

// Cells returns the display cells in column order, without the line number.
func (r Row) Cells() []string {
	return []string{r.Time, r.FromTo, r.IDDisplay, r.DataHex, r.Description}
}

// Meaning is the CSV Meaning value recorded for an included id.
type Meaning struct {
	ID      string
	Meaning string
}

// Projection is the result of projecting a table.
type Projection struct {
	Rows     []Row
	Meanings []Meaning
	TotalRaw int
	Cap      int
}

// Definitions decides row inclusion and resolves id descriptions.
type Definitions interface {
	Contains(id string) bool
	Resolve(id string) dict.Resolution
}

// Decoder renders payload bytes or named signals into text.
type Decoder interface {
	DecodeData(messageID, data string) (string, bool)
	DecodeName(name string) (string, bool)
}

// Deps carries the configuration a projection reads. Nil members behave as
// empty configuration.
type Deps struct {
	Definitions Definitions
	Decoder     Decoder
	FromTo      *FromToMapping
}

// Project converts up to rowCap raw rows into display rows. A non-positive
// rowCap selects DefaultRowCap.
func Project(table Table, deps Deps, rowCap int) Projection {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	defs := deps.Definitions
	if defs == nil {
		defs = (*dict.Store)(nil)
	}
	idx := NewHeaderIndex(table.Headers)
	n := len(table.Rows)
	if n > rowCap {
		n = rowCap
	}
	out := Projection{TotalRaw: len(table.Rows), Cap: rowCap}
	meanings := make(map[string]int)
	for i := 0; i < n; i++ {
		raw := table.Rows[i]
		name := idx.Get(raw, ColName)
		buffer := idx.Get(raw, ColBuffer)
		parsedID, parsedData, _ := ParseBuffer(buffer)

		id := firstNonEmpty(parsedID, name, dict.Unresolved)
		if !defs.Contains(id) {
			continue
		}
		res := defs.Resolve(id)
		row := Row{
			ID:         id,
			LineNumber: i + 2,
			Time:       idx.Get(raw, ColTime),
			FromTo:     deps.FromTo.Format(name, idx.Get(raw, ColSource), idx.Get(raw, ColTarget)),
			IDDisplay:  FormatIDDisplay(id, res.Description),
			DataHex:    firstNonEmpty(parsedData, buffer),
		}
		if deps.Decoder != nil {
			if parsedID != "" && parsedData != "" {
				row.Description, _ = deps.Decoder.DecodeData(parsedID, parsedData)
			} else if name != "" {
				row.Description, _ = deps.Decoder.DecodeName(name)
			}
		}
		out.Rows = append(out.Rows, row)

		meaning := idx.Get(raw, ColMeaning)
		if pos, seen := meanings[id]; !seen {
			meanings[id] = len(out.Meanings)
			out.Meanings = append(out.Meanings, Meaning{ID: id, Meaning: meaning})
		} else if out.Meanings[pos].Meaning == "" {
			out.Meanings[pos].Meaning = meaning
		}
	}
	return out
}

// FormatIDDisplay renders the Id column. Hex ids show as "0x<ID>" followed by
// the description when it differs from the id; other ids show the description.
func FormatIDDisplay(id, description string) string {
	if !isHex(id) {
		return firstNonEmpty(description, id)
	}
	formatted := "0x" + strings.ToUpper(id)
	if description != "" && description != id {
		return formatted + " - " + description
	}
	return formatted
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
