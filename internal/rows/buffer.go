package rows

import (
	"regexp"
	"strconv"
	"strings"
)

// Column names looked up in the CSV header row.
const (
	ColTime    = "Time"
	ColSource  = "Source"
	ColTarget  = "Target"
	ColName    = "Name"
	ColBuffer  = "Buffer"
	ColMeaning = "Meaning"
)

// HeaderIndex maps lowercase header names to column positions.
type HeaderIndex map[string]int

// NewHeaderIndex indexes headers case-insensitively. The first occurrence of a
// repeated header wins.
func NewHeaderIndex(headers []string) HeaderIndex {
	idx := make(HeaderIndex, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// Index returns the column of name, or -1 when the header is absent.
func (h HeaderIndex) Index(name string) int {
	if i, ok := h[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Get returns the named cell of row, or "" when the column or cell is missing.
func (h HeaderIndex) Get(row []string, name string) string {
	i := h.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

var bufferPattern = regexp.MustCompile(`^\s*string=([0-9a-fA-F]+):\d+:\[(.*?)\]\s*$`)

// ParseBuffer extracts the message id and payload from a buffer cell such as
// "string=2cf:8:[10 40 ff 37 48 c1 0a 00]". Payload bytes are uppercased and
// joined by single spaces. The declared length is not checked.
func ParseBuffer(buffer string) (id, data string, ok bool) {
	m := bufferPattern.FindStringSubmatch(buffer)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.ToUpper(strings.Join(strings.Fields(m[2]), " ")), true
}

// FormatBuffer renders id and payload back into buffer cell form.
func FormatBuffer(id, data string) string {
	fields := strings.Fields(data)
	return "string=" + strings.ToLower(id) + ":" + strconv.Itoa(len(fields)) + ":[" + strings.ToLower(strings.Join(fields, " ")) + "]"
}
