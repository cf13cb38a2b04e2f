package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"example.com/canview/internal/codec"
	"example.com/canview/internal/dict"
	"example.com/canview/internal/highlight"
	"example.com/canview/internal/rows"
	"example.com/canview/internal/view"
)

// Protocol tags accepted by the parse service.
const (
	ProtocolCAN     = "CAN"
	ProtocolCANopen = "CANOPEN"
	ProtocolCommon  = "COMMON"
)

// Document names inside a protocol directory.
const (
	DefinitionsFile     = "definitions.json"
	DefinitionsWorkbook = "definitions.xlsx"
	NameDefinitionsFile = "name_definitions.json"
	HighlightFile       = "row_highlight.json"
	DataParserFile      = "data_parser.json"
	FromToFile          = "from_to_mapping.json"
)

// NormalizeProtocol upper-cases tag and maps unknown values to CAN.
func NormalizeProtocol(tag string) string {
	switch p := strings.ToUpper(strings.TrimSpace(tag)); p {
	case ProtocolCAN, ProtocolCANopen, ProtocolCommon:
		return p
	default:
		return ProtocolCAN
	}
}

// Bundle is the configuration of one protocol. Every member is usable even
// when its document was missing.
type Bundle struct {
	Protocol    string
	Definitions *dict.Store
	Codec       *codec.Codec
	Highlight   *highlight.Matcher
	FromTo      *rows.FromToMapping
	Warnings    []string
}

// ViewConfig returns the session configuration for a file.
func (b *Bundle) ViewConfig(file, digest string, rowCap int) view.Config {
	return view.Config{
		File:        file,
		Protocol:    b.Protocol,
		Digest:      digest,
		RowCap:      rowCap,
		Definitions: b.Definitions,
		Decoder:     b.Codec,
		FromTo:      b.FromTo,
		Highlight:   b.Highlight,
	}
}

// Load reads <dir>/<protocol>/. Missing or invalid documents fall back to
// empty defaults and are logged as warnings.
func Load(dir, protocol string) *Bundle {
	protocol = NormalizeProtocol(protocol)
	base := filepath.Join(dir, strings.ToLower(protocol))
	b := &Bundle{
		Protocol:    protocol,
		Definitions: &dict.Store{},
		Codec:       &codec.Codec{},
		Highlight:   highlight.NewMatcher(highlight.Config{}),
		FromTo:      &rows.FromToMapping{},
	}

	if store, err := loadDefinitions(base); err != nil {
		b.warn("%s definitions: %v", protocol, err)
	} else if store != nil {
		b.Definitions = store
		for _, w := range store.Warnings() {
			b.warn("%s %s", protocol, w)
		}
	}

	if c, err := codec.Load(filepath.Join(base, DataParserFile)); err != nil {
		b.missingOrInvalid(DataParserFile, err)
	} else {
		b.Codec = c
		for _, w := range c.Warnings() {
			b.warn("%s %s: %s", protocol, DataParserFile, w)
		}
	}

	if m, err := highlight.Load(filepath.Join(base, HighlightFile)); err != nil {
		b.missingOrInvalid(HighlightFile, err)
	} else {
		b.Highlight = m
		for _, w := range m.Warnings() {
			b.warn("%s %s: %s", protocol, HighlightFile, w)
		}
	}

	if m, err := rows.LoadFromTo(filepath.Join(base, FromToFile)); err != nil {
		b.missingOrInvalid(FromToFile, err)
	} else {
		b.FromTo = m
	}
	return b
}

func loadDefinitions(base string) (*dict.Store, error) {
	defsPath := filepath.Join(base, DefinitionsFile)
	namesPath := filepath.Join(base, NameDefinitionsFile)
	if !exists(defsPath) {
		defsPath = ""
		if workbook := filepath.Join(base, DefinitionsWorkbook); exists(workbook) {
			return dict.LoadXLSX(workbook)
		}
	}
	if !exists(namesPath) {
		namesPath = ""
	}
	if defsPath == "" && namesPath == "" {
		return nil, errors.New("no definitions documents")
	}
	return dict.Load(defsPath, namesPath)
}

func (b *Bundle) missingOrInvalid(name string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		b.warn("%s %s not found, using defaults", b.Protocol, name)
		return
	}
	b.warn("%s %s: %v", b.Protocol, name, err)
}

func (b *Bundle) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	b.Warnings = append(b.Warnings, msg)
	log.Printf("warning: %s", msg)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Cache loads each protocol bundle once.
type Cache struct {
	Dir string

	mu      sync.Mutex
	bundles map[string]*Bundle
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{Dir: dir, bundles: make(map[string]*Bundle)}
}

// Get returns the bundle for protocol, loading it on first use.
func (c *Cache) Get(protocol string) *Bundle {
	protocol = NormalizeProtocol(protocol)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bundles == nil {
		c.bundles = make(map[string]*Bundle)
	}
	if b, ok := c.bundles[protocol]; ok {
		return b
	}
	b := Load(c.Dir, protocol)
	c.bundles[protocol] = b
	return b
}

// Reload drops every cached bundle.
func (c *Cache) Reload() {
	c.mu.Lock()
	c.bundles = make(map[string]*Bundle)
	c.mu.Unlock()
}
