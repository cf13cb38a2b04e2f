package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// FieldType names a payload interpretation in the decode configuration.
type FieldType string

const (
	TypeEnum      FieldType = "enum"
	TypeUint8     FieldType = "uint8"
	TypeUint16LE  FieldType = "uint16_le"
	TypeUint24LE  FieldType = "uint24_le"
	TypeUint32LE  FieldType = "uint32_le"
	TypeFloat32LE FieldType = "float32_le"
	TypeHex8      FieldType = "hex8"
	TypeHex16LE   FieldType = "hex16_le"
	TypeHex32LE   FieldType = "hex32_le"
	TypeBitfield  FieldType = "bitfield"
	TypeASCII     FieldType = "ascii"
)

// DefaultOrder is applied to fields without an explicit order so they sort last.
const DefaultOrder = 999

const maxPrecision = 20

// SubField is one named slice of a bitfield byte.
type SubField struct {
	Start  int               `json:"start"`
	Bits   int               `json:"bits"`
	Name   string            `json:"name,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// FieldSpec describes how one byte range of a payload is rendered.
type FieldSpec struct {
	Type        FieldType         `json:"type"`
	Name        string            `json:"name,omitempty"`
	Order       *int              `json:"order,omitempty"`
	Scale       *float64          `json:"scale,omitempty"`
	Precision   *int              `json:"precision,omitempty"`
	Unit        string            `json:"unit,omitempty"`
	Values      map[string]string `json:"values,omitempty"`
	Fields      []SubField        `json:"fields,omitempty"`
	ZeroText    string            `json:"zeroText,omitempty"`
	NonZeroText string            `json:"nonZeroText,omitempty"`
	HideIfZero  bool              `json:"hideIfZero,omitempty"`
}

// ByteField pairs a byte-range key ("0", "5-6") with its spec.
type ByteField struct {
	Range string
	Spec  FieldSpec
}

// ByteFields keeps the byte ranges of a message in document order.
type ByteFields []ByteField

// UnmarshalJSON decodes the "bytes" object while preserving key order, which
// breaks ties between fields sharing the same order value.
func (b *ByteFields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("bytes: expected object")
	}
	var out ByteFields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("bytes: expected string key")
		}
		var spec FieldSpec
		if err := dec.Decode(&spec); err != nil {
			return fmt.Errorf("bytes[%s]: %w", key, err)
		}
		out = append(out, ByteField{Range: key, Spec: spec})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// MarshalJSON writes the fields back as an object in the stored order.
func (b ByteFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Range)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Spec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MessageSpec is the decode configuration of one message id or signal name.
type MessageSpec struct {
	MatchBy     string     `json:"matchBy,omitempty"`
	DisplayText string     `json:"displayText,omitempty"`
	Bytes       ByteFields `json:"bytes,omitempty"`
}

// JSONFile is the on-disk decode configuration keyed by lowercase hex id or,
// for entries with matchBy "name", by the CSV Name value.
type JSONFile map[string]MessageSpec

// Codec is a compiled, read-only decode configuration.
type Codec struct {
	byID     map[string][]field
	byName   map[string]string
	warnings []string
}

// FromJSON validates the configuration and compiles every message.
func FromJSON(file JSONFile) (*Codec, error) {
	c := &Codec{
		byID:   make(map[string][]field),
		byName: make(map[string]string),
	}
	keys := make([]string, 0, len(file))
	for k := range file {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		msg := file[key]
		if strings.EqualFold(msg.MatchBy, "name") {
			c.byName[key] = msg.DisplayText
			continue
		}
		id := strings.ToLower(strings.TrimSpace(key))
		if id == "" {
			return nil, errors.New("empty message id")
		}
		if _, exists := c.byID[id]; exists {
			return nil, fmt.Errorf("%s: duplicate message id", key)
		}
		fields, err := compileMessage(msg.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		for _, f := range fields {
			if f.kind == kindRaw {
				c.warnings = append(c.warnings, fmt.Sprintf("%s: bytes[%s]: unknown type %q decodes as raw hex", key, f.key, f.spec.Type))
			}
		}
		c.byID[id] = fields
	}
	return c, nil
}

// Parse decodes and compiles a JSON document.
func Parse(data []byte) (*Codec, error) {
	var file JSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return FromJSON(file)
}

// Load reads a decode configuration from disk.
func Load(path string) (*Codec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// IsEmpty reports whether no message or name entry is configured.
func (c *Codec) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.byID) == 0 && len(c.byName) == 0
}

// Warnings lists non-fatal configuration problems found while compiling.
func (c *Codec) Warnings() []string {
	if c == nil {
		return nil
	}
	return c.warnings
}

// Messages returns the number of byte-decoded message ids.
func (c *Codec) Messages() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}

func compileMessage(specs ByteFields) ([]field, error) {
	fields := make([]field, 0, len(specs))
	for _, bf := range specs {
		f, err := compileField(bf.Range, bf.Spec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].order < fields[j].order
	})
	return fields, nil
}

func compileField(key string, spec FieldSpec) (field, error) {
	start, end, err := parseRange(key)
	if err != nil {
		return field{}, err
	}
	f := field{
		key:   key,
		start: start,
		end:   end,
		order: DefaultOrder,
		spec:  spec,
	}
	if spec.Order != nil {
		f.order = *spec.Order
	}
	if spec.Precision != nil && (*spec.Precision < 0 || *spec.Precision > maxPrecision) {
		return field{}, fmt.Errorf("bytes[%s]: precision %d out of range", key, *spec.Precision)
	}
	if spec.Name != "" && spec.Name != key {
		f.label = spec.Name
	}
	switch spec.Type {
	case TypeEnum:
		f.kind = kindEnum
		f.values = lowerKeys(spec.Values)
	case TypeUint8:
		f.kind, f.width, f.defaultPrecision = kindUint, 1, -1
	case TypeUint16LE:
		f.kind, f.width, f.defaultPrecision = kindUint, 2, 1
	case TypeUint24LE:
		f.kind, f.width, f.defaultPrecision = kindUint, 3, 1
	case TypeUint32LE:
		f.kind, f.width, f.defaultPrecision = kindUint, 4, 2
	case TypeFloat32LE:
		f.kind, f.width, f.defaultPrecision = kindFloat32, 4, 2
	case TypeHex8:
		f.kind = kindHex8
	case TypeHex16LE:
		f.kind, f.width = kindHexLE, 2
	case TypeHex32LE:
		f.kind, f.width = kindHexLE, 4
	case TypeBitfield:
		f.kind = kindBitfield
		for i, sub := range spec.Fields {
			if sub.Bits < 1 || sub.Bits > 8 {
				return field{}, fmt.Errorf("bytes[%s].fields[%d]: bits %d out of range", key, i, sub.Bits)
			}
			if sub.Start < 0 || sub.Start+sub.Bits > 8 {
				return field{}, fmt.Errorf("bytes[%s].fields[%d]: start %d overflows byte", key, i, sub.Start)
			}
		}
	case TypeASCII:
		f.kind = kindASCII
	default:
		f.kind = kindRaw
	}
	return f, nil
}

func parseRange(key string) (int, int, error) {
	trimmed := strings.TrimSpace(key)
	startText, endText, isRange := strings.Cut(trimmed, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("bytes[%s]: invalid byte range", key)
	}
	if !isRange {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(endText))
	if err != nil || end < start {
		return 0, 0, fmt.Errorf("bytes[%s]: invalid byte range", key)
	}
	return start, end, nil
}

func lowerKeys(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
