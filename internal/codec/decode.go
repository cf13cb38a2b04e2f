package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Separator joins decoded fields, and bitfield sub-fields within one field.
const Separator = " - "

type fieldKind int

const (
	kindRaw fieldKind = iota
	kindEnum
	kindUint
	kindFloat32
	kindHex8
	kindHexLE
	kindBitfield
	kindASCII
)

type field struct {
	key              string
	start, end       int
	order            int
	kind             fieldKind
	width            int
	defaultPrecision int
	label            string
	values           map[string]string
	spec             FieldSpec
}

// result is the outcome of decoding one field. numeric is false when the
// field produced no number, which hideIfZero treats like zero.
type result struct {
	text    string
	ok      bool
	value   float64
	numeric bool
}

// Decode renders the payload tokens of messageID using the configured byte
// layout. The second return is false when the id is not configured or no field
// contributed any text.
func (c *Codec) Decode(messageID string, tokens []string) (string, bool) {
	if c == nil || len(tokens) == 0 {
		return "", false
	}
	fields, ok := c.byID[strings.ToLower(strings.TrimSpace(messageID))]
	if !ok {
		return "", false
	}
	parts := make([]string, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		if f.start >= len(tokens) {
			continue
		}
		end := f.end + 1
		if end > len(tokens) {
			end = len(tokens)
		}
		res := f.decode(tokens[f.start:end])
		if f.spec.HideIfZero && (!res.numeric || res.value == 0) {
			continue
		}
		if res.ok {
			parts = append(parts, res.text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, Separator), true
}

// DecodeData is Decode over a space separated byte string.
func (c *Codec) DecodeData(messageID, data string) (string, bool) {
	return c.Decode(messageID, strings.Fields(data))
}

// DecodeName returns the display text configured for a Name-matched signal.
func (c *Codec) DecodeName(name string) (string, bool) {
	if c == nil || name == "" {
		return "", false
	}
	text, ok := c.byName[name]
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

func (f *field) decode(tokens []string) result {
	switch f.kind {
	case kindEnum:
		return f.decodeEnum(tokens)
	case kindUint:
		return f.decodeUint(tokens)
	case kindFloat32:
		return f.decodeFloat32(tokens)
	case kindHex8:
		return f.decodeHex8(tokens)
	case kindHexLE:
		return f.decodeHexLE(tokens)
	case kindBitfield:
		return f.decodeBitfield(tokens)
	case kindASCII:
		return f.decodeASCII(tokens)
	default:
		return result{text: strings.Join(tokens, " "), ok: true}
	}
}

func (f *field) decodeEnum(tokens []string) result {
	raw := strings.Join(tokens, " ")
	res := result{text: raw, ok: true}
	if b, ok := parseByte(tokens[0]); ok {
		res.value, res.numeric = float64(b), true
	}
	if text, ok := f.values[strings.ToLower(tokens[0])]; ok && text != "" {
		res.text = text
	}
	return res
}

func (f *field) decodeUint(tokens []string) result {
	buf, ok := parseBytes(tokens, f.width)
	if !ok {
		return result{}
	}
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (8 * i)
	}
	text := strconv.FormatUint(v, 10)
	if scale, ok := f.scale(); ok {
		scaled := float64(v) * scale
		if prec := f.precision(); prec >= 0 {
			text = strconv.FormatFloat(scaled, 'f', prec, 64)
		} else {
			text = strconv.FormatFloat(scaled, 'f', -1, 64)
		}
	}
	return result{text: f.prefix(text + f.spec.Unit), ok: true, value: float64(v), numeric: true}
}

func (f *field) decodeFloat32(tokens []string) result {
	buf, ok := parseBytes(tokens, 4)
	if !ok {
		return result{}
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(buf))
	text := strconv.FormatFloat(float64(v), 'f', f.precision(), 32)
	return result{text: f.prefix(text + f.spec.Unit), ok: true, value: float64(v), numeric: true}
}

func (f *field) decodeHex8(tokens []string) result {
	b, ok := parseByte(tokens[0])
	if !ok {
		return result{}
	}
	res := result{value: float64(b), numeric: true, ok: true}
	switch {
	case b == 0 && f.spec.ZeroText != "":
		res.text = f.spec.ZeroText
	case b != 0 && f.spec.NonZeroText != "":
		res.text = f.spec.NonZeroText
	default:
		// The token is echoed as written, so "A" stays 0xA.
		res.text = "0x" + strings.ToUpper(strings.TrimSpace(tokens[0]))
	}
	return res
}

func (f *field) decodeHexLE(tokens []string) result {
	buf, ok := parseBytes(tokens, f.width)
	if !ok {
		return result{}
	}
	var v uint64
	var b strings.Builder
	b.WriteString("0x")
	for i := len(buf) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%02X", buf[i])
		v = v<<8 | uint64(buf[i])
	}
	text := b.String()
	if f.width == 4 && f.label != "" {
		text = f.label + ": " + text
	}
	return result{text: text, ok: true, value: float64(v), numeric: true}
}

func (f *field) decodeBitfield(tokens []string) result {
	b, ok := parseByte(tokens[0])
	if !ok || len(f.spec.Fields) == 0 {
		return result{}
	}
	parts := make([]string, 0, len(f.spec.Fields))
	for _, sub := range f.spec.Fields {
		mask := byte((1<<sub.Bits)-1) << sub.Start
		v := (b & mask) >> sub.Start
		text := strconv.Itoa(int(v))
		if mapped, ok := sub.Values[text]; ok && mapped != "" {
			text = mapped
		}
		if sub.Name != "" {
			text = sub.Name + ":" + text
		}
		parts = append(parts, text)
	}
	return result{text: strings.Join(parts, Separator), ok: true, value: float64(b), numeric: true}
}

func (f *field) decodeASCII(tokens []string) result {
	var b strings.Builder
	for _, tok := range tokens {
		c, ok := parseByte(tok)
		if !ok || c < 32 || c > 126 {
			continue
		}
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return result{}
	}
	text := `"` + b.String() + `"`
	if f.label != "" {
		text = f.label + ": " + text
	}
	return result{text: text, ok: true}
}

func (f *field) scale() (float64, bool) {
	if f.spec.Scale == nil || *f.spec.Scale == 0 {
		return 0, false
	}
	return *f.spec.Scale, true
}

// precision returns the decimals to print; -1 means shortest representation.
func (f *field) precision() int {
	if f.spec.Precision != nil {
		return *f.spec.Precision
	}
	return f.defaultPrecision
}

func (f *field) prefix(text string) string {
	if f.label == "" {
		return text
	}
	return f.label + " " + text
}

func parseByte(tok string) (byte, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(tok), 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

// parseBytes converts the first n tokens, failing when fewer are present or
// any token is not hex.
func parseBytes(tokens []string, n int) ([]byte, bool) {
	if len(tokens) < n {
		return nil, false
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, ok := parseByte(tokens[i])
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}
