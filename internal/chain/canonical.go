package chain

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON used for content-addressed
// identity of operators and chains.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized, so selector names that differ only in
//     Unicode composition intern to the same operator
//  4. Floats and null are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range sortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only quote, backslash and control characters.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hex[r>>4])
			buf.WriteByte(hex[r&0xf])
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// sortedKeys orders object keys by UTF-16 code units.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	return len(ua) - len(ub)
}

// canonicalFields is the canonical object form of an operator.
func (o Op) canonicalFields() map[string]any {
	obj := map[string]any{"kind": o.Kind.String()}
	if o.Fn != "" {
		obj["fn"] = o.Fn
	}
	if o.Kind.IsOrdering() {
		obj["key_type"] = o.KeyType
		obj["dir"] = o.Dir.String()
	}
	if o.Target != "" {
		obj["target"] = o.Target
	}
	return obj
}

// Canonical returns the canonical JSON encoding of the operator.
func (o Op) Canonical() []byte {
	// canonicalFields only holds strings, so encoding cannot fail.
	b, err := MarshalCanonical(o.canonicalFields())
	if err != nil {
		panic(err)
	}
	return b
}

func (t Terminal) canonicalFields() map[string]any {
	obj := map[string]any{"kind": t.Kind.String()}
	if t.Fn != "" {
		obj["fn"] = t.Fn
	}
	if t.Seed != "" {
		obj["seed"] = t.Seed
	}
	return obj
}

func (c Chain) canonicalFields() map[string]any {
	ops := make([]any, len(c.Ops))
	for i, op := range c.Ops {
		ops[i] = op.canonicalFields()
	}
	return map[string]any{
		"source": map[string]any{
			"static_count": c.Source.HasStaticCount,
			"indexed":      c.Source.HasIndexedAccess,
		},
		"ops":      ops,
		"terminal": c.Terminal.canonicalFields(),
	}
}

// Canonical returns the canonical JSON encoding of the whole chain.
func (c Chain) Canonical() []byte {
	b, err := MarshalCanonical(c.canonicalFields())
	if err != nil {
		panic(err)
	}
	return b
}
