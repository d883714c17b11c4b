// Package schemacompat bridges the two field-naming conventions used by the
// persistence tiers: snake_case (remote store, internal structs) and
// camelCase (device-local store, older clients). A Record always carries
// both spellings of every top-level field once it has passed through
// ToExternal; ToInternal collapses it back to snake_case for decoding.
package schemacompat

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Record is one logical persisted record.
type Record map[string]any

// Wrap constructs a Record around raw. Any input shape is accepted; raw is
// copied so later writes never alias the caller's map.
func Wrap(raw map[string]any) Record {
	r := make(Record, len(raw)*2)
	for k, v := range raw {
		r[k] = v
	}
	return r
}

// Get returns the value stored under field, trying the verbatim name first
// and then its counterpart spelling. Unknown fields report ok=false.
func (r Record) Get(field string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r[field]; ok {
		return v, true
	}
	if alt := Counterpart(field); alt != field {
		if v, ok := r[alt]; ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the field as a string; non-string scalars are formatted.
func (r Record) String(field string) string {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// Set writes value under field and under its counterpart spelling.
func (r Record) Set(field string, value any) {
	r[field] = value
	if alt := Counterpart(field); alt != field {
		r[alt] = value
	}
}

// Delete removes both spellings of field.
func (r Record) Delete(field string) {
	delete(r, field)
	delete(r, Counterpart(field))
}

// ID is the record identifier, shared by both conventions.
func (r Record) ID() string { return r.String("id") }

// Clone returns a shallow copy.
func (r Record) Clone() Record { return Wrap(r) }

// Counterpart converts a field name to the other convention: snake_case
// names become camelCase and camelCase names become snake_case. Names with
// no case boundary (for example "id") are their own counterpart, and so are
// snake names that would not convert back to themselves ("_id", "a__b",
// "a_b_c").
func Counterpart(field string) string {
	if strings.HasPrefix(field, "_") {
		return field
	}
	if strings.Contains(field, "_") {
		camel := CamelCase(field)
		if SnakeCase(camel) != field {
			return field
		}
		return camel
	}
	for _, r := range field {
		if unicode.IsUpper(r) {
			return SnakeCase(field)
		}
	}
	return field
}

// CamelCase converts snake_case to lowerCamelCase.
func CamelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(p)
			first = false
			continue
		}
		rs := []rune(p)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}

// SnakeCase converts camelCase to snake_case. A run of capitals is treated
// as one word, so "userID" becomes "user_id".
func SnakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(rs[i-1]) && rs[i-1] != '_'
			nextLower := i > 0 && i+1 < len(rs) && unicode.IsLower(rs[i+1]) && unicode.IsUpper(rs[i-1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToExternal returns a copy of r where every top-level field is present
// under both spellings. When both spellings already exist with different
// values, the snake_case value wins.
func ToExternal(r Record) Record {
	out := make(Record, len(r)*2)
	for k, v := range r {
		if !isCamel(k) {
			out.Set(k, v)
		}
	}
	for k, v := range r {
		if !isCamel(k) {
			continue
		}
		if _, ok := r[SnakeCase(k)]; ok {
			continue
		}
		out[k] = v
		out.Set(SnakeCase(k), v)
	}
	return out
}

// ToInternal returns a snake_case-only copy of r. The snake_case spelling
// wins when both are present.
func ToInternal(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if isCamel(k) {
			snake := SnakeCase(k)
			if _, ok := r[snake]; ok {
				continue
			}
			out[snake] = v
			continue
		}
		out[k] = v
	}
	return out
}

// Encode turns a snake_case-tagged struct into an external Record.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schemacompat encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("schemacompat encode: %w", err)
	}
	return ToExternal(Wrap(m)), nil
}

// Decode fills out from r, whichever convention r was written in.
func Decode(r Record, out any) error {
	raw, err := json.Marshal(map[string]any(ToInternal(r)))
	if err != nil {
		return fmt.Errorf("schemacompat decode: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("schemacompat decode: %w", err)
	}
	return nil
}

// Parse decodes a JSON object payload into a Record.
func Parse(payload []byte) (Record, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("schemacompat: payload is not an object")
	}
	return Record(m), nil
}

func isCamel(k string) bool {
	if strings.Contains(k, "_") {
		return false
	}
	for _, r := range k {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
