// Package event provides a mutable JSON document view addressed by
// RFC 6901 JSON pointers, the substrate every SCA field access goes
// through instead of ad-hoc map indexing.
package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is a mutable JSON document, built with New or Parse. The zero
// value has no root: reads report absent and writes are dropped.
type Document struct {
	root interface{}
}

// New returns an empty object document.
func New() *Document {
	return &Document{root: map[string]interface{}{}}
}

// Parse decodes raw JSON into a Document.
func Parse(raw []byte) (*Document, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("event: parse: %w", err)
	}
	return &Document{root: v}, nil
}

// EscapeToken escapes a single pointer token per RFC 6901: '~' becomes
// "~0" and '/' becomes "~1". This is the same escaping the style donor
// applies inline when building JSON-patch annotation paths, generalized
// here into a reusable joiner.
func EscapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return token
}

// Join builds a JSON pointer from a prefix and literal (unescaped) tokens.
func Join(prefix string, tokens ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapeToken(t))
	}
	return b.String()
}

func splitPointer(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		parts[i] = p
	}
	return parts
}

// navigate walks path from the root, returning the value found and
// whether the full path resolved.
func (d *Document) navigate(path string) (interface{}, bool) {
	cur := d.root
	for _, tok := range splitPointer(path) {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[tok]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Exists reports whether path resolves to any value.
func (d *Document) Exists(path string) bool {
	_, ok := d.navigate(path)
	return ok
}

// IsString reports whether path resolves to a string.
func (d *Document) IsString(path string) bool {
	v, ok := d.navigate(path)
	if !ok {
		return false
	}
	_, isStr := v.(string)
	return isStr
}

// IsInt reports whether path resolves to a JSON number with no fractional part.
func (d *Document) IsInt(path string) bool {
	v, ok := d.navigate(path)
	if !ok {
		return false
	}
	f, isNum := v.(float64)
	return isNum && f == float64(int64(f))
}

// IsBool reports whether path resolves to a boolean.
func (d *Document) IsBool(path string) bool {
	v, ok := d.navigate(path)
	if !ok {
		return false
	}
	_, isBool := v.(bool)
	return isBool
}

// IsArray reports whether path resolves to a JSON array.
func (d *Document) IsArray(path string) bool {
	v, ok := d.navigate(path)
	if !ok {
		return false
	}
	_, isArr := v.([]interface{})
	return isArr
}

// IsObject reports whether path resolves to a JSON object.
func (d *Document) IsObject(path string) bool {
	v, ok := d.navigate(path)
	if !ok {
		return false
	}
	_, isObj := v.(map[string]interface{})
	return isObj
}

// GetString returns the string at path, or ("", false) if absent or
// not a string. Getters never fail; absence is signaled via the bool.
func (d *Document) GetString(path string) (string, bool) {
	v, ok := d.navigate(path)
	if !ok {
		return "", false
	}
	s, isStr := v.(string)
	return s, isStr
}

// GetInt returns the integer at path, or (0, false) if absent or not an int.
func (d *Document) GetInt(path string) (int64, bool) {
	v, ok := d.navigate(path)
	if !ok {
		return 0, false
	}
	f, isNum := v.(float64)
	if !isNum || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// GetBool returns the boolean at path, or (false, false) if absent.
func (d *Document) GetBool(path string) (bool, bool) {
	v, ok := d.navigate(path)
	if !ok {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

// GetArray returns the array at path, or (nil, false) if absent or not an array.
func (d *Document) GetArray(path string) ([]interface{}, bool) {
	v, ok := d.navigate(path)
	if !ok {
		return nil, false
	}
	a, isArr := v.([]interface{})
	return a, isArr
}

// GetObject returns the object at path, or (nil, false) if absent or not an object.
func (d *Document) GetObject(path string) (map[string]interface{}, bool) {
	v, ok := d.navigate(path)
	if !ok {
		return nil, false
	}
	o, isObj := v.(map[string]interface{})
	return o, isObj
}

// Str serializes the subtree at path as a JSON string. It returns "{}"
// when the path is absent, matching the fallback the original decoder
// uses when serializing a missing root for an insert query.
func (d *Document) Str(path string) string {
	v, ok := d.navigate(path)
	if !ok {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ensureParent walks to the parent container of path, creating missing
// intermediate objects along the way, and returns the parent plus the
// final token to assign.
func (d *Document) ensureParent(path string) (interface{}, string) {
	toks := splitPointer(path)
	if len(toks) == 0 {
		return nil, ""
	}
	var parent interface{} = d.root
	for _, tok := range toks[:len(toks)-1] {
		m, ok := parent.(map[string]interface{})
		if !ok {
			// root itself isn't a map (shouldn't happen for well-formed events);
			// nothing to attach to.
			return nil, ""
		}
		next, exists := m[tok]
		if !exists {
			next = map[string]interface{}{}
			m[tok] = next
		}
		parent = next
	}
	return parent, toks[len(toks)-1]
}

func (d *Document) setValue(path string, value interface{}) {
	if path == "" {
		d.root = value
		return
	}
	parent, last := d.ensureParent(path)
	if m, ok := parent.(map[string]interface{}); ok {
		m[last] = value
	}
}

// SetString writes a string value at path, creating intermediates.
func (d *Document) SetString(path, val string) {
	d.setValue(path, val)
}

// SetBool writes a boolean value at path, creating intermediates.
func (d *Document) SetBool(path string, val bool) {
	d.setValue(path, val)
}

// SetInt writes an integer value at path, creating intermediates.
func (d *Document) SetInt(path string, val int64) {
	d.setValue(path, float64(val))
}

// SetArray replaces path with an empty array, creating intermediates.
func (d *Document) SetArray(path string) {
	d.setValue(path, []interface{}{})
}

// AppendString appends val to the array at arrayPath, first creating an
// empty array there if the path is absent. It is a no-op if arrayPath
// holds a value that is not an array.
func (d *Document) AppendString(val, arrayPath string) {
	v, ok := d.navigate(arrayPath)
	if !ok {
		d.SetArray(arrayPath)
		v, _ = d.navigate(arrayPath)
	}
	arr, ok := v.([]interface{})
	if !ok {
		return
	}
	arr = append(arr, val)
	d.setValue(arrayPath, arr)
}

// Set copies the subtree found at src into dst, creating intermediates.
// It is a no-op if src does not resolve.
func (d *Document) Set(dst, src string) {
	v, ok := d.navigate(src)
	if !ok {
		return
	}
	d.setValue(dst, deepCopy(v))
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []interface{}:
		a := make([]interface{}, len(t))
		for i, val := range t {
			a[i] = deepCopy(val)
		}
		return a
	default:
		return t
	}
}

// MarshalJSON serializes the whole document.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.root)
}
