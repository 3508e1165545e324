// Package canonical implements deterministic serialization and content
// hashing for kernel artifacts. Two semantically equal values produce
// byte-identical output on every platform; that property is what makes
// content-addressed IDs and golden hashes stable across releases.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Error is a canonicalization contract violation: an unsupported type, a
// cyclic structure, or a non-integral number. These are programming errors
// in the caller, never recoverable data conditions.
type Error struct {
	Reason string
	Path   string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("canonicalize: %s at %s", e.Reason, e.Path)
	}
	return "canonicalize: " + e.Reason
}

// Canonicalize renders a JSON-like value (nil, bool, string, integral
// number, []any, map[string]any) as a unique stable string. Object keys are
// emitted in strict lexicographic byte order; array element order is
// preserved and semantically significant. Numbers must be integral;
// NaN, Inf and fractional floats are rejected with *Error.
func Canonicalize(v any) (string, error) {
	var b strings.Builder
	seen := make(map[uintptr]bool)
	if err := write(&b, v, "$", seen); err != nil {
		return "", err
	}
	return b.String(), nil
}

func write(b *strings.Builder, v any, path string, seen map[uintptr]bool) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		writeString(b, val)
	case int:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case int8:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case int16:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint8:
		b.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint16:
		b.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(val, 10))
	case float32:
		return writeFloat(b, float64(val), path)
	case float64:
		return writeFloat(b, val, path)
	case json.Number:
		return writeNumber(b, val, path)
	case []any:
		return writeArray(b, val, path, seen)
	case map[string]any:
		return writeObject(b, val, path, seen)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return writeArray(b, arr, path, seen)
	default:
		return &Error{Reason: fmt.Sprintf("unsupported type %T", v), Path: path}
	}
	return nil
}

func writeFloat(b *strings.Builder, f float64, path string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &Error{Reason: "non-finite number", Path: path}
	}
	if f != math.Trunc(f) {
		return &Error{Reason: fmt.Sprintf("non-integral number %v", f), Path: path}
	}
	b.WriteString(strconv.FormatInt(int64(f), 10))
	return nil
}

func writeNumber(b *strings.Builder, n json.Number, path string) error {
	i, err := n.Int64()
	if err != nil {
		return &Error{Reason: fmt.Sprintf("non-integral number %s", n.String()), Path: path}
	}
	b.WriteString(strconv.FormatInt(i, 10))
	return nil
}

func writeArray(b *strings.Builder, arr []any, path string, seen map[uintptr]bool) error {
	if len(arr) > 0 {
		ptr := reflect.ValueOf(arr).Pointer()
		if seen[ptr] {
			return &Error{Reason: "cyclic structure", Path: path}
		}
		seen[ptr] = true
		defer delete(seen, ptr)
	}
	b.WriteByte('[')
	for i, el := range arr {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := write(b, el, fmt.Sprintf("%s[%d]", path, i), seen); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func writeObject(b *strings.Builder, m map[string]any, path string, seen map[uintptr]bool) error {
	if m != nil {
		ptr := reflect.ValueOf(m).Pointer()
		if seen[ptr] {
			return &Error{Reason: "cyclic structure", Path: path}
		}
		seen[ptr] = true
		defer delete(seen, ptr)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys) // byte order, no locale
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeString(b, k)
		b.WriteByte(':')
		if err := write(b, m[k], path+"."+k, seen); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

// writeString emits a string with the fixed escaping scheme: the two-char
// escapes \" \\ \n \r \t \b \f, and \u00XX for remaining control bytes.
// No Unicode normalization is applied; input bytes pass through as-is.
// Iteration is over bytes, not runes, so invalid UTF-8 sequences survive
// verbatim and distinct inputs never collapse to the same canonical form.
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				fmt.Fprintf(b, `\u%04x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
}

// Parse decodes canonical output back into the generic value space
// (nil, bool, string, int64, []any, map[string]any). It exists so that
// round-trip and idempotence properties can be stated and tested.
func Parse(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse canonical form: %w", err)
	}
	return normalizeNumbers(v)
}

func normalizeNumbers(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("non-integral number %s", val.String())}
		}
		return i, nil
	case []any:
		for i, el := range val {
			n, err := normalizeNumbers(el)
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	case map[string]any:
		for k, el := range val {
			n, err := normalizeNumbers(el)
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	default:
		return v, nil
	}
}

// ToValue lowers an arbitrary Go struct into the generic value space via a
// strict JSON round-trip. Numbers are preserved as json.Number so that
// integral checks stay exact.
func ToValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("lower to value space: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("lower to value space: %w", err)
	}
	return out, nil
}
