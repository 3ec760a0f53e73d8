package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the deterministic encoding used for
// content-addressed identity (stream hashes, descriptor fingerprints).
//
// Properties:
//  1. Map keys sorted ascending by byte order
//  2. Strings NFC-normalized at the serialization boundary
//  3. No floats (rejected by the Value model)
//  4. Refs rejected (live objects have no stable identity)
//
// This is the ONLY serialization hashing may go through. Display encodings
// (CLI JSON, YAML) use the standard library encoders instead.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
		return nil
	case Str:
		return marshalCanonicalString(buf, string(val))
	case Int:
		fmt.Fprintf(buf, "%d", int64(val))
		return nil
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Map:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case Ref:
		return fmt.Errorf("object references have no canonical encoding")
	default:
		return fmt.Errorf("unsupported value type for canonical encoding: %T", v)
	}
}

// marshalCanonicalString writes a JSON string with NFC normalization
// applied first, so Unicode-equivalent spellings encode identically.
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder appends a trailing newline; strip it.
	out := sb.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	buf.Write(out)
	return nil
}

// normSym NFC-normalizes a symbol name for disassembly and hashing.
func normSym(s string) string {
	return norm.NFC.String(s)
}

// FormatValue renders a value for disassembly output.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Str:
		return fmt.Sprintf("%q", norm.NFC.String(string(val)))
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case Ref:
		if val.Obj == nil {
			return "ref(nil)"
		}
		return fmt.Sprintf("ref(%s)", val.Obj.TypeName)
	default:
		return fmt.Sprintf("%v", v)
	}
}
