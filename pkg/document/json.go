package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FromJSON decodes JSON text into a Value. Object key order from the text is
// preserved. Numbers keep integer precision where the text allows it.
// Trailing non-whitespace content after the document is an error.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}

	// Reject trailing garbage
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("unexpected content after JSON document")
	}
	return v, nil
}

// FromJSONString decodes a JSON string into a Value.
func FromJSONString(s string) (Value, error) {
	return FromJSON([]byte(s))
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("decode JSON: %w", err)
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil

	case bool:
		return Bool(t), nil

	case json.Number:
		n, err := ParseNumber(t.String())
		if err != nil {
			return Value{}, err
		}
		return Num(n), nil

	case string:
		return String(t), nil

	case json.Delim:
		switch t {
		case '[':
			var elems []Value
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, elem)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, fmt.Errorf("decode JSON array: %w", err)
			}
			return Array(elems...), nil

		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("decode JSON object key: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("JSON object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, fmt.Errorf("decode JSON object: %w", err)
			}
			return Obj(obj), nil

		default:
			return Value{}, fmt.Errorf("unexpected JSON delimiter %q", t)
		}

	default:
		return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
	}
}

// MarshalJSON renders the value as compact JSON, preserving object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	appendJSON(&sb, v)
	return []byte(sb.String()), nil
}

func appendJSON(sb *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")

	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))

	case KindNumber:
		sb.WriteString(v.num.String())

	case KindString:
		appendJSONString(sb, v.str)

	case KindArray:
		sb.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			appendJSON(sb, elem)
		}
		sb.WriteByte(']')

	case KindObject:
		sb.WriteByte('{')
		for i := 0; i < v.obj.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			key, val := v.obj.At(i)
			appendJSONString(sb, key)
			sb.WriteByte(':')
			appendJSON(sb, val)
		}
		sb.WriteByte('}')
	}
}

func appendJSONString(sb *strings.Builder, s string) {
	// encoding/json handles all escaping rules; strings are leaf values so
	// the per-call allocation is acceptable.
	b, _ := json.Marshal(s)
	sb.Write(b)
}
