package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the document value variant. Store documents of any
// shape are lifted into Value before flattening, so the flattener never
// touches driver types directly.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindTemporal
	KindIdentifier
	KindList
	KindMap
)

// Value is one node of a schema-less document. Map fields remember their
// definition order; downstream header alignment depends on it.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	textVal string
	timeVal time.Time
	listVal []Value
	mapKeys []string
	mapVals map[string]Value
}

func Null() Value                  { return Value{kind: KindNull} }
func Bool(b bool) Value            { return Value{kind: KindBool, boolVal: b} }
func Number(n float64) Value       { return Value{kind: KindNumber, numVal: n} }
func Text(s string) Value          { return Value{kind: KindText, textVal: s} }
func Temporal(t time.Time) Value   { return Value{kind: KindTemporal, timeVal: t} }
func Identifier(id string) Value   { return Value{kind: KindIdentifier, textVal: id} }
func List(items ...Value) Value    { return Value{kind: KindList, listVal: items} }

type Field struct {
	Key   string
	Value Value
}

func Object(fields ...Field) Value {
	v := Value{kind: KindMap, mapVals: make(map[string]Value, len(fields))}
	for _, f := range fields {
		if _, exists := v.mapVals[f.Key]; !exists {
			v.mapKeys = append(v.mapKeys, f.Key)
		}
		v.mapVals[f.Key] = f.Value
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Keys() []string { return v.mapKeys }

func (v Value) Get(key string) (Value, bool) {
	child, ok := v.mapVals[key]
	return child, ok
}

func (v Value) Items() []Value { return v.listVal }

// Primitive returns the Go-native rendering used in flat rows: identifiers
// and temporals are stringified, everything else keeps its type.
func (v Value) Primitive() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindNumber:
		return v.numVal
	case KindText:
		return v.textVal
	case KindIdentifier:
		return v.textVal
	case KindTemporal:
		return v.timeVal.UTC().Format(time.RFC3339)
	default:
		return nil
	}
}

func (v Value) primitiveString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return strconv.FormatFloat(v.numVal, 'f', -1, 64)
	case KindText, KindIdentifier:
		return v.textVal
	case KindTemporal:
		return v.timeVal.UTC().Format(time.RFC3339)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// MarshalJSON keeps map fields in definition order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolVal)
	case KindNumber:
		return json.Marshal(v.numVal)
	case KindText, KindIdentifier:
		return json.Marshal(v.textVal)
	case KindTemporal:
		return json.Marshal(v.timeVal.UTC().Format(time.RFC3339))
	case KindList:
		if v.listVal == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.listVal)
	case KindMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range v.mapKeys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			childJSON, err := json.Marshal(v.mapVals[key])
			if err != nil {
				return nil, err
			}
			buf.Write(childJSON)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// DecodeJSONValue parses raw JSON into a Value, preserving object key
// order (encoding/json maps would lose it).
func DecodeJSONValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}
	return value, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	token, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeFromToken(dec, token)
}

func decodeFromToken(dec *json.Decoder, token json.Token) (Value, error) {
	switch t := token.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(n), nil
	case string:
		return Text(t), nil
	case json.Delim:
		switch t {
		case '{':
			var fields []Field
			for dec.More() {
				keyToken, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyToken.(string)
				if !ok {
					return Null(), fmt.Errorf("unexpected object key token %v", keyToken)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				fields = append(fields, Field{Key: key, Value: child})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null(), err
			}
			return Object(fields...), nil
		case '[':
			var items []Value
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, child)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null(), err
			}
			return List(items...), nil
		}
	}
	return Null(), fmt.Errorf("unexpected token %v", token)
}
