package domain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	}
	return "invalid"
}

// Value is one field of a Record. The zero Value is the null value.
//
// Numbers are stored as their source decimal text (the JSON literal or the
// DynamoDB N member) rather than a float64, so rendering them back is
// byte-for-byte faithful.
type Value struct {
	kind Kind
	b    bool
	s    string
	list []Value
	rec  Record
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value holding text verbatim.
func Number(text string) Value { return Value{kind: KindNumber, s: text} }

// NumberFromFloat returns a numeric Value with the shortest exact decimal
// form of f (10 renders as "10", not "10.0").
func NumberFromFloat(f float64) Value {
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberFromInt returns a numeric Value for i.
func NumberFromInt(i int64) Value {
	return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)}
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list Value over vs.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// RecordValue wraps a Record as a Value.
func RecordValue(r Record) Value { return Value{kind: KindRecord, rec: r} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload when v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// NumberText returns the verbatim decimal text when v is a number.
func (v Value) NumberText() (string, bool) { return v.s, v.kind == KindNumber }

// Float64 parses a numeric Value. The second result is false when v is not
// a number or its text does not parse.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AsString returns the string payload when v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns the elements when v is a list.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsRecord returns the nested Record when v is a record.
func (v Value) AsRecord() (Record, bool) { return v.rec, v.kind == KindRecord }

// StringOr returns the string payload, or def for any other variant.
func (v Value) StringOr(def string) string {
	if v.kind == KindString {
		return v.s
	}
	return def
}

// FromAny converts a decoded JSON tree (the interface{} shapes produced by
// encoding/json with UseNumber) into a Value. Unknown Go types degrade to
// their fmt.Sprint form.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t.String())
	case string:
		return String(t)
	case float64:
		return NumberFromFloat(t)
	case int:
		return NumberFromInt(int64(t))
	case int64:
		return NumberFromInt(t)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return List(vs...)
	case map[string]any:
		r := make(Record, len(t))
		for k, e := range t {
			r[k] = FromAny(e)
		}
		return RecordValue(r)
	case Value:
		return t
	case Record:
		return RecordValue(t)
	default:
		return String(fmt.Sprint(t))
	}
}

// MarshalJSON renders v as its natural JSON form. Numbers are emitted as
// their verbatim text when it is a valid JSON literal, quoted otherwise.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if b, err := json.Marshal(json.Number(v.s)); err == nil {
			return b, nil
		}
		return json.Marshal(v.s)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindRecord:
		return json.Marshal(v.rec)
	}
	return nil, fmt.Errorf("marshaling value of kind %d", v.kind)
}

// UnmarshalJSON decodes any JSON value, keeping numeric literals verbatim.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*v = FromAny(x)
	return nil
}

// MarshalDynamoDBAttributeValue maps the union onto DynamoDB's attribute
// members: null->NULL, bool->BOOL, number->N (text verbatim), string->S,
// list->L, record->M.
func (v Value) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	switch v.kind {
	case KindNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case KindBool:
		return &types.AttributeValueMemberBOOL{Value: v.b}, nil
	case KindNumber:
		return &types.AttributeValueMemberN{Value: v.s}, nil
	case KindString:
		return &types.AttributeValueMemberS{Value: v.s}, nil
	case KindList:
		members := make([]types.AttributeValue, len(v.list))
		for i, e := range v.list {
			av, err := e.MarshalDynamoDBAttributeValue()
			if err != nil {
				return nil, err
			}
			members[i] = av
		}
		return &types.AttributeValueMemberL{Value: members}, nil
	case KindRecord:
		members := make(map[string]types.AttributeValue, len(v.rec))
		for k, e := range v.rec {
			av, err := e.MarshalDynamoDBAttributeValue()
			if err != nil {
				return nil, err
			}
			members[k] = av
		}
		return &types.AttributeValueMemberM{Value: members}, nil
	}
	return nil, fmt.Errorf("marshaling value of kind %d", v.kind)
}

// UnmarshalDynamoDBAttributeValue decodes any attribute member. Sets come
// back as lists (order sorted for determinism) and binary payloads as
// base64 strings.
func (v *Value) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch t := av.(type) {
	case *types.AttributeValueMemberNULL:
		*v = Null()
	case *types.AttributeValueMemberBOOL:
		*v = Bool(t.Value)
	case *types.AttributeValueMemberN:
		*v = Number(t.Value)
	case *types.AttributeValueMemberS:
		*v = String(t.Value)
	case *types.AttributeValueMemberB:
		*v = String(base64.StdEncoding.EncodeToString(t.Value))
	case *types.AttributeValueMemberL:
		vs := make([]Value, len(t.Value))
		for i, m := range t.Value {
			if err := vs[i].UnmarshalDynamoDBAttributeValue(m); err != nil {
				return err
			}
		}
		*v = List(vs...)
	case *types.AttributeValueMemberM:
		r := make(Record, len(t.Value))
		for k, m := range t.Value {
			var e Value
			if err := e.UnmarshalDynamoDBAttributeValue(m); err != nil {
				return err
			}
			r[k] = e
		}
		*v = RecordValue(r)
	case *types.AttributeValueMemberSS:
		sorted := append([]string(nil), t.Value...)
		sort.Strings(sorted)
		vs := make([]Value, len(sorted))
		for i, s := range sorted {
			vs[i] = String(s)
		}
		*v = List(vs...)
	case *types.AttributeValueMemberNS:
		sorted := append([]string(nil), t.Value...)
		sort.Strings(sorted)
		vs := make([]Value, len(sorted))
		for i, n := range sorted {
			vs[i] = Number(n)
		}
		*v = List(vs...)
	case *types.AttributeValueMemberBS:
		vs := make([]Value, len(t.Value))
		for i, b := range t.Value {
			vs[i] = String(base64.StdEncoding.EncodeToString(b))
		}
		*v = List(vs...)
	default:
		return fmt.Errorf("unmarshaling unsupported attribute type %T", av)
	}
	return nil
}
