package sqlkit

import (
	"fmt"
	"strconv"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Value is a typed scalar passed as a query parameter or decoded from a row.
// Values are immutable and comparable; the zero Value is Null.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

// Null returns the SQL NULL value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// Int32 returns a 32-bit integer value.
func Int32(v int32) Value {
	return Value{kind: KindInt32, i: int64(v)}
}

// Int64 returns a 64-bit integer value.
func Int64(v int64) Value {
	return Value{kind: KindInt64, i: v}
}

// Float64 returns a double-precision float value.
func Float64(v float64) Value {
	return Value{kind: KindFloat64, f: v}
}

// Text returns a string value.
func Text(v string) Value {
	return Value{kind: KindText, s: v}
}

// Kind returns the variant held by the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean content. Integer 0 and 1 coerce to false and
// true because MySQL surfaces BOOLEAN columns as TINYINT.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt32, KindInt64:
		switch v.i {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}

// AsInt64 returns the integer content of an Int32 or Int64 value.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt32, KindInt64:
		return v.i, true
	}
	return 0, false
}

// AsFloat64 returns the numeric content of a Float64, Int32 or Int64 value.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat64:
		return v.f, true
	case KindInt32, KindInt64:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the content of a Text value.
func (v Value) AsString() (string, bool) {
	if v.kind == KindText {
		return v.s, true
	}
	return "", false
}

// String renders the value as a SQL-style literal for logs and debugging.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return "'" + v.s + "'"
	}
	return "INVALID"
}

// arg projects the value to a driver-level argument. The projection is
// total: every variant maps to a type the standard parameter converter
// accepts.
func (v Value) arg() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt32, KindInt64:
		return v.i
	case KindFloat64:
		return v.f
	case KindText:
		return v.s
	}
	return nil
}

// valueArgs projects parameter values to driver arguments, preserving order.
func valueArgs(params []Value) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.arg()
	}
	return args
}
