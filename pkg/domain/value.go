package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a typed variable value. Implementations are Float, Bool, DateTime,
// String and Table; switches over Type() are exhaustive.
type Value interface {
	Type() VariableType
	// String returns the wire encoding of the value.
	String() string
}

// Float is a FLOAT value.
type Float float64

// Bool is a BOOL value.
type Bool bool

// DateTime is a DATETIME value.
type DateTime time.Time

// String is a STRING value.
type String string

// Table is a DATATABLE value.
type Table struct {
	DataTable
}

func (Float) Type() VariableType    { return TypeFloat }
func (Bool) Type() VariableType     { return TypeBool }
func (DateTime) Type() VariableType { return TypeDateTime }
func (String) Type() VariableType   { return TypeString }
func (Table) Type() VariableType    { return TypeDataTable }

func (v Float) String() string { return FormatFloat(float64(v)) }

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

func (v DateTime) String() string { return time.Time(v).Format(time.RFC3339Nano) }

func (v String) String() string { return string(v) }

func (v Table) String() string {
	raw, err := v.DataTable.Encode()
	if err != nil {
		return ""
	}
	return raw
}

// FormatFloat renders f in the shortest decimal form that round-trips,
// without exponent notation. Whole numbers have no fractional part.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseValue decodes the wire form raw according to the type string typ.
// This is the only place an unrecognized type is reported.
func ParseValue(typ string, raw string) (Value, error) {
	t, err := ParseVariableType(typ)
	if err != nil {
		return nil, err
	}
	return t.Parse(raw)
}

// Parse decodes raw as a value of type t.
func (t VariableType) Parse(raw string) (Value, error) {
	switch t {
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s %q: %v", ErrInvalidArgument, t, raw, err)
		}
		return Float(f), nil
	case TypeBool:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s %q: %v", ErrInvalidArgument, t, raw, err)
		}
		return Bool(b), nil
	case TypeDateTime:
		s := strings.TrimSpace(raw)
		for _, layout := range dateTimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return DateTime(ts), nil
			}
		}
		return nil, fmt.Errorf("%w: parse %s %q", ErrInvalidArgument, t, raw)
	case TypeString:
		return String(raw), nil
	case TypeDataTable:
		table, err := DecodeDataTable(raw)
		if err != nil {
			return nil, err
		}
		return Table{DataTable: table}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
}
