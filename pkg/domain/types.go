package domain

import (
	"fmt"
	"strings"
)

// VariableType is the declared type of a data variable.
type VariableType string

const (
	TypeFloat     VariableType = "FLOAT"
	TypeBool      VariableType = "BOOL"
	TypeDateTime  VariableType = "DATETIME"
	TypeString    VariableType = "STRING"
	TypeDataTable VariableType = "DATATABLE"
)

// VariableTypes lists the closed set of supported types.
var VariableTypes = []VariableType{TypeFloat, TypeBool, TypeDateTime, TypeString, TypeDataTable}

// ParseVariableType decodes a wire type string. Matching is case-insensitive
// and surrounding whitespace is ignored.
func ParseVariableType(s string) (VariableType, error) {
	t := VariableType(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Valid reports whether t is one of the supported types.
func (t VariableType) Valid() bool {
	switch t {
	case TypeFloat, TypeBool, TypeDateTime, TypeString, TypeDataTable:
		return true
	}
	return false
}

// IsScalar reports whether t is a single-cell type.
func (t VariableType) IsScalar() bool {
	return t.Valid() && t != TypeDataTable
}

func (t VariableType) String() string { return string(t) }
