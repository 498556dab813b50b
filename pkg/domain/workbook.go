package domain

import (
	"errors"
	"fmt"
)

// Workbook is the declarative definition a session is built from.
type Workbook struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Blueprints  []Blueprint `json:"blueprints" yaml:"blueprints"`
}

// Blueprint groups the variables, expressions, tables and triggers of one sheet.
type Blueprint struct {
	Name          string                  `json:"name" yaml:"name"`
	Description   string                  `json:"description,omitempty" yaml:"description,omitempty"`
	DataVariables []DataVariableBlueprint `json:"dataVariables" yaml:"dataVariables"`
	Expressions   []ExpressionBlueprint   `json:"expressions" yaml:"expressions"`
	DataTables    []DataTableBlueprint    `json:"dataTables" yaml:"dataTables"`
	Triggers      []TriggerBlueprint      `json:"triggers" yaml:"triggers"`
}

// DataVariableBlueprint declares a variable and its optional default.
type DataVariableBlueprint struct {
	Name         string       `json:"name" yaml:"name"`
	Namespace    string       `json:"namespace" yaml:"namespace"`
	Type         VariableType `json:"type" yaml:"type"`
	DefaultValue string       `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
}

// VariableRef points at a variable by key and declared type.
type VariableRef struct {
	Name      string       `json:"name" yaml:"name"`
	Namespace string       `json:"namespace" yaml:"namespace"`
	Type      VariableType `json:"type" yaml:"type"`
}

// Key returns the variable key of the reference.
func (r VariableRef) Key() VariableKey {
	return VariableKey{Namespace: r.Namespace, Name: r.Name}
}

// TableRef points at a table declared in the same blueprint.
type TableRef struct {
	Name string `json:"name" yaml:"name"`
}

// ExpressionBlueprint declares a formula, its inputs and its output variable.
type ExpressionBlueprint struct {
	Expression  string        `json:"expression" yaml:"expression"`
	Objective   string        `json:"objective,omitempty" yaml:"objective,omitempty"`
	Inputs      []VariableRef `json:"inputDataVariables" yaml:"inputDataVariables"`
	InputTables []TableRef    `json:"inputDataTables" yaml:"inputDataTables"`
	Output      *VariableRef  `json:"outputDataVariable" yaml:"outputDataVariable"`
}

// IsRoot reports whether the expression has no declared inputs.
func (e ExpressionBlueprint) IsRoot() bool {
	return len(e.Inputs) == 0 && len(e.InputTables) == 0
}

// DataTableBlueprint declares a table, its initial content and the variables
// whose updates are written into its cells.
type DataTableBlueprint struct {
	Name        string            `json:"name" yaml:"name"`
	Namespace   string            `json:"namespace" yaml:"namespace"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []DataTableColumn `json:"columns" yaml:"columns"`
	Rows        []DataTableRow    `json:"rows" yaml:"rows"`
	Inputs      []VariableRef     `json:"inputDataVariables" yaml:"inputDataVariables"`
}

// Table returns the initial table value declared by the blueprint.
func (b DataTableBlueprint) Table() DataTable {
	return DataTable{
		Name:        b.Name,
		Namespace:   b.Namespace,
		Description: b.Description,
		Columns:     b.Columns,
		Rows:        b.Rows,
	}.Clone()
}

// TriggerBlueprint declares a boolean condition assembled from sub-expressions.
type TriggerBlueprint struct {
	Name        string                       `json:"name" yaml:"name"`
	Description string                       `json:"description,omitempty" yaml:"description,omitempty"`
	Expressions []TriggerExpressionBlueprint `json:"expressions" yaml:"expressions"`
	Output      *VariableRef                 `json:"outputDataVariable" yaml:"outputDataVariable"`
}

// TriggerExpressionBlueprint is one boolean condition over a single input.
type TriggerExpressionBlueprint struct {
	Expression string      `json:"expression" yaml:"expression"`
	Objective  string      `json:"objective,omitempty" yaml:"objective,omitempty"`
	Input      VariableRef `json:"inputDataVariable" yaml:"inputDataVariable"`
}

// Validate checks the structural requirements a session needs to build the
// graph. It does not resolve references.
func (w *Workbook) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: workbook is nil", ErrInvalidArgument)
	}
	if w.Blueprints == nil {
		return fmt.Errorf("%w: workbook %q has no blueprints", ErrInvalidArgument, w.ID)
	}
	var errs []error
	for _, bp := range w.Blueprints {
		for _, v := range bp.DataVariables {
			if v.Name == "" {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: data variable without name", ErrInvalidArgument, bp.Name))
			}
			if !v.Type.Valid() {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: variable %q: %q", ErrUnknownType, bp.Name, v.Name, v.Type))
			}
		}
		for i, e := range bp.Expressions {
			if e.Expression == "" {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: expression %d is empty", ErrInvalidArgument, bp.Name, i))
			}
			if e.Output == nil {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: expression %d has no output", ErrInvalidArgument, bp.Name, i))
			}
		}
		for _, tb := range bp.DataTables {
			if tb.Name == "" {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: data table without name", ErrInvalidArgument, bp.Name))
			}
		}
		for _, tr := range bp.Triggers {
			if len(tr.Expressions) == 0 {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: trigger %q has no expressions", ErrInvalidArgument, bp.Name, tr.Name))
			}
			if tr.Output == nil {
				errs = append(errs, fmt.Errorf("%w: blueprint %q: trigger %q has no output", ErrInvalidArgument, bp.Name, tr.Name))
			}
		}
	}
	return errors.Join(errs...)
}
