package domain

import (
	"errors"
	"fmt"
)

// VariableInput is a caller-supplied value for an existing variable.
type VariableInput struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Value     string `json:"value"`
}

// EvaluationRequest asks for a one-shot evaluation of a stored workbook.
type EvaluationRequest struct {
	WorkbookID    string          `json:"workbook_id"`
	LogLevel      *LogLevel       `json:"log_level,omitempty"`
	DataVariables []VariableInput `json:"data_variables"`
}

// Level returns the requested threshold, Warning when unset.
func (r EvaluationRequest) Level() LogLevel {
	if r.LogLevel == nil {
		return LevelWarning
	}
	return *r.LogLevel
}

// Validate rejects requests that could never be evaluated.
func (r EvaluationRequest) Validate() error {
	var errs []error
	if r.WorkbookID == "" {
		errs = append(errs, fmt.Errorf("%w: workbook_id is required", ErrInvalidArgument))
	}
	for i, v := range r.DataVariables {
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("%w: data_variables[%d].name is required", ErrInvalidArgument, i))
		}
		if v.Namespace == "" {
			errs = append(errs, fmt.Errorf("%w: data_variables[%d].namespace is required", ErrInvalidArgument, i))
		}
		if v.Value == "" {
			errs = append(errs, fmt.Errorf("%w: data_variables[%d].value is required", ErrInvalidArgument, i))
		}
	}
	return errors.Join(errs...)
}
