package dsl

import (
	"fmt"

	"github.com/aretw0/recalc/pkg/adapters/memory"
	"github.com/aretw0/recalc/pkg/domain"
)

// Builder manages the workbook construction.
type Builder struct {
	workbook   domain.Workbook
	blueprints []*BlueprintBuilder
}

// New creates a new workbook builder.
func New(id string) *Builder {
	return &Builder{workbook: domain.Workbook{ID: id}}
}

// Named sets the display name.
func (b *Builder) Named(name string) *Builder {
	b.workbook.Name = name
	return b
}

// Describe sets the description.
func (b *Builder) Describe(description string) *Builder {
	b.workbook.Description = description
	return b
}

// Blueprint adds a blueprint to the workbook.
// If the blueprint already exists, it returns the existing builder.
func (b *Builder) Blueprint(name string) *BlueprintBuilder {
	for _, bb := range b.blueprints {
		if bb.blueprint.Name == name {
			return bb
		}
	}
	bb := &BlueprintBuilder{blueprint: domain.Blueprint{Name: name}}
	b.blueprints = append(b.blueprints, bb)
	return bb
}

// Build assembles and validates the workbook.
func (b *Builder) Build() (*domain.Workbook, error) {
	wb := b.workbook
	wb.Blueprints = make([]domain.Blueprint, 0, len(b.blueprints))
	for _, bb := range b.blueprints {
		wb.Blueprints = append(wb.Blueprints, bb.Build())
	}
	if err := wb.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workbook %q: %w", wb.ID, err)
	}
	return &wb, nil
}

// Loader builds the workbook into an in-memory loader.
func (b *Builder) Loader() (*memory.Loader, error) {
	wb, err := b.Build()
	if err != nil {
		return nil, err
	}
	loader, err := memory.NewFromWorkbooks(wb)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// Ref returns a reference to a variable.
func Ref(namespace, name string, t domain.VariableType) domain.VariableRef {
	return domain.VariableRef{Name: name, Namespace: namespace, Type: t}
}

// Float returns a reference to a FLOAT variable.
func Float(namespace, name string) domain.VariableRef {
	return Ref(namespace, name, domain.TypeFloat)
}

// Bool returns a reference to a BOOL variable.
func Bool(namespace, name string) domain.VariableRef {
	return Ref(namespace, name, domain.TypeBool)
}

// String returns a reference to a STRING variable.
func String(namespace, name string) domain.VariableRef {
	return Ref(namespace, name, domain.TypeString)
}

// DateTime returns a reference to a DATETIME variable.
func DateTime(namespace, name string) domain.VariableRef {
	return Ref(namespace, name, domain.TypeDateTime)
}

// Table returns a reference to a DATATABLE variable.
func Table(namespace, name string) domain.VariableRef {
	return Ref(namespace, name, domain.TypeDataTable)
}
