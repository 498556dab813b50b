package dsl

import "github.com/aretw0/recalc/pkg/domain"

// BlueprintBuilder provides a fluent API for configuring a blueprint.
type BlueprintBuilder struct {
	blueprint   domain.Blueprint
	expressions []*ExpressionBuilder
	tables      []*TableBuilder
	triggers    []*TriggerBuilder
}

// Describe sets the description of the blueprint.
func (b *BlueprintBuilder) Describe(description string) *BlueprintBuilder {
	b.blueprint.Description = description
	return b
}

// Variable declares a variable with an optional default value.
func (b *BlueprintBuilder) Variable(namespace, name string, t domain.VariableType, defaultValue string) *BlueprintBuilder {
	b.blueprint.DataVariables = append(b.blueprint.DataVariables, domain.DataVariableBlueprint{
		Name:         name,
		Namespace:    namespace,
		Type:         t,
		DefaultValue: defaultValue,
	})
	return b
}

// Float declares a FLOAT variable.
func (b *BlueprintBuilder) Float(namespace, name, defaultValue string) *BlueprintBuilder {
	return b.Variable(namespace, name, domain.TypeFloat, defaultValue)
}

// Bool declares a BOOL variable.
func (b *BlueprintBuilder) Bool(namespace, name, defaultValue string) *BlueprintBuilder {
	return b.Variable(namespace, name, domain.TypeBool, defaultValue)
}

// String declares a STRING variable.
func (b *BlueprintBuilder) String(namespace, name, defaultValue string) *BlueprintBuilder {
	return b.Variable(namespace, name, domain.TypeString, defaultValue)
}

// Expression adds a formula. Wire it with From and Into.
func (b *BlueprintBuilder) Expression(expression string) *ExpressionBuilder {
	eb := &ExpressionBuilder{expression: domain.ExpressionBlueprint{Expression: expression}}
	b.expressions = append(b.expressions, eb)
	return eb
}

// Table adds a data table and declares the DATATABLE variable holding it.
func (b *BlueprintBuilder) Table(namespace, name string) *TableBuilder {
	b.Variable(namespace, name, domain.TypeDataTable, "")
	tb := &TableBuilder{table: domain.DataTableBlueprint{Name: name, Namespace: namespace}}
	b.tables = append(b.tables, tb)
	return tb
}

// Trigger adds a named boolean trigger. Add conditions with When.
func (b *BlueprintBuilder) Trigger(name string) *TriggerBuilder {
	tb := &TriggerBuilder{trigger: domain.TriggerBlueprint{Name: name}}
	b.triggers = append(b.triggers, tb)
	return tb
}

// Build returns the underlying domain.Blueprint.
func (b *BlueprintBuilder) Build() domain.Blueprint {
	bp := b.blueprint
	bp.Expressions = make([]domain.ExpressionBlueprint, 0, len(b.expressions))
	for _, eb := range b.expressions {
		bp.Expressions = append(bp.Expressions, eb.expression)
	}
	bp.DataTables = make([]domain.DataTableBlueprint, 0, len(b.tables))
	for _, tb := range b.tables {
		bp.DataTables = append(bp.DataTables, tb.table)
	}
	bp.Triggers = make([]domain.TriggerBlueprint, 0, len(b.triggers))
	for _, tb := range b.triggers {
		bp.Triggers = append(bp.Triggers, tb.trigger)
	}
	return bp
}

// ExpressionBuilder configures one formula.
type ExpressionBuilder struct {
	expression domain.ExpressionBlueprint
}

// Objective documents what the formula computes.
func (e *ExpressionBuilder) Objective(objective string) *ExpressionBuilder {
	e.expression.Objective = objective
	return e
}

// From adds input variables.
func (e *ExpressionBuilder) From(inputs ...domain.VariableRef) *ExpressionBuilder {
	e.expression.Inputs = append(e.expression.Inputs, inputs...)
	return e
}

// FromTables adds input tables of the same blueprint.
func (e *ExpressionBuilder) FromTables(names ...string) *ExpressionBuilder {
	for _, name := range names {
		e.expression.InputTables = append(e.expression.InputTables, domain.TableRef{Name: name})
	}
	return e
}

// Into sets the output variable.
func (e *ExpressionBuilder) Into(output domain.VariableRef) *ExpressionBuilder {
	e.expression.Output = &output
	return e
}

// TableBuilder configures one data table.
type TableBuilder struct {
	table domain.DataTableBlueprint
}

// Column adds a column.
func (t *TableBuilder) Column(name string, typ domain.VariableType) *TableBuilder {
	t.table.Columns = append(t.table.Columns, domain.DataTableColumn{Name: name, Type: typ})
	return t
}

// Row adds a row of literal cells, one per column in column order.
func (t *TableBuilder) Row(values ...string) *TableBuilder {
	row := domain.DataTableRow{Cells: make([]domain.DataTableCell, 0, len(values))}
	for i, v := range values {
		cell := domain.DataTableCell{Value: v}
		if i < len(t.table.Columns) {
			cell.Key = t.table.Columns[i].Name
		}
		row.Cells = append(row.Cells, cell)
	}
	t.table.Rows = append(t.table.Rows, row)
	return t
}

// Cell adds a row whose cell under column is fed by the variable ref.
func (t *TableBuilder) Cell(column string, ref domain.VariableRef) *TableBuilder {
	t.table.Rows = append(t.table.Rows, domain.DataTableRow{Cells: []domain.DataTableCell{
		{Name: ref.Name, Namespace: ref.Namespace, Key: column},
	}})
	t.table.Inputs = append(t.table.Inputs, ref)
	return t
}

// TriggerBuilder configures one trigger.
type TriggerBuilder struct {
	trigger domain.TriggerBlueprint
}

// When adds a condition over a single input. All conditions must hold.
func (t *TriggerBuilder) When(expression string, input domain.VariableRef) *TriggerBuilder {
	t.trigger.Expressions = append(t.trigger.Expressions, domain.TriggerExpressionBlueprint{
		Expression: expression,
		Input:      input,
	})
	return t
}

// Into sets the BOOL output variable.
func (t *TriggerBuilder) Into(output domain.VariableRef) *TriggerBuilder {
	t.trigger.Output = &output
	return t
}
