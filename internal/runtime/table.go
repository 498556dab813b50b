package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
)

// dataTable writes scalar updates into the matching cells of its table and
// pushes the whole table to its output variable.
type dataTable struct {
	binding
	table        domain.DataTable
	dependencies []domain.Dependency
	output       *domain.Dependant
}

func newDataTable(env *Env, self actor.Address) *dataTable {
	return &dataTable{binding: binding{env: env, self: self, kind: "data table"}}
}

func (t *dataTable) Receive(ctx context.Context, msg any) (any, error) {
	if m, ok := msg.(useSessionLogger); ok {
		return nil, t.bind(ctx, m)
	}
	if err := t.requireLogger(msg); err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case useTable:
		t.table = m.Table.Clone()
		t.logger.tracef(ctx, "Data table '%s' in namespace '%s' starts with %d rows.", t.table.Name, t.table.Namespace, len(t.table.Rows))
		return nil, nil
	case dependOn:
		return nil, t.dependOn(ctx, m.Dependency)
	case outputTo:
		target := m.Target
		t.output = &target
		t.logger.tracef(ctx, "Data table '%s' in namespace '%s' outputs to '%s' in namespace '%s'.", t.table.Name, t.table.Namespace, target.Name, target.Namespace)
		return nil, nil
	case updateDataVariable:
		return nil, t.receiveUpdate(ctx, m.Update)
	case stopMsg:
		t.logger.tracef(ctx, "Data table %s is stopping.", t.self)
		return nil, nil
	}
	return nil, unhandled(t.kind, msg)
}

func (t *dataTable) dependOn(ctx context.Context, d domain.Dependency) error {
	typ, err := domain.ParseVariableType(d.Type)
	if err != nil {
		t.logger.errorf(ctx, "Data table '%s' cannot depend on '%s' in namespace '%s': %v", t.table.Name, d.Name, d.Namespace, err)
		return err
	}
	d.Type = typ.String()
	t.dependencies = append(t.dependencies, d)
	t.logger.tracef(ctx, "Data table '%s' in namespace '%s' depends on %s variable '%s' in namespace '%s'.", t.table.Name, t.table.Namespace, d.Type, d.Name, d.Namespace)
	return nil
}

func (t *dataTable) receiveUpdate(ctx context.Context, u domain.VariableUpdate) error {
	typ, err := domain.ParseVariableType(u.Type)
	if err != nil {
		t.logger.errorf(ctx, "Data table '%s' in namespace '%s' rejected '%s' in namespace '%s' of type '%s': %v", t.table.Name, t.table.Namespace, u.Name, u.Namespace, u.Type, err)
		return err
	}
	if typ == domain.TypeDataTable {
		replacement, err := domain.DecodeDataTable(u.Value)
		if err != nil {
			t.logger.errorf(ctx, "Data table '%s' in namespace '%s' rejected table '%s' in namespace '%s': %v", t.table.Name, t.table.Namespace, u.Name, u.Namespace, err)
			return err
		}
		name, namespace := t.table.Name, t.table.Namespace
		t.table = replacement
		if t.table.Name == "" {
			t.table.Name, t.table.Namespace = name, namespace
		}
	} else {
		// Cells hold the wire text; only the expressions reading them parse it.
		t.table.SetCells(u.Name, u.Namespace, u.Value)
	}
	t.logger.debugf(ctx, "Data table '%s' in namespace '%s' received '%s' in namespace '%s' = '%s' (%s).", t.table.Name, t.table.Namespace, u.Name, u.Namespace, u.Value, typ)
	return t.push(ctx)
}

func (t *dataTable) push(ctx context.Context) error {
	if t.output == nil {
		t.logger.tracef(ctx, "Data table '%s' in namespace '%s' has no dependant to notify.", t.table.Name, t.table.Namespace)
		return nil
	}
	raw, err := t.table.Encode()
	if err != nil {
		return err
	}
	if err := t.variable(actor.Address(t.output.Identity)).updateValue(ctx, raw); err != nil {
		return fmt.Errorf("data table %q output: %w", t.table.Name, err)
	}
	t.logger.tracef(ctx, "Data table '%s' in namespace '%s' notified its dependant.", t.table.Name, t.table.Namespace)
	return nil
}
