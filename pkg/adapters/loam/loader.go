package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Loader adapts the Loam library to the WorkbookLoader interface.
type Loader struct {
	Repo *loam.TypedRepository[WorkbookMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[WorkbookMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only, strict Loam repository at path and wraps it.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number across JSON and YAML documents.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[WorkbookMetadata](repo)), nil
}

// LoadWorkbook retrieves a workbook document and resolves its blueprint imports.
func (l *Loader) LoadWorkbook(ctx context.Context, id string) (*domain.Workbook, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrWorkbookNotFound, id, err)
	}

	rawID := doc.Data.ID
	if rawID == "" {
		rawID = doc.ID
	}
	wb := &domain.Workbook{
		ID:          trimExtension(rawID),
		Name:        doc.Data.Name,
		Description: doc.Data.Description,
	}
	if doc.Data.Blueprints != nil {
		bps, err := l.resolveBlueprints(ctx, doc.Data.Blueprints, map[string]bool{trimExtension(id): true})
		if err != nil {
			return nil, fmt.Errorf("error resolving blueprints for %s: %w", id, err)
		}
		wb.Blueprints = bps
	}
	return wb, nil
}

// resolveBlueprints expands inline definitions and import references in
// declaration order. Imports are resolved depth first.
func (l *Loader) resolveBlueprints(ctx context.Context, raw []any, visited map[string]bool) ([]domain.Blueprint, error) {
	out := make([]domain.Blueprint, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			refID := trimExtension(v)
			if visited[refID] {
				return nil, fmt.Errorf("cycle detected in blueprint imports: %s", refID)
			}
			visited[refID] = true

			doc, err := l.Repo.Get(ctx, refID)
			if err != nil {
				return nil, fmt.Errorf("failed to load imported blueprints '%s': %w", refID, err)
			}
			imported, err := l.resolveBlueprints(ctx, doc.Data.Blueprints, visited)
			delete(visited, refID)
			if err != nil {
				return nil, err
			}
			out = append(out, imported...)

		case map[string]any, map[any]any:
			var meta BlueprintMetadata
			if err := mapstructure.Decode(v, &meta); err != nil {
				return nil, fmt.Errorf("failed to decode inline blueprint: %w", err)
			}
			out = append(out, meta.toDomain())

		default:
			return nil, fmt.Errorf("invalid blueprint definition type: %T", v)
		}
	}
	return out, nil
}

// ListWorkbooks lists all documents in the repository.
func (l *Loader) ListWorkbooks(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// scalar renders a decoded YAML or JSON scalar in wire form.
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func (m BlueprintMetadata) toDomain() domain.Blueprint {
	bp := domain.Blueprint{Name: m.Name, Description: m.Description}
	for _, v := range m.DataVariables {
		bp.DataVariables = append(bp.DataVariables, domain.DataVariableBlueprint{
			Name:         v.Name,
			Namespace:    v.Namespace,
			Type:         variableType(v.Type),
			DefaultValue: scalar(v.DefaultValue),
			Description:  v.Description,
		})
	}
	for _, e := range m.Expressions {
		eb := domain.ExpressionBlueprint{
			Expression: e.Expression,
			Objective:  e.Objective,
			Inputs:     refs(e.Inputs),
			Output:     e.Output.toDomain(),
		}
		for _, t := range e.InputTables {
			eb.InputTables = append(eb.InputTables, domain.TableRef{Name: t.Name})
		}
		bp.Expressions = append(bp.Expressions, eb)
	}
	for _, t := range m.DataTables {
		tb := domain.DataTableBlueprint{
			Name:        t.Name,
			Namespace:   t.Namespace,
			Description: t.Description,
			Inputs:      refs(t.Inputs),
		}
		for _, c := range t.Columns {
			tb.Columns = append(tb.Columns, domain.DataTableColumn{Name: c.Name, Type: variableType(c.Type)})
		}
		for _, r := range t.Rows {
			row := domain.DataTableRow{}
			for _, c := range r.Cells {
				row.Cells = append(row.Cells, domain.DataTableCell{Name: c.Name, Namespace: c.Namespace, Key: c.Key, Value: scalar(c.Value)})
			}
			tb.Rows = append(tb.Rows, row)
		}
		bp.DataTables = append(bp.DataTables, tb)
	}
	for _, tr := range m.Triggers {
		tb := domain.TriggerBlueprint{Name: tr.Name, Description: tr.Description, Output: tr.Output.toDomain()}
		for _, c := range tr.Expressions {
			tb.Expressions = append(tb.Expressions, domain.TriggerExpressionBlueprint{
				Expression: c.Expression,
				Objective:  c.Objective,
				Input:      *c.Input.toDomain(),
			})
		}
		bp.Triggers = append(bp.Triggers, tb)
	}
	return bp
}

func (r *RefMetadata) toDomain() *domain.VariableRef {
	if r == nil {
		return nil
	}
	return &domain.VariableRef{Name: r.Name, Namespace: r.Namespace, Type: variableType(r.Type)}
}

func refs(in []RefMetadata) []domain.VariableRef {
	var out []domain.VariableRef
	for i := range in {
		out = append(out, *in[i].toDomain())
	}
	return out
}

// variableType normalizes case and leaves unknown names for Workbook.Validate to report.
func variableType(s string) domain.VariableType {
	if t, err := domain.ParseVariableType(s); err == nil {
		return t
	}
	return domain.VariableType(s)
}
