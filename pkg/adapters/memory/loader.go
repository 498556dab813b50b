package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/recalc/pkg/domain"
)

// Loader implements ports.WorkbookLoader over raw JSON documents kept in memory.
type Loader struct {
	mu        sync.RWMutex
	workbooks map[string][]byte
}

// NewLoader creates a Loader from raw JSON documents keyed by workbook ID.
func NewLoader(data map[string]string) *Loader {
	workbooks := make(map[string][]byte, len(data))
	for k, v := range data {
		workbooks[k] = []byte(v)
	}
	return &Loader{workbooks: workbooks}
}

// NewFromWorkbooks creates a Loader from domain objects.
func NewFromWorkbooks(workbooks ...*domain.Workbook) (*Loader, error) {
	l := &Loader{workbooks: make(map[string][]byte, len(workbooks))}
	for _, wb := range workbooks {
		if err := l.Put(wb); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Put adds or replaces a workbook.
func (l *Loader) Put(wb *domain.Workbook) error {
	if wb == nil || wb.ID == "" {
		return fmt.Errorf("%w: workbook missing ID", domain.ErrInvalidArgument)
	}
	raw, err := json.Marshal(wb)
	if err != nil {
		return fmt.Errorf("failed to marshal workbook %s: %w", wb.ID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.workbooks[wb.ID] = raw
	return nil
}

// LoadWorkbook decodes a fresh copy of the workbook on every call.
func (l *Loader) LoadWorkbook(ctx context.Context, id string) (*domain.Workbook, error) {
	l.mu.RLock()
	raw, ok := l.workbooks[id]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkbookNotFound, id)
	}

	var wb domain.Workbook
	if err := json.Unmarshal(raw, &wb); err != nil {
		return nil, fmt.Errorf("failed to decode workbook %s: %w", id, err)
	}
	if wb.ID == "" {
		wb.ID = id
	}
	return &wb, nil
}

// ListWorkbooks returns all workbook IDs in lexical order.
func (l *Loader) ListWorkbooks(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.workbooks))
	for k := range l.workbooks {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids, nil
}
