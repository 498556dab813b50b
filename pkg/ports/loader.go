package ports

import (
	"context"

	"github.com/aretw0/recalc/pkg/domain"
)

// WorkbookLoader defines how the engine retrieves workbook definitions.
type WorkbookLoader interface {
	// LoadWorkbook returns the workbook with the given ID.
	// Returns domain.ErrWorkbookNotFound if it does not exist.
	LoadWorkbook(ctx context.Context, id string) (*domain.Workbook, error)

	// ListWorkbooks returns the IDs of all available workbooks.
	ListWorkbooks(ctx context.Context) ([]string, error)
}

// Watchable is implemented by loaders that can report changes to their backend.
type Watchable interface {
	// Watch returns a channel receiving the ID of every changed workbook.
	// The channel is closed when ctx ends.
	Watch(ctx context.Context) (<-chan string, error)
}
