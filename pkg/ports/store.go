package ports

import (
	"context"

	"github.com/aretw0/recalc/pkg/domain"
)

// ResultStore persists the one-shot handoff of an ended session.
type ResultStore interface {
	// Save persists the result under result.SessionID, replacing any previous one.
	Save(ctx context.Context, result *domain.EvaluationResult) error

	// Load retrieves the result of a session.
	// Returns domain.ErrResultNotFound if nothing is stored for the ID.
	Load(ctx context.Context, sessionID string) (*domain.EvaluationResult, error)

	// Delete removes the result of a session. Deleting a missing ID is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored results.
	List(ctx context.Context) ([]string, error)
}

// ResultSink receives results as they are handed off. Sinks are notified after
// the store and their failures never fail the evaluation.
type ResultSink interface {
	Publish(ctx context.Context, result *domain.EvaluationResult) error
}
