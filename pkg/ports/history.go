package ports

import (
	"context"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// HistoryStore defines the interface for persisting invocation history.
type HistoryStore interface {
	// Append stores a record. Records of one session are kept in append order.
	Append(ctx context.Context, rec *domain.Record) error

	// List returns the records of a session, oldest first.
	// An unknown session yields an empty list.
	List(ctx context.Context, sessionID string) ([]*domain.Record, error)

	// Get retrieves a single record.
	// Returns domain.ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, sessionID, recordID string) (*domain.Record, error)

	// Delete removes the whole history of a session. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Sessions lists the IDs of sessions with at least one record.
	Sessions(ctx context.Context) ([]string, error)
}
