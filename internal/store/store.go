package store

import (
	"context"

	"github.com/backyonatan-alt/partnersync/internal/model"
)

// Store is the repository interface for partner persistence.
type Store interface {
	// Migrate creates the partners table and its natural-key constraint.
	Migrate(ctx context.Context) error
	// InsertPartner writes one row in its own transaction. A row whose
	// natural key already exists is skipped. Returns rows affected (0 or 1).
	InsertPartner(ctx context.Context, row model.PartnerRow) (int64, error)
	// CountPartners returns the number of stored rows.
	CountPartners(ctx context.Context) (int64, error)
	// Close releases the underlying connection pool.
	Close() error
}
