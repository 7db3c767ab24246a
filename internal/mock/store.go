package mock

import (
	"context"

	"github.com/backyonatan-alt/partnersync/internal/model"
	"github.com/backyonatan-alt/partnersync/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a mock implementation of store.Store.
type Store struct {
	MigrateFn       func(ctx context.Context) error
	InsertPartnerFn func(ctx context.Context, row model.PartnerRow) (int64, error)
	CountPartnersFn func(ctx context.Context) (int64, error)
	CloseFn         func() error
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.MigrateFn(ctx)
}

func (s *Store) InsertPartner(ctx context.Context, row model.PartnerRow) (int64, error) {
	return s.InsertPartnerFn(ctx, row)
}

func (s *Store) CountPartners(ctx context.Context) (int64, error) {
	return s.CountPartnersFn(ctx)
}

func (s *Store) Close() error {
	return s.CloseFn()
}
