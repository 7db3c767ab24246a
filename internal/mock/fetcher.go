package mock

import (
	"context"

	"github.com/backyonatan-alt/partnersync/internal/model"
	"github.com/backyonatan-alt/partnersync/internal/pipeline"
)

var _ pipeline.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of pipeline.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, req model.PageRequest) model.Page
}

func (f *Fetcher) Fetch(ctx context.Context, req model.PageRequest) model.Page {
	return f.FetchFn(ctx, req)
}
