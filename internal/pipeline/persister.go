package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backyonatan-alt/partnersync/internal/metrics"
	"github.com/backyonatan-alt/partnersync/internal/model"
	"github.com/backyonatan-alt/partnersync/internal/workpool"
)

// Upserter writes a single partner row idempotently.
type Upserter interface {
	InsertPartner(ctx context.Context, row model.PartnerRow) (int64, error)
}

// Persister saves the records of one page in parallel on a shared pool.
type Persister struct {
	pool    *workpool.Pool
	store   Upserter
	metrics *metrics.Metrics

	failed atomic.Int64
}

func NewPersister(pool *workpool.Pool, store Upserter, m *metrics.Metrics) *Persister {
	if m == nil {
		m = metrics.New()
	}
	return &Persister{pool: pool, store: store, metrics: m}
}

// Persist submits one task per item and waits for all of them. It returns
// the number of rows inserted. A record that fails to persist is logged and
// counts as zero.
func (p *Persister) Persist(ctx context.Context, items []model.Partner, req model.PageRequest) int {
	start := time.Now()

	var inserted atomic.Int64
	var g errgroup.Group
	for _, item := range items {
		row := model.NewPartnerRow(req, item)
		g.Go(func() error {
			err := p.pool.Do(ctx, func(ctx context.Context) {
				inserted.Add(p.save(ctx, row))
			})
			if err != nil {
				p.recordFailure(row, err)
			}
			return nil // one record never fails the page
		})
	}
	_ = g.Wait()

	slog.Debug("page saved",
		"country", req.Country,
		"page", req.Page,
		"items", len(items),
		"inserted", inserted.Load(),
		"elapsed", time.Since(start),
	)
	return int(inserted.Load())
}

// Failed returns the number of records that could not be persisted so far.
func (p *Persister) Failed() int {
	return int(p.failed.Load())
}

func (p *Persister) save(ctx context.Context, row model.PartnerRow) int64 {
	n, err := p.store.InsertPartner(ctx, row)
	if err != nil {
		p.recordFailure(row, err)
		return 0
	}
	if n == 0 {
		p.metrics.Skipped.Inc()
		return 0
	}
	p.metrics.Inserted.Add(float64(n))
	return n
}

func (p *Persister) recordFailure(row model.PartnerRow, err error) {
	p.failed.Add(1)
	p.metrics.Failed.Inc()
	slog.Error("persist partner failed",
		"country", row.Country,
		"page", row.Page,
		"natural_key", row.NaturalKey,
		"error", err,
	)
}
