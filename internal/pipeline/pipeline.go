package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/backyonatan-alt/partnersync/internal/metrics"
	"github.com/backyonatan-alt/partnersync/internal/model"
)

// Fetcher retrieves one page of partners.
type Fetcher interface {
	Fetch(ctx context.Context, req model.PageRequest) model.Page
}

// Options control pagination.
type Options struct {
	Sort     int
	PageSize int
	// LastPage is the highest page index fetched for a country.
	LastPage int
	// FetchRetries is how many extra attempts a failed page gets.
	FetchRetries int
	Countries    []string
}

// Summary reports a finished run.
type Summary struct {
	Countries int
	Inserted  int
	Failed    int
	Elapsed   time.Duration
}

// Pipeline orchestrates: countries -> pages -> records.
type Pipeline struct {
	fetcher   Fetcher
	persister *Persister
	metrics   *metrics.Metrics
	opts      Options
}

func New(f Fetcher, persister *Persister, m *metrics.Metrics, opts Options) *Pipeline {
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{fetcher: f, persister: persister, metrics: m, opts: opts}
}

// Run imports every configured country, one after another. Per-country
// failures are absorbed; only context cancellation cuts the run short.
func (p *Pipeline) Run(ctx context.Context) Summary {
	start := time.Now()
	var sum Summary

	for _, country := range p.opts.Countries {
		if ctx.Err() != nil {
			slog.Warn("run interrupted", "remaining_from", country, "error", ctx.Err())
			break
		}
		sum.Inserted += p.RunCountry(ctx, country)
		sum.Countries++
	}

	sum.Failed = p.persister.Failed()
	sum.Elapsed = time.Since(start)
	p.metrics.ObserveRun(sum.Elapsed)
	return sum
}

// RunCountry walks pages 0..LastPage for country until a page ends the
// results or fails. It returns the number of rows inserted.
func (p *Pipeline) RunCountry(ctx context.Context, country string) (total int) {
	defer func() {
		slog.Info("country done", "country", country, "inserted", total)
	}()

	for page := 0; page <= p.opts.LastPage; page++ {
		req := model.PageRequest{
			Country:  country,
			Page:     page,
			Sort:     p.opts.Sort,
			PageSize: p.opts.PageSize,
		}
		result := p.fetch(ctx, req)
		if result.Stop() {
			return total
		}
		total += p.persister.Persist(ctx, result.Items, req)
	}
	return total
}

func (p *Pipeline) fetch(ctx context.Context, req model.PageRequest) model.Page {
	for attempt := 0; ; attempt++ {
		page := p.fetcher.Fetch(ctx, req)
		p.metrics.Pages.WithLabelValues(page.Kind.String()).Inc()

		if page.Kind != model.PageFailed || attempt >= p.opts.FetchRetries || ctx.Err() != nil {
			return page
		}
		slog.Warn("retrying page", "country", req.Country, "page", req.Page, "attempt", attempt+1, "error", page.Err)
	}
}
