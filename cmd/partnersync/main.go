package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/backyonatan-alt/partnersync/internal/config"
	"github.com/backyonatan-alt/partnersync/internal/fetcher"
	"github.com/backyonatan-alt/partnersync/internal/metrics"
	"github.com/backyonatan-alt/partnersync/internal/pipeline"
	"github.com/backyonatan-alt/partnersync/internal/store"
	"github.com/backyonatan-alt/partnersync/internal/workpool"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Properties string `short:"p" type:"existingfile" help:"Read settings from a .properties file instead of the environment"`
	LogLevel   string `default:"info" enum:"debug,info,warn,error" env:"LOG_LEVEL" help:"Minimum log level"`
	LogFormat  string `default:"text" enum:"text,json" env:"LOG_FORMAT" help:"Log output format"`
	DryRun     bool   `help:"Fetch pages without writing to the database"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("partnersync"),
		kong.Description("Import the partner directory into a relational store, one country at a time."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cli, os.Stdout, config.NewEnvSource()); err != nil {
		slog.Error("import failed to start", "error", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// run wires the importer from cli and env and runs it once. It only fails
// on startup problems; a run with failing countries still returns nil.
func run(ctx context.Context, cli CLI, logOut io.Writer, env config.Source) error {
	runID := uuid.NewString()
	slog.SetDefault(newLogger(logOut, cli.LogLevel, cli.LogFormat).With("run_id", runID))

	src := env
	if cli.Properties != "" {
		props, err := config.LoadPropertiesFile(cli.Properties)
		if err != nil {
			return err
		}
		src = props
	}
	cfg, err := config.Load(src)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(ctx, cfg, cli.DryRun)
	if err != nil {
		return err
	}
	defer st.Close()

	pool := workpool.New(cfg.Concurrency)
	defer pool.Close()

	m := metrics.New()
	link := cfg.Link()
	countries := cfg.CountryCodes()

	slog.Warn("start processing",
		"sort", cfg.Sort,
		"max_results", cfg.MaxResults,
		"page_size", cfg.PageSize,
		"link", link,
		"countries", len(countries),
		"concurrency", cfg.Concurrency,
		"dry_run", cli.DryRun,
	)

	p := pipeline.New(
		fetcher.New(link, cfg.FetchTimeout),
		pipeline.NewPersister(pool, st, m),
		m,
		pipeline.Options{
			Sort:         cfg.Sort,
			PageSize:     cfg.PageSize,
			LastPage:     cfg.LastPage(),
			FetchRetries: cfg.FetchRetries,
			Countries:    countries,
		},
	)
	sum := p.Run(ctx)

	slog.Warn("done processing",
		"inserted", sum.Inserted,
		"failed", sum.Failed,
		"countries", sum.Countries,
		"sort", cfg.Sort,
		"max_results", cfg.MaxResults,
		"page_size", cfg.PageSize,
		"link", link,
		"took_seconds", int(sum.Elapsed.Seconds()),
	)

	if cfg.PushgatewayURL != "" {
		if err := m.Push(cfg.PushgatewayURL, runID); err != nil {
			slog.Error("failed to push metrics", "error", err)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, dryRun bool) (store.Store, error) {
	if dryRun {
		return &store.Discard{}, nil
	}
	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{
		Schema:   cfg.DBSchema,
		MaxConns: cfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
