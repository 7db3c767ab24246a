package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/backyonatan-alt/partnersync/internal/model"
)

// ErrUnsupportedDSN is returned by Open for an empty or unrecognized DSN.
var ErrUnsupportedDSN = errors.New("unsupported database url")

type Options struct {
	// Schema holding the partners table (Postgres only).
	Schema string
	// MaxConns caps the Postgres connection pool.
	MaxConns int
}

// Open connects to the store named by dsn and verifies the connection.
// postgres:// and postgresql:// select Postgres; sqlite:, file:, ":memory:"
// and bare paths select SQLite.
func Open(ctx context.Context, dsn string, opts Options) (Store, error) {
	switch {
	case dsn == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn, opts)
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//"))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, dsn[:strings.Index(dsn, "://")])
	default:
		return OpenSQLite(ctx, dsn)
	}
}

func openPostgres(ctx context.Context, dsn string, opts Options) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgres(db, opts.Schema), nil
}

var _ Store = (*Discard)(nil)

// Discard accepts every row without writing it. Used for dry runs.
type Discard struct {
	seen atomic.Int64
}

func (d *Discard) Migrate(context.Context) error { return nil }

func (d *Discard) InsertPartner(context.Context, model.PartnerRow) (int64, error) {
	d.seen.Add(1)
	return 0, nil
}

// CountPartners reports how many rows were offered.
func (d *Discard) CountPartners(context.Context) (int64, error) {
	return d.seen.Load(), nil
}

func (d *Discard) Close() error { return nil }
