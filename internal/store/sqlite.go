package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/backyonatan-alt/partnersync/internal/model"
)

var _ Store = (*SQLite)(nil)

// SQLite stores partners in a local database file, or in memory for ":memory:".
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; concurrent inserts queue on the connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS partners (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			natural_key TEXT NOT NULL UNIQUE,
			page_number INTEGER NOT NULL,
			country     TEXT NOT NULL,
			raw         TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_partners_country ON partners(country);
	`)
	return err
}

func (s *SQLite) InsertPartner(ctx context.Context, row model.PartnerRow) (int64, error) {
	var affected int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO partners (natural_key, page_number, country, raw)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (natural_key) DO NOTHING
		`, row.NaturalKey, row.Page, row.Country, string(row.Raw))
		if err != nil {
			return fmt.Errorf("insert partner %s: %w", row.NaturalKey, err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *SQLite) CountPartners(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM partners").Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
