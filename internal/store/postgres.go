package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/backyonatan-alt/partnersync/internal/model"
)

var _ Store = (*Postgres)(nil)

type Postgres struct {
	db     *sql.DB
	schema string
	table  string
}

// NewPostgres wraps an open lib/pq connection pool. Rows live in
// <schema>.partners.
func NewPostgres(db *sql.DB, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{
		db:     db,
		schema: schema,
		table:  pq.QuoteIdentifier(schema) + ".partners",
	}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS %s;
		CREATE TABLE IF NOT EXISTS %s (
			id           BIGSERIAL PRIMARY KEY,
			natural_key  TEXT NOT NULL,
			page_number  INTEGER NOT NULL,
			country      VARCHAR(2) NOT NULL,
			raw          JSONB NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT partners_natural_key_uq UNIQUE (natural_key)
		);
		CREATE INDEX IF NOT EXISTS idx_partners_country ON %s (country);
	`, pq.QuoteIdentifier(p.schema), p.table, p.table)
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *Postgres) InsertPartner(ctx context.Context, row model.PartnerRow) (int64, error) {
	query := `INSERT INTO ` + p.table + ` (natural_key, page_number, country, raw)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (natural_key) DO NOTHING`

	var affected int64
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, row.NaturalKey, row.Page, row.Country, string(row.Raw))
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

func (p *Postgres) CountPartners(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+p.table).Scan(&n)
	return n, err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
