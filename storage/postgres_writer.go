package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

// PostgresWriter persists canonical listings to PostgreSQL. Rows are keyed
// by identity key, so re-writing a dataset never duplicates listings.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it using the
// given retry policy, runs schema migrations and returns a ready writer.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.Backoff) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id            SERIAL PRIMARY KEY,
			identity_key  TEXT          UNIQUE NOT NULL,
			title         TEXT          NOT NULL,
			price_text    TEXT          NOT NULL DEFAULT '',
			price         NUMERIC(12,2),
			date_estimate TEXT          NOT NULL DEFAULT '',
			source_tag    VARCHAR(64)   NOT NULL DEFAULT '',
			item_link     TEXT          NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price  ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_date   ON listings(date_estimate);
		CREATE INDEX IF NOT EXISTS idx_listings_source ON listings(source_tag);
	`)
	return err
}

// Write batch-inserts records, skipping identity keys already stored.
func (pw *PostgresWriter) Write(records []models.ListingRecord) (string, error) {
	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(records[i:end]); err != nil {
			return "", fmt.Errorf("postgres: insert: %w", err)
		}
	}
	return "postgres:listings", nil
}

const insertColumns = 7

func insertQuery(n int) string {
	valueStrings := make([]string, 0, n)
	for idx := 0; idx < n; idx++ {
		base := idx * insertColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
	}
	return fmt.Sprintf(`
		INSERT INTO listings (identity_key, title, price_text, price, date_estimate, source_tag, item_link)
		VALUES %s
		ON CONFLICT (identity_key) DO NOTHING
	`, strings.Join(valueStrings, ","))
}

func insertArgs(batch []models.ListingRecord) []interface{} {
	args := make([]interface{}, 0, len(batch)*insertColumns)
	for _, r := range batch {
		var price interface{}
		if r.PriceNumeric != nil {
			price = *r.PriceNumeric
		}
		args = append(args, r.IdentityKey, r.Title, r.PriceText, price, r.DateEstimate, r.SourceTag, r.ItemLink)
	}
	return args
}

func (pw *PostgresWriter) insertBatch(batch []models.ListingRecord) error {
	if len(batch) == 0 {
		return nil
	}
	_, err := pw.db.Exec(insertQuery(len(batch)), insertArgs(batch)...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
