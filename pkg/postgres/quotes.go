package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Quote is a row of the quotes table: an author name and the quote body, the
// two searchable fields of the corpus.
type Quote struct {
	ID    int64
	Name  string
	Quote string
}

// DocID returns the document id the quote is indexed under.
func (q Quote) DocID() string {
	return strconv.FormatInt(q.ID, 10)
}

// Fields returns the searchable field map for the quote.
func (q Quote) Fields() map[string]string {
	return map[string]string{"name": q.Name, "quote": q.Quote}
}

// QuoteStore reads and writes the quotes table.
type QuoteStore struct {
	client *Client
}

// NewQuoteStore creates a store over the shared client.
func NewQuoteStore(client *Client) *QuoteStore {
	return &QuoteStore{client: client}
}

// EnsureSchema creates the quotes table when it does not exist.
func (s *QuoteStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS quotes (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    quote      TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.client.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating quotes table: %w", err)
	}
	return nil
}

// Insert adds a quote and returns its assigned id. Duplicate quote bodies
// are skipped and reported with ok=false.
func (s *QuoteStore) Insert(ctx context.Context, name, quote string) (int64, bool, error) {
	const q = `
INSERT INTO quotes (name, quote) VALUES ($1, $2)
ON CONFLICT (quote) DO NOTHING
RETURNING id`
	var id int64
	err := s.client.DB.QueryRowContext(ctx, q, name, quote).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("inserting quote: %w", err)
	}
	return id, true, nil
}

// Get fetches one quote by id.
func (s *QuoteStore) Get(ctx context.Context, id int64) (Quote, error) {
	const q = `SELECT id, name, quote FROM quotes WHERE id = $1`
	var row Quote
	err := s.client.DB.QueryRowContext(ctx, q, id).Scan(&row.ID, &row.Name, &row.Quote)
	if err != nil {
		return Quote{}, fmt.Errorf("fetching quote %d: %w", id, err)
	}
	return row, nil
}

// Upsert writes a quote under a fixed id, used by the ingest consumer.
func (s *QuoteStore) Upsert(ctx context.Context, quote Quote) error {
	const q = `
INSERT INTO quotes (id, name, quote) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, quote = EXCLUDED.quote`
	if _, err := s.client.DB.ExecContext(ctx, q, quote.ID, quote.Name, quote.Quote); err != nil {
		return fmt.Errorf("upserting quote %d: %w", quote.ID, err)
	}
	return nil
}

// Delete removes a quote by id and reports whether a row existed.
func (s *QuoteStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.client.DB.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting quote %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting quote %d: %w", id, err)
	}
	return n > 0, nil
}

// Count returns the number of stored quotes.
func (s *QuoteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.client.DB.QueryRowContext(ctx, `SELECT count(*) FROM quotes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting quotes: %w", err)
	}
	return n, nil
}

// ForEach streams every quote to fn in id order. It is the hydration path:
// the service walks the table once at startup and bulk-indexes the rows.
func (s *QuoteStore) ForEach(ctx context.Context, fn func(Quote) error) error {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT id, name, quote FROM quotes ORDER BY id`)
	if err != nil {
		return fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row Quote
		if err := rows.Scan(&row.ID, &row.Name, &row.Quote); err != nil {
			return fmt.Errorf("scanning quote row: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating quotes: %w", err)
	}
	return nil
}
