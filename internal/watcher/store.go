package watcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/postgres"
)

// SavedQuery is a standing query that every new document is checked
// against.
type SavedQuery struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// Source lists the saved queries to watch.
type Source interface {
	List(ctx context.Context) ([]SavedQuery, error)
}

// schema creates the saved_queries table on first start.
const schema = `CREATE TABLE IF NOT EXISTS saved_queries (
    id         TEXT PRIMARY KEY,
    query      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store persists saved queries in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "saved-query-store"),
	}
}

// EnsureSchema creates the saved_queries table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.Migrate(ctx, schema)
}

// List returns every saved query ordered by id.
func (s *Store) List(ctx context.Context) ([]SavedQuery, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, query, created_at FROM saved_queries ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing saved queries: %w", err)
	}
	defer rows.Close()

	var out []SavedQuery
	for rows.Next() {
		var q SavedQuery
		if err := rows.Scan(&q.ID, &q.Query, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning saved query: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating saved queries: %w", err)
	}
	return out, nil
}

// Get returns one saved query.
func (s *Store) Get(ctx context.Context, id string) (SavedQuery, error) {
	var q SavedQuery
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, query, created_at FROM saved_queries WHERE id = $1`, id,
	).Scan(&q.ID, &q.Query, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return q, fmt.Errorf("%w: %s", apperrors.ErrQueryNotFound, id)
	}
	if err != nil {
		return q, fmt.Errorf("loading saved query %s: %w", id, err)
	}
	return q, nil
}

// Save inserts or replaces a saved query.
func (s *Store) Save(ctx context.Context, q SavedQuery) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO saved_queries (id, query, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET query = EXCLUDED.query`,
			q.ID, q.Query, time.Now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving query %s: %w", q.ID, err)
	}
	s.logger.Info("saved query stored", "query_id", q.ID)
	return nil
}

// Delete removes a saved query.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM saved_queries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting saved query %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrQueryNotFound, id)
	}
	return nil
}
