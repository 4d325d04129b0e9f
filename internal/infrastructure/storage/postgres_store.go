package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// PostgresStore keeps sent article URLs in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
	now  func() time.Time
}

var _ ports.DedupStore = (*PostgresStore)(nil)

// OpenPostgres connects to dsn and ensures the sent_news table exists.
func OpenPostgres(ctx context.Context, dsn string, log *slog.Logger) (*PostgresStore, error) {
	if log == nil {
		log = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensurePostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("postgres store ready")

	return NewPostgresStore(pool), nil
}

// NewPostgresStore wires an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:  time.Now,
	}
}

// IsSent reports whether url was already delivered.
func (s *PostgresStore) IsSent(ctx context.Context, url string) (bool, error) {
	query, args, err := isSentQuery(s.sb, url)
	if err != nil {
		return false, &domain.PersistenceError{Op: "is_sent", URL: url, Err: err}
	}

	var one int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &domain.PersistenceError{Op: "is_sent", URL: url, Err: err}
	}
	return true, nil
}

// MarkSent records url; recording it again leaves the first record intact.
func (s *PostgresStore) MarkSent(ctx context.Context, url, title string) error {
	query, args, err := s.sb.Insert(sentTable).
		Columns("url", "title", "sent_at").
		Values(url, title, s.now().UTC()).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return &domain.PersistenceError{Op: "mark_sent", URL: url, Err: err}
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return &domain.PersistenceError{Op: "mark_sent", URL: url, Err: err}
	}
	return nil
}

// RecentlySent returns the newest records first.
func (s *PostgresStore) RecentlySent(ctx context.Context, limit int) ([]domain.SentRecord, error) {
	query, args, err := recentQuery(s.sb, limit, "sent_at DESC", "url")
	if err != nil {
		return nil, &domain.PersistenceError{Op: "recently_sent", Err: err}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "recently_sent", Err: err}
	}
	defer rows.Close()

	records := make([]domain.SentRecord, 0, normalizeLimit(limit))
	for rows.Next() {
		var rec domain.SentRecord
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.SentAt); err != nil {
			return nil, &domain.PersistenceError{Op: "recently_sent", Err: fmt.Errorf("scan row: %w", err)}
		}
		rec.SentAt = rec.SentAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "recently_sent", Err: fmt.Errorf("rows iteration: %w", err)}
	}
	return records, nil
}

// Count returns the number of recorded URLs.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	query, args, err := countQuery(s.sb)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "count", Err: err}
	}

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, &domain.PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// Close releases pool connections.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
