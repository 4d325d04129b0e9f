package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// SQLiteStore keeps sent article URLs in an embedded SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.DedupStore = (*SQLiteStore)(nil)

// OpenSQLite opens the database at path and migrates it to the latest schema.
func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer avoids SQLITE_BUSY under concurrent runs
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	version, err := runSQLiteMigrations(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("sqlite store ready", "path", path, "schema_version", version)

	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}

// IsSent reports whether url was already delivered.
func (s *SQLiteStore) IsSent(ctx context.Context, url string) (bool, error) {
	query, args, err := isSentQuery(s.sb, url)
	if err != nil {
		return false, &domain.PersistenceError{Op: "is_sent", URL: url, Err: err}
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &domain.PersistenceError{Op: "is_sent", URL: url, Err: err}
	}
	return true, nil
}

// MarkSent records url; recording it again leaves the first record intact.
func (s *SQLiteStore) MarkSent(ctx context.Context, url, title string) error {
	query, args, err := s.sb.Insert(sentTable).
		Options("OR IGNORE").
		Columns("url", "title", "sent_at").
		Values(url, title, s.now().UTC().UnixMilli()).
		ToSql()
	if err != nil {
		return &domain.PersistenceError{Op: "mark_sent", URL: url, Err: err}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.PersistenceError{Op: "mark_sent", URL: url, Err: err}
	}
	return nil
}

// RecentlySent returns the newest records first.
func (s *SQLiteStore) RecentlySent(ctx context.Context, limit int) ([]domain.SentRecord, error) {
	query, args, err := recentQuery(s.sb, limit, "sent_at DESC", "rowid DESC")
	if err != nil {
		return nil, &domain.PersistenceError{Op: "recently_sent", Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "recently_sent", Err: err}
	}
	defer rows.Close()

	records := make([]domain.SentRecord, 0, normalizeLimit(limit))
	for rows.Next() {
		var (
			rec    domain.SentRecord
			millis int64
		)
		if err := rows.Scan(&rec.URL, &rec.Title, &millis); err != nil {
			return nil, &domain.PersistenceError{Op: "recently_sent", Err: fmt.Errorf("scan row: %w", err)}
		}
		rec.SentAt = time.UnixMilli(millis).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "recently_sent", Err: fmt.Errorf("rows iteration: %w", err)}
	}
	return records, nil
}

// Count returns the number of recorded URLs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	query, args, err := countQuery(s.sb)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "count", Err: err}
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &domain.PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
