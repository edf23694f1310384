// Package searchlog records executed searches in SQL. The same schema is
// used on SQLite and PostgreSQL: hits are stored as a JSON document and
// timestamps as Unix nanoseconds.
package searchlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
)

// MaxRecent bounds Recent.
const MaxRecent = 1000

// Entry is one recorded search.
type Entry struct {
	ID        int64          `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	Query     string         `json:"query"`
	Model     string         `json:"model"`
	Matched   int            `json:"matched"`
	Hits      []executor.Hit `json:"hits"`
	CacheHit  bool           `json:"cache_hit"`
	TookMs    float64        `json:"took_ms"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store writes to the search_log table. It implements executor.Recorder.
type Store struct {
	db     *database.DB
	now    func() time.Time
	logger *slog.Logger
}

// Open connects to the backend cfg names and prepares the table.
func Open(ctx context.Context, cfg config.SearchLogConfig) (*Store, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New creates the search_log table on db if needed.
func New(ctx context.Context, db *database.DB) (*Store, error) {
	idType := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.Driver() == config.DriverPostgres {
		idType = "BIGSERIAL PRIMARY KEY"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS search_log (
		id         %s,
		request_id TEXT NOT NULL DEFAULT '',
		query      TEXT NOT NULL,
		model      TEXT NOT NULL,
		matched    INTEGER NOT NULL,
		hits       TEXT NOT NULL,
		cache_hit  BOOLEAN NOT NULL,
		took_ms    DOUBLE PRECISION NOT NULL,
		created_at BIGINT NOT NULL
	)`, idType)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("creating search_log: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS search_log_created_at ON search_log (created_at)`); err != nil {
		return nil, fmt.Errorf("indexing search_log: %w", err)
	}
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "search-log"),
	}, nil
}

// DB exposes the underlying pool for health checks and sibling stores.
func (s *Store) DB() *database.DB {
	return s.db
}

// Record appends resp to the log.
func (s *Store) Record(ctx context.Context, resp *executor.Response) error {
	hits, err := json.Marshal(resp.Hits)
	if err != nil {
		return fmt.Errorf("marshaling hits: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO search_log (request_id, query, model, matched, hits, cache_hit, took_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		logger.RequestID(ctx), resp.Query, resp.ModelKey, resp.Matched, string(hits), resp.CacheHit, resp.TookMs, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first. n is clamped to
// [1, MaxRecent].
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	n = min(max(n, 1), MaxRecent)
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT id, request_id, query, model, matched, hits, cache_hit, took_ms, created_at
		FROM search_log ORDER BY created_at DESC, id DESC LIMIT ?`),
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, n)
	for rows.Next() {
		var (
			e       Entry
			hits    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Query, &e.Model, &e.Matched, &hits, &e.CacheHit, &e.TookMs, &created); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if err := json.Unmarshal([]byte(hits), &e.Hits); err != nil {
			return nil, fmt.Errorf("decoding hits of search %d: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded searches.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting searches: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM search_log WHERE created_at < ?`),
		before.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning search log: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("search log pruned", "deleted", n, "before", before)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
