package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seantiz/snakebridge/internal/model"

	_ "modernc.org/sqlite"
)

const createCallsTable = `
CREATE TABLE IF NOT EXISTS calls (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    status      TEXT NOT NULL,
    game_id     TEXT NOT NULL DEFAULT '',
    turn        INTEGER,
    request_id  TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL
)`

const createCallsKindIndex = `CREATE INDEX IF NOT EXISTS calls_kind_created ON calls (kind, created_at)`

const callColumns = `id, kind, status, game_id, turn, request_id, duration_ms, error, created_at`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createCallsTable, createCallsKindIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordCall inserts a journal record.
func (s *SQLiteStore) RecordCall(ctx context.Context, c *model.Call) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (`+callColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Kind), c.Status, c.GameID, c.Turn, c.RequestID,
		c.DurationMS, c.Error, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(row scanner) (*model.Call, error) {
	c := &model.Call{}
	var kind string
	if err := row.Scan(
		&c.ID, &kind, &c.Status, &c.GameID, &c.Turn, &c.RequestID,
		&c.DurationMS, &c.Error, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.Kind = model.Kind(kind)
	return c, nil
}

// GetCall retrieves a call by ID.
func (s *SQLiteStore) GetCall(ctx context.Context, id string) (*model.Call, error) {
	c, err := scanCall(s.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call: %w", err)
	}
	return c, nil
}

// ListCalls returns a page of calls ordered by created_at DESC, along with the
// total number of calls matching kind.
func (s *SQLiteStore) ListCalls(ctx context.Context, kind string, limit, offset int) ([]*model.Call, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM calls WHERE (? = '' OR kind = ?)", kind, kind,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count calls: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls
		WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		kind, kind, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var calls []*model.Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate calls: %w", err)
	}

	return calls, total, nil
}

// GetCallStats returns counts by kind and status and the mean duration.
func (s *SQLiteStore) GetCallStats(ctx context.Context) (*CallStats, error) {
	stats := &CallStats{
		CountByKind:   make(map[string]int),
		CountByStatus: make(map[string]int),
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(duration_ms) FROM calls",
	).Scan(&stats.Total, &avg); err != nil {
		return nil, fmt.Errorf("count calls: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}

	if err := s.countBy(ctx, "kind", stats.CountByKind); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "status", stats.CountByStatus); err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy fills dst with row counts grouped by column. column is always a
// constant from this file.
func (s *SQLiteStore) countBy(ctx context.Context, column string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM calls GROUP BY "+column,
	)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		dst[key] = n
	}
	return rows.Err()
}
