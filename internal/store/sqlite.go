package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quantdir/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	ticker        TEXT NOT NULL,
	model         TEXT NOT NULL,
	horizon       INTEGER NOT NULL,
	split_ratio   REAL NOT NULL,
	start_date    TEXT NOT NULL,
	train_rows    INTEGER NOT NULL,
	test_rows     INTEGER NOT NULL,
	accuracy      REAL NOT NULL,
	sharpe        REAL,
	max_drawdown  REAL NOT NULL,
	total_return  REAL NOT NULL,
	total_trades  INTEGER NOT NULL,
	win_rate      REAL NOT NULL,
	profit_factor REAL NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_ticker_created ON runs (ticker, created_at);
`

const runColumns = `id, ticker, model, horizon, split_ratio, start_date, train_rows, test_rows,
	accuracy, sharpe, max_drawdown, total_return, total_trades, win_rate, profit_factor, created_at`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// runs table if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers from concurrent experiments.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a run by ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *domain.Run) error {
	var sharpe sql.NullFloat64
	if r.Sharpe != nil {
		sharpe = sql.NullFloat64{Float64: *r.Sharpe, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Ticker, r.Model, r.Horizon, r.SplitRatio, r.StartDate.Format(time.DateOnly),
		r.TrainRows, r.TestRows, r.Accuracy, sharpe, r.MaxDrawdown, r.TotalReturn,
		r.TotalTrades, r.WinRate, r.ProfitFactor, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun retrieves a single run by its ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns runs newest first, optionally filtered by ticker. The
// filter is case-insensitive since tickers are stored upper-case.
func (s *SQLiteStore) ListRuns(ctx context.Context, ticker string) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, strings.ToUpper(ticker))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var (
		r         domain.Run
		startDate string
		sharpe    sql.NullFloat64
		createdAt int64
	)
	err := sc.Scan(&r.ID, &r.Ticker, &r.Model, &r.Horizon, &r.SplitRatio, &startDate,
		&r.TrainRows, &r.TestRows, &r.Accuracy, &sharpe, &r.MaxDrawdown, &r.TotalReturn,
		&r.TotalTrades, &r.WinRate, &r.ProfitFactor, &createdAt)
	if err != nil {
		return nil, err
	}
	if sharpe.Valid {
		v := sharpe.Float64
		r.Sharpe = &v
	}
	if r.StartDate, err = time.Parse(time.DateOnly, startDate); err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", startDate, err)
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &r, nil
}
