// Package runlog persists one record per pipeline run: status, timing, the
// run summary and the failure message.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bcaengine/bcaengine/internal/platform"
)

// Run statuses.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one row of the run log.
type Run struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Baseline       string     `json:"baseline"`
	DiscountYear   int        `json:"discount_year"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	Details        string     `json:"details,omitempty"` // JSON run summary
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// Store reads and writes the runs table.
type Store struct {
	db     *sql.DB
	driver string
}

// New wraps an open database. driver is platform.DriverPostgres or
// platform.DriverSQLite and selects the placeholder style.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Open opens the database, runs migrations and returns a Store.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == platform.DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := platform.AutoMigrate(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, driver), nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders as $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != platform.DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Create inserts a run in RUNNING state.
func (s *Store) Create(ctx context.Context, id, baseline string, discountYear int, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO runs (id, status, baseline, discount_year, started_at) VALUES (?, ?, ?, ?, ?)`),
		id, StatusRunning, baseline, discountYear, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Complete marks a run COMPLETED with its summary.
func (s *Store) Complete(ctx context.Context, id string, details string, finishedAt time.Time, elapsed time.Duration) error {
	return s.finish(ctx, id, StatusCompleted, nilIfEmpty(details), nil, finishedAt, elapsed)
}

// Fail marks a run FAILED with the error message.
func (s *Store) Fail(ctx context.Context, id string, errMsg string, finishedAt time.Time, elapsed time.Duration) error {
	return s.finish(ctx, id, StatusFailed, nil, &errMsg, finishedAt, elapsed)
}

func (s *Store) finish(ctx context.Context, id, status string, details, errMsg *string, finishedAt time.Time, elapsed time.Duration) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE runs SET status = ?, details = ?, error_message = ?, finished_at = ?, elapsed_seconds = ? WHERE id = ?`),
		status, details, errMsg, finishedAt.UTC(), elapsed.Seconds(), id,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, status, baseline, discount_year, started_at, finished_at, elapsed_seconds, details, error_message`

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r        Run
		finished sql.NullTime
		details  sql.NullString
		errMsg   sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Status, &r.Baseline, &r.DiscountYear, &r.StartedAt,
		&finished, &r.ElapsedSeconds, &details, &errMsg); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.Details = details.String
	r.ErrorMessage = errMsg.String
	return &r, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
