// Package journal keeps a SQLite history of dispatched calls.
//
// A Journal is an http.Recorder: attach it with http.WithRecorder and every
// call the client dispatches is stored as one row.
package journal

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/apex/log"
	"github.com/pkg/errors"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id          TEXT PRIMARY KEY,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	code        INTEGER NOT NULL,
	message     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	duration_us INTEGER NOT NULL,
	started_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_started_at ON calls (started_at);
`

// DefaultWriteTimeout bounds a single insert issued through Record.
const DefaultWriteTimeout = 5 * time.Second

type Journal struct {
	db           *sql.DB
	logger       log.Interface
	writeTimeout time.Duration
}

type Option func(*Journal)

func WithLogger(logger log.Interface) Option {
	return func(j *Journal) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// Open opens or creates the journal database. path may carry a sqlite:// or
// sqlite: prefix.
func Open(path string, opts ...Option) (*Journal, error) {
	dsn := strings.TrimSpace(path)
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite:")
	if dsn == "" {
		return nil, errors.New("journal path is empty")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal")
	}
	// calls are recorded from many pool goroutines; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to journal")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create journal schema")
	}

	j := &Journal{
		db:           db,
		logger:       log.Log,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record implements http.Recorder. Failures are logged, never returned.
func (j *Journal) Record(e http.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), j.writeTimeout)
	defer cancel()

	if err := j.Insert(ctx, e); err != nil {
		j.logger.WithError(err).WithField("id", e.ID).Warn("journal write failed")
	}
}

// Insert stores e. Recording the same ID twice replaces the earlier row.
func (j *Journal) Insert(ctx context.Context, e http.Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO calls
			(id, method, url, status_code, code, message, outcome, duration_us, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Method, e.URL, e.StatusCode, e.Code, e.Message, string(e.Outcome),
		e.Duration.Microseconds(), e.StartedAt.UnixNano(),
	)
	return errors.Wrap(err, "insert failed")
}

// Recent returns up to limit entries, newest first. A limit below one returns all.
func (j *Journal) Recent(ctx context.Context, limit int) ([]http.Entry, error) {
	query := `SELECT id, method, url, status_code, code, message, outcome, duration_us, started_at
		FROM calls ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	var entries []http.Entry
	for rows.Next() {
		var (
			e          http.Entry
			outcome    string
			durationUs int64
			startedAt  int64
		)
		if err := rows.Scan(&e.ID, &e.Method, &e.URL, &e.StatusCode, &e.Code, &e.Message,
			&outcome, &durationUs, &startedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		e.Outcome = http.Outcome(outcome)
		e.Duration = time.Duration(durationUs) * time.Microsecond
		e.StartedAt = time.Unix(0, startedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entries, nil
}

// Stats counts the recorded calls by outcome.
type Stats struct {
	Total    int       `json:"total"`
	Success  int       `json:"success"`
	Failure  int       `json:"failure"`
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	var (
		s                Stats
		earliest, latest sql.NullInt64
	)
	err := j.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			MIN(started_at),
			MAX(started_at)
		FROM calls`, string(http.OutcomeSuccess)).Scan(&s.Total, &s.Success, &earliest, &latest)
	if err != nil {
		return Stats{}, errors.Wrap(err, "query failed")
	}
	s.Failure = s.Total - s.Success
	if earliest.Valid {
		s.Earliest = time.Unix(0, earliest.Int64)
		s.Latest = time.Unix(0, latest.Int64)
	}
	return s, nil
}
