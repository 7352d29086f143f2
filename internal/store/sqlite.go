package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cleaning_runs (
	id             TEXT PRIMARY KEY,
	file_name      TEXT NOT NULL,
	output_name    TEXT NOT NULL,
	columns        TEXT NOT NULL,
	data_rows      INTEGER NOT NULL,
	valid_rows     INTEGER NOT NULL,
	invalid_rows   INTEGER NOT NULL,
	phones_cleared INTEGER NOT NULL,
	rejections     TEXT NOT NULL DEFAULT '[]',
	output         TEXT NOT NULL,
	client_ip      TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	duration_ms    INTEGER NOT NULL,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cleaning_runs_created_at_idx ON cleaning_runs (created_at DESC);
`

// SQLiteStore keeps runs in a SQLite file. Column lists and rejections are
// stored as JSON text, timestamps as Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" works for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite serializes writers, and each :memory:
	// connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cleaning_runs: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	columns, err := json.Marshal(run.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	rejections, err := marshalRejections(run.Rejections)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cleaning_runs (id, file_name, output_name, columns, data_rows, valid_rows,
			invalid_rows, phones_cleared, rejections, output, client_ip, user_agent, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.FileName, run.OutputName, string(columns),
		run.DataRows, run.ValidRows, run.InvalidRows, run.PhonesCleared,
		string(rejections), run.Output, run.ClientIP, run.UserAgent, run.DurationMS,
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSummary(sc sqliteScanner, extra ...any) (Run, error) {
	var (
		r         Run
		id        string
		columns   string
		createdAt int64
	)
	dest := append([]any{&id, &r.FileName, &r.OutputName, &columns, &r.DataRows, &r.ValidRows,
		&r.InvalidRows, &r.PhonesCleared, &r.ClientIP, &r.UserAgent, &r.DurationMS, &createdAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return r, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return r, fmt.Errorf("parse run id %q: %w", id, err)
	}
	r.ID = parsed
	if err := json.Unmarshal([]byte(columns), &r.Columns); err != nil {
		return r, fmt.Errorf("decode columns: %w", err)
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	return r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+`, rejections, output FROM cleaning_runs WHERE id = ?`, id.String())

	var rejections, output string
	r, err := scanSQLiteSummary(row, &rejections, &output)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.Output = output
	if r.Rejections, err = unmarshalRejections([]byte(rejections)); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM cleaning_runs ORDER BY created_at DESC, id LIMIT ?`,
		limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanSQLiteSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cleaning_runs WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
