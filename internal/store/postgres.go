package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cleaning_runs (
	id             UUID PRIMARY KEY,
	file_name      TEXT NOT NULL,
	output_name    TEXT NOT NULL,
	columns        TEXT[] NOT NULL,
	data_rows      INTEGER NOT NULL,
	valid_rows     INTEGER NOT NULL,
	invalid_rows   INTEGER NOT NULL,
	phones_cleared INTEGER NOT NULL,
	rejections     JSONB NOT NULL DEFAULT '[]',
	output         TEXT NOT NULL,
	client_ip      TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	duration_ms    BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cleaning_runs_created_at_idx ON cleaning_runs (created_at DESC);
`

const summaryColumns = `id, file_name, output_name, columns, data_rows, valid_rows,
	invalid_rows, phones_cleared, client_ip, user_agent, duration_ms, created_at`

// PostgresStore keeps runs in the cleaning_runs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, verifies the connection and creates the schema.
func OpenPostgres(ctx context.Context, url string, cfg PoolConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool. Call Migrate before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the cleaning_runs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create cleaning_runs: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) error {
	rejections, err := marshalRejections(run.Rejections)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO cleaning_runs (id, file_name, output_name, columns, data_rows, valid_rows,
			invalid_rows, phones_cleared, rejections, output, client_ip, user_agent, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		toPgUUID(run.ID), run.FileName, run.OutputName, run.Columns,
		run.DataRows, run.ValidRows, run.InvalidRows, run.PhonesCleared,
		rejections, run.Output, run.ClientIP, run.UserAgent, run.DurationMS,
		pgtype.Timestamptz{Time: run.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+summaryColumns+`, rejections, output FROM cleaning_runs WHERE id = $1`,
		toPgUUID(id))

	var (
		r          Run
		pgID       pgtype.UUID
		rejections []byte
	)
	err := row.Scan(&pgID, &r.FileName, &r.OutputName, &r.Columns, &r.DataRows, &r.ValidRows,
		&r.InvalidRows, &r.PhonesCleared, &r.ClientIP, &r.UserAgent, &r.DurationMS, &r.CreatedAt,
		&rejections, &r.Output)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.ID = uuid.UUID(pgID.Bytes)
	if r.Rejections, err = unmarshalRejections(rejections); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+summaryColumns+` FROM cleaning_runs ORDER BY created_at DESC, id LIMIT $1`,
		limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var (
			r    Run
			pgID pgtype.UUID
		)
		err := row.Scan(&pgID, &r.FileName, &r.OutputName, &r.Columns, &r.DataRows, &r.ValidRows,
			&r.InvalidRows, &r.PhonesCleared, &r.ClientIP, &r.UserAgent, &r.DurationMS, &r.CreatedAt)
		r.ID = uuid.UUID(pgID.Bytes)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *PostgresStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cleaning_runs WHERE created_at < $1`,
		pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// marshalRejections always yields a JSON array so the column never holds null.
func marshalRejections(rejections []RejectedRow) ([]byte, error) {
	if rejections == nil {
		rejections = []RejectedRow{}
	}
	data, err := json.Marshal(rejections)
	if err != nil {
		return nil, fmt.Errorf("encode rejections: %w", err)
	}
	return data, nil
}

func unmarshalRejections(data []byte) ([]RejectedRow, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []RejectedRow
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode rejections: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
