// Package store persists the history of cleaning runs.
//
// Three backends share the Store interface: an in-process map for
// development and tests, PostgreSQL through pgxpool, and SQLite through the
// pure-Go modernc driver. Open picks one from a URL.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit applies when ListRuns is called with a non-positive limit.
const DefaultListLimit = 50

// Run is one completed cleaning job.
type Run struct {
	ID            uuid.UUID     `json:"id"`
	FileName      string        `json:"file_name"`
	OutputName    string        `json:"output_name"`
	Columns       []string      `json:"columns"`
	DataRows      int           `json:"data_rows"`
	ValidRows     int           `json:"valid_rows"`
	InvalidRows   int           `json:"invalid_rows"`
	PhonesCleared int           `json:"phones_cleared"`
	Rejections    []RejectedRow `json:"rejections,omitempty"`
	Output        string        `json:"-"`
	ClientIP      string        `json:"client_ip,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	DurationMS    int64         `json:"duration_ms"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RejectedRow is a sample of a row that did not make it into the output.
type RejectedRow struct {
	Line   int      `json:"line"`
	Reason string   `json:"reason"`
	Fields []string `json:"fields"`
}

// Store is run-history persistence.
//
// ListRuns returns summaries, newest first: Output and Rejections are left
// empty. GetRun returns the full run.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// PoolConfig sizes connection pools for the SQL backends.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Kind names a backend.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// KindOf reports which backend a URL selects.
func KindOf(url string) Kind {
	lower := strings.ToLower(strings.TrimSpace(url))
	switch {
	case lower == "" || lower == "memory":
		return KindMemory
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return KindPostgres
	default:
		return KindSQLite
	}
}

// Open connects to the backend named by url:
//
//	"" or "memory"                in-process map
//	postgres://... postgresql://  PostgreSQL
//	sqlite:path, file:path,
//	*.db, *.sqlite                SQLite
func Open(ctx context.Context, url string, pool PoolConfig) (Store, error) {
	switch KindOf(url) {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindPostgres:
		return OpenPostgres(ctx, url, pool)
	default:
		if !isSQLiteURL(url) {
			return nil, errors.New("unsupported database url: expected memory, postgres:// or a sqlite path")
		}
		return OpenSQLite(ctx, sqlitePath(url))
	}
}

func isSQLiteURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "sqlite:") ||
		strings.HasPrefix(lower, "file:") ||
		strings.HasSuffix(lower, ".db") ||
		strings.HasSuffix(lower, ".sqlite")
}

// sqlitePath strips the sqlite: scheme; file: URIs go to the driver as is.
func sqlitePath(url string) string {
	if len(url) >= len("sqlite:") && strings.EqualFold(url[:len("sqlite:")], "sqlite:") {
		return strings.TrimPrefix(url[len("sqlite:"):], "//")
	}
	return url
}

func summary(r Run) Run {
	r.Output = ""
	r.Rejections = nil
	r.Columns = append([]string(nil), r.Columns...)
	return r
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
