package core

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// CleanRequest is one file to clean.
//
// Columns wins over Preset when both are set. Size is the size declared by
// the client, if known; inputs are capped while reading either way.
type CleanRequest struct {
	FileName string
	Columns  []string
	Preset   string
	Body     io.Reader
	Size     int64
}

// CleanResult summarises a finished run.
type CleanResult struct {
	RunID         uuid.UUID            `json:"run_id"`
	FileName      string               `json:"file_name"`
	OutputName    string               `json:"output_name"`
	Columns       []string             `json:"columns"`
	Roles         ColumnRoles          `json:"roles"`
	DataRows      int                  `json:"data_rows"`
	ValidRows     int                  `json:"valid_rows"`
	InvalidRows   int                  `json:"invalid_rows"`
	PhonesCleared int                  `json:"phones_cleared"`
	ReasonCounts  map[RejectReason]int `json:"reason_counts,omitempty"`
	Rejections    []Rejection          `json:"rejections,omitempty"` // First few only
	Duration      time.Duration        `json:"-"`
	DurationMS    int64                `json:"duration_ms"`
	CreatedAt     time.Time            `json:"created_at"`

	Rows   []Row  `json:"-"` // Cleaned header and rows
	Output string `json:"-"` // Rows serialized as CSV
}

// Preset is a named list of expected columns.
type Preset struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}
