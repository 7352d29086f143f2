package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "column count",
			err:      &StructureError{Kind: StructureColumnCount, Expected: 3, Found: 2},
			wantCode: "HDR001",
		},
		{
			name:     "wrapped column name",
			err:      fmt.Errorf("clean: %w", &StructureError{Kind: StructureColumnName, Position: 1}),
			wantCode: "HDR002",
		},
		{
			name:     "empty input",
			err:      &StructureError{Kind: StructureEmptyInput, Expected: 1},
			wantCode: "HDR003",
		},
		{
			name:     "no columns",
			err:      &StructureError{Kind: StructureNoColumns},
			wantCode: "HDR004",
		},
		{
			name:     "file too large",
			err:      fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge),
			wantCode: "FILE001",
		},
		{
			name:     "busy",
			err:      ErrTooManyJobs,
			wantCode: "JOB001",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("validate rows: %w", errors.New("context deadline exceeded")),
			wantCode: "JOB003",
		},
		{
			name:     "unknown preset",
			err:      fmt.Errorf("%w: %q", ErrUnknownPreset, "crm"),
			wantCode: "REQ002",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("dial tcp: CONNECTION REFUSED"),
			wantCode: "DB004",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError().Code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_StructureDetail(t *testing.T) {
	msg := MapError(&StructureError{Kind: StructureColumnCount, Expected: 3, Found: 2})

	if !strings.Contains(msg.Message, "expected 3, found 2") {
		t.Errorf("Message = %q, want it to carry the counts", msg.Message)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManyJobs)
	want := "System is busy cleaning other files (Code: JOB001). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrFileTooLarge) {
		t.Error("ErrFileTooLarge should be user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unmatched error should not be user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
}
