package core

// # Error Codes Reference
//
// Errors shown to operators carry a short code they can quote to support.
//
// # Header Errors (HDR001-HDR099)
//
// Returned as *StructureError before any row is processed. Nothing is written.
//
//	HDR001 - Column count: header has a different number of columns than expected
//	         Action: Check the expected column list against the file's first line
//	HDR002 - Column name: a header name differs from the expected name at a position
//	         Action: Rename the column in the file or fix the expected column list
//	HDR003 - Empty file: the file has no header row
//	         Action: Upload a CSV whose first line holds the column names
//	HDR004 - No columns: no expected columns were given
//	         Action: Enter the expected column names, separated by commas
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large                Patterns: "file too large"
//	FILE004 - No file                       Patterns: "no file provided"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid request                Patterns: "invalid request"
//	REQ002 - Unknown preset                 Patterns: "unknown preset"
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - System busy                    Patterns: "too many concurrent"
//	JOB002 - Request cancelled              Patterns: "context canceled"
//	JOB003 - Request timeout                Patterns: "context deadline exceeded"
//
// # Run History Errors (RUN001-RUN099, DB004-DB006)
//
//	RUN001 - Run not found                  Patterns: "run not found"
//	DB004  - Connection refused             Patterns: "connection refused"
//	DB005  - Connection reset               Patterns: "connection reset"
//	DB006  - Timeout                        Patterns: "timeout"
//
// # Rate Limiting
//
//	RATE001 - Too many requests             Patterns: "rate limit"
//
// # Default (ERR000)
//
// Fallback when nothing matches; check the server logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains, first match
// wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is an error rendered for people rather than logs.
type UserMessage struct {
	Message string // What went wrong
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var structureMessages = map[StructureKind]UserMessage{
	StructureColumnCount: {
		Message: "The file has a different number of columns than expected",
		Action:  "Check the expected column list against the file's first line",
		Code:    "HDR001",
	},
	StructureColumnName: {
		Message: "A column name does not match the expected columns",
		Action:  "Rename the column in the file or fix the expected column list",
		Code:    "HDR002",
	},
	StructureEmptyInput: {
		Message: "The file is empty",
		Action:  "Upload a CSV whose first line holds the column names",
		Code:    "HDR003",
	},
	StructureNoColumns: {
		Message: "No expected columns were given",
		Action:  "Enter the expected column names, separated by commas",
		Code:    "HDR004",
	},
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File and request errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to clean",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is missing required values",
			Action:  "Provide a file name, the CSV content and at least one column",
			Code:    "REQ001",
		},
	},
	{
		pattern: "unknown preset",
		msg: UserMessage{
			Message: "The column preset does not exist",
			Action:  "Pick one of the configured presets or enter the columns by hand",
			Code:    "REQ002",
		},
	},

	// =========================================================================
	// Job errors
	// =========================================================================
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "System is busy cleaning other files",
			Action:  "Please wait a moment and try again",
			Code:    "JOB001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "JOB003",
		},
	},

	// =========================================================================
	// Run history errors
	// =========================================================================
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Cleaning run not found",
			Action:  "The run may have expired. Please clean the file again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the history database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "History database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Rate limiting
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Header problems are recognised by type; everything else by message pattern.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var se *StructureError
	if errors.As(err, &se) {
		if msg, ok := structureMessages[se.Kind]; ok {
			msg.Message = msg.Message + ": " + se.Error()
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
