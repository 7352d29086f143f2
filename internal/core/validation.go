package core

// validation.go decides, row by row, whether tokenized data is kept.
//
// A row goes through three gates:
//  1. Shape: it must have exactly as many fields as expected columns
//  2. Domain: the email column (if any) must hold a valid address after typo
//     repair; an invalid phone (if any) is blanked rather than rejected
//  3. Quoting: cleaned fields must not carry unbalanced or misplaced quotes
//
// Rejection is an ordinary outcome, not an error. The caller counts it.

import "strings"

// NoColumn marks a role (email, phone) that no expected column fills.
const NoColumn = -1

// ColumnRoles holds the zero-based positions of the email and phone columns.
type ColumnRoles struct {
	Email int `json:"email"`
	Phone int `json:"phone"`
}

// RejectReason says why a row was dropped. Empty means accepted.
type RejectReason string

const (
	RejectFieldCount      RejectReason = "field_count"
	RejectInvalidEmail    RejectReason = "invalid_email"
	RejectMalformedQuotes RejectReason = "malformed_quotes"
)

// RowResult is the outcome of validating one row.
type RowResult struct {
	Row          Row          // Cleaned row; nil when rejected
	Reason       RejectReason // Empty when accepted
	PhoneCleared bool         // The phone field was blanked
}

// Accepted reports whether the row is kept.
func (r RowResult) Accepted() bool {
	return r.Reason == ""
}

func rejected(reason RejectReason) RowResult {
	return RowResult{Reason: reason}
}

// RowValidator validates data rows against a fixed width and column roles.
// It holds no per-row state and is safe for concurrent use.
type RowValidator struct {
	width int
	roles ColumnRoles
	rules *EmailRules
}

// NewRowValidator creates a validator. A nil rules uses DefaultEmailRules.
func NewRowValidator(width int, roles ColumnRoles, rules *EmailRules) *RowValidator {
	if rules == nil {
		rules = DefaultEmailRules
	}
	return &RowValidator{
		width: width,
		roles: roles,
		rules: rules,
	}
}

// Validate cleans row and returns the kept row or the reason it was dropped.
// The input row is not modified.
func (v *RowValidator) Validate(row Row) RowResult {
	if len(row) != v.width {
		return rejected(RejectFieldCount)
	}

	cleaned := CleanRow(row)
	result := RowResult{}

	if i := v.roles.Email; i >= 0 && i < len(cleaned) {
		cleaned[i] = v.rules.Normalize(cleaned[i])
		if !IsValidEmail(cleaned[i]) {
			return rejected(RejectInvalidEmail)
		}
	}

	// Phone is optional: bad data is dropped, the row is kept.
	if i := v.roles.Phone; i >= 0 && i < len(cleaned) {
		if strings.TrimSpace(cleaned[i]) != "" && !IsValidPhoneNumber(cleaned[i]) {
			cleaned[i] = ""
			result.PhoneCleared = true
		}
	}

	for _, f := range cleaned {
		if hasMalformedQuotes(f) {
			return rejected(RejectMalformedQuotes)
		}
	}

	result.Row = cleaned
	return result
}

// hasMalformedQuotes reports quoting damage that CleanField could not repair:
// an odd number of unescaped quotes, a leading comma followed by a quote, or
// a quote followed by a comma.
func hasMalformedQuotes(f string) bool {
	if strings.Count(strings.ReplaceAll(f, `""`, ""), `"`)%2 != 0 {
		return true
	}

	if strings.HasPrefix(f, ",") && strings.Contains(f[1:], `"`) {
		return true
	}

	if q := strings.IndexByte(f, '"'); q >= 0 && strings.Contains(f[q+1:], ",") {
		return true
	}

	return false
}
