package core

// pipeline.go ties the stages together:
//
//	text -> TokenizeRecords -> header check -> RowValidator (per row) -> ParseResult
//
// The pipeline is the only stage that knows about the expected columns. It
// fails fast with a *StructureError when the header does not match them and
// otherwise never fails: bad rows are counted, not returned as errors.

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// StructureKind identifies which header check failed.
type StructureKind int

const (
	StructureNoColumns StructureKind = iota + 1
	StructureEmptyInput
	StructureColumnCount
	StructureColumnName
)

func (k StructureKind) String() string {
	switch k {
	case StructureNoColumns:
		return "no_columns"
	case StructureEmptyInput:
		return "empty_input"
	case StructureColumnCount:
		return "column_count"
	case StructureColumnName:
		return "column_name"
	default:
		return "unknown"
	}
}

// StructureError reports input whose header does not match the expected
// columns. No rows are processed when it is returned.
type StructureError struct {
	Kind     StructureKind
	Expected int // Expected column count
	Found    int // Actual column count

	Position     int    // 1-based column position of a name mismatch
	ExpectedName string // Expected column name at Position
	FoundName    string // Actual header value at Position
}

func (e *StructureError) Error() string {
	switch e.Kind {
	case StructureNoColumns:
		return "no expected columns provided"
	case StructureEmptyInput:
		return fmt.Sprintf("empty file: expected a header with %d columns", e.Expected)
	case StructureColumnCount:
		return fmt.Sprintf("column count mismatch: expected %d, found %d", e.Expected, e.Found)
	case StructureColumnName:
		return fmt.Sprintf("column name mismatch at position %d: expected %q, found %q",
			e.Position, e.ExpectedName, e.FoundName)
	default:
		return "invalid csv structure"
	}
}

// Rejection describes a dropped data row.
type Rejection struct {
	Record int          `json:"record"` // 1-based data row index (header excluded)
	Line   int          `json:"line"`   // 1-based physical line the row started on
	Reason RejectReason `json:"reason"`
	Fields Row          `json:"fields"` // Fields as tokenized, before cleaning
}

// ParseResult is the outcome of a pipeline run.
type ParseResult struct {
	ValidRows       []Row // Cleaned header first, then accepted rows in input order
	InvalidRowCount int
	Rejections      []Rejection
	PhonesCleared   int
	Roles           ColumnRoles
}

// DataRowCount returns the number of accepted rows, excluding the header.
func (r *ParseResult) DataRowCount() int {
	if len(r.ValidRows) == 0 {
		return 0
	}
	return len(r.ValidRows) - 1
}

// DefaultParallelThreshold is the data row count at which validation is
// spread across workers.
const DefaultParallelThreshold = 5000

// Pipeline runs the cleaning stages with a fixed configuration.
// It is immutable after construction and safe for concurrent use.
type Pipeline struct {
	rules     *EmailRules
	hints     ColumnHints
	workers   int
	threshold int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEmailRules replaces the TLD allow-list and typo corrections.
func WithEmailRules(rules *EmailRules) PipelineOption {
	return func(p *Pipeline) {
		if rules != nil {
			p.rules = rules
		}
	}
}

// WithColumnHints replaces the email/phone column name heuristics.
func WithColumnHints(hints ColumnHints) PipelineOption {
	return func(p *Pipeline) {
		p.hints = hints
	}
}

// WithWorkers validates rows on up to n goroutines once the data has at least
// threshold rows. n <= 1 keeps validation sequential.
func WithWorkers(n, threshold int) PipelineOption {
	return func(p *Pipeline) {
		p.workers = n
		if threshold > 0 {
			p.threshold = threshold
		}
	}
}

// NewPipeline creates a pipeline with default tables and sequential validation.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rules:     DefaultEmailRules,
		hints:     DefaultColumnHints,
		workers:   1,
		threshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultPipeline = NewPipeline()

// Run cleans text against the expected columns using the default pipeline.
func Run(text string, columns []string) (*ParseResult, error) {
	return defaultPipeline.Run(context.Background(), text, columns)
}

// Run cleans text against the expected columns. It returns a *StructureError
// when the header is missing or does not match, or ctx's error if ctx is
// cancelled while rows are validated.
func (p *Pipeline) Run(ctx context.Context, text string, columns []string) (*ParseResult, error) {
	if len(columns) == 0 {
		return nil, &StructureError{Kind: StructureNoColumns}
	}
	if isBlank(text) {
		return nil, &StructureError{Kind: StructureEmptyInput, Expected: len(columns)}
	}

	records := TokenizeRecords(text)
	if len(records) == 0 {
		return nil, &StructureError{Kind: StructureEmptyInput, Expected: len(columns)}
	}

	header := CleanRow(records[0].Fields)
	if err := ValidateHeader(header, columns); err != nil {
		return nil, err
	}

	roles := p.Roles(columns)
	validator := NewRowValidator(len(columns), roles, p.rules)

	data := records[1:]
	results, err := p.validateAll(ctx, validator, data)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{
		ValidRows: make([]Row, 0, len(data)+1),
		Roles:     roles,
	}
	res.ValidRows = append(res.ValidRows, header)

	for i, r := range results {
		if !r.Accepted() {
			res.InvalidRowCount++
			res.Rejections = append(res.Rejections, Rejection{
				Record: i + 1,
				Line:   data[i].Line,
				Reason: r.Reason,
				Fields: data[i].Fields,
			})
			continue
		}
		if r.PhoneCleared {
			res.PhonesCleared++
		}
		res.ValidRows = append(res.ValidRows, r.Row)
	}

	return res, nil
}

// validateAll runs the validator over every record. Results are indexed by
// record position so parallel runs keep input order.
func (p *Pipeline) validateAll(ctx context.Context, v *RowValidator, data []Record) ([]RowResult, error) {
	results := make([]RowResult, len(data))

	if p.workers <= 1 || len(data) < p.threshold {
		for i, rec := range data {
			if i%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("validate rows: %w", err)
				}
			}
			results[i] = v.Validate(rec.Fields)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	chunk := (len(data) + p.workers - 1) / p.workers
	for start := 0; start < len(data); start += chunk {
		start, end := start, min(start+chunk, len(data))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%contextCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				results[i] = v.Validate(data[i].Fields)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validate rows: %w", err)
	}
	return results, nil
}

// contextCheckInterval is how often, in rows, validation checks for cancellation.
const contextCheckInterval = 100

// ValidateHeader checks a cleaned header row against the expected columns:
// same count, and the same names position by position ignoring case.
func ValidateHeader(header Row, columns []string) error {
	if len(header) != len(columns) {
		return &StructureError{
			Kind:     StructureColumnCount,
			Expected: len(columns),
			Found:    len(header),
		}
	}

	for i, want := range columns {
		want = strings.TrimSpace(want)
		if !strings.EqualFold(header[i], want) {
			return &StructureError{
				Kind:         StructureColumnName,
				Expected:     len(columns),
				Found:        len(header),
				Position:     i + 1,
				ExpectedName: want,
				FoundName:    header[i],
			}
		}
	}

	return nil
}

// Roles locates the email and phone columns by name.
func (p *Pipeline) Roles(columns []string) ColumnRoles {
	return ColumnRoles{
		Email: findColumn(columns, p.hints.Email),
		Phone: findColumn(columns, p.hints.Phone),
	}
}

// DetectRoles locates the email and phone columns using DefaultColumnHints.
func DetectRoles(columns []string) ColumnRoles {
	return defaultPipeline.Roles(columns)
}

// findColumn returns the index of the first column containing any of the
// hints, or NoColumn.
func findColumn(columns []string, hints []string) int {
	for i, col := range columns {
		name := strings.ToLower(col)
		for _, h := range hints {
			if h != "" && strings.Contains(name, strings.ToLower(h)) {
				return i
			}
		}
	}
	return NoColumn
}

func isBlank(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}
