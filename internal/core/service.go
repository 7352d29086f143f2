package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvclean/internal/config"
	"github.com/JonMunkholm/csvclean/internal/logging"
	"github.com/JonMunkholm/csvclean/internal/metrics"
	"github.com/JonMunkholm/csvclean/internal/store"
)

// ErrUnknownPreset is returned when a request names a preset that is not configured.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrInvalidRequest marks requests that are missing required values.
var ErrInvalidRequest = errors.New("invalid request")

// OutputPrefix is prepended to the input's base name to name the cleaned file.
const OutputPrefix = "cleaned_"

const defaultFileName = "upload.csv"

// Service runs cleaning jobs and keeps their history.
type Service struct {
	store    store.Store
	limiter  *JobLimiter
	pipeline *Pipeline
	presets  *config.Presets
	metrics  *metrics.Metrics
	now      func() time.Time

	maxFileSize int64
	timeout     time.Duration
	sampleSize  int
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithPresets supplies column presets and extra email rules.
func WithPresets(p *config.Presets) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.presets = p
		}
	}
}

// WithMetrics records job metrics on m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service over st using the Clean section of cfg.
func NewService(st store.Store, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if st == nil {
		return nil, errors.New("new service: store is required")
	}
	if cfg == nil {
		return nil, errors.New("new service: config is required")
	}

	s := &Service{
		store:       st,
		limiter:     NewJobLimiter(cfg.Clean.MaxConcurrent, cfg.Clean.MaxWaitTime),
		presets:     &config.Presets{},
		now:         time.Now,
		maxFileSize: cfg.Clean.MaxFileSize,
		timeout:     cfg.Clean.Timeout,
		sampleSize:  cfg.Clean.RejectionSampleSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	workers := cfg.Clean.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rules := DefaultEmailRules.Merge(s.presets.Email.AllowedTLDs, s.presets.Email.Corrections)
	s.pipeline = NewPipeline(
		WithEmailRules(rules),
		WithWorkers(workers, cfg.Clean.ParallelThreshold),
	)
	return s, nil
}

// Clean decodes, cleans and records one file.
//
// Header problems come back as *StructureError and nothing is stored.
// ErrTooManyJobs means every job slot stayed busy for the configured wait.
func (s *Service) Clean(ctx context.Context, req CleanRequest) (*CleanResult, error) {
	start := s.now()
	fileName := displayName(req.FileName)
	log := logging.WithFields(ctx, "file", fileName)

	columns, err := s.resolveColumns(req)
	if err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, ErrNoInput
	}
	if s.maxFileSize > 0 && req.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, req.Size, s.maxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyJobs) {
			s.metrics.ObserveRun(metrics.OutcomeBusy, 0)
			log.Warn("clean rejected, all job slots busy", "active", s.limiter.ActiveCount())
		}
		return nil, err
	}
	defer s.limiter.Release()
	s.metrics.JobStarted()
	defer s.metrics.JobFinished()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := ReadInput(req.Body, s.maxFileSize)
	if err != nil {
		s.metrics.ObserveRun(metrics.OutcomeError, s.now().Sub(start))
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	s.metrics.ObserveInput(len(text))

	res, err := s.pipeline.Run(ctx, text, columns)
	if err != nil {
		var se *StructureError
		if errors.As(err, &se) {
			s.metrics.ObserveRun(metrics.OutcomeStructureError, s.now().Sub(start))
			log.Warn("clean rejected", "reason", se.Error())
			return nil, err
		}
		s.metrics.ObserveRun(metrics.OutcomeError, s.now().Sub(start))
		log.Error("clean failed", "error", err)
		return nil, fmt.Errorf("clean %s: %w", fileName, err)
	}

	result := s.buildResult(fileName, columns, res, start)

	meta := RequestMetaFromContext(ctx)
	run := &store.Run{
		ID:            result.RunID,
		FileName:      result.FileName,
		OutputName:    result.OutputName,
		Columns:       result.Columns,
		DataRows:      result.DataRows,
		ValidRows:     result.ValidRows,
		InvalidRows:   result.InvalidRows,
		PhonesCleared: result.PhonesCleared,
		Rejections:    toRejectedRows(result.Rejections),
		Output:        result.Output,
		ClientIP:      meta.IP,
		UserAgent:     meta.UserAgent,
		DurationMS:    result.DurationMS,
		CreatedAt:     result.CreatedAt,
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.metrics.ObserveRun(metrics.OutcomeError, result.Duration)
		log.Error("save run failed", "run_id", result.RunID, "error", err)
		return nil, fmt.Errorf("save run: %w", err)
	}

	reasons := make(map[string]int, len(result.ReasonCounts))
	for reason, n := range result.ReasonCounts {
		reasons[string(reason)] = n
	}
	s.metrics.ObserveRun(metrics.OutcomeSuccess, result.Duration)
	s.metrics.ObserveRows(result.ValidRows, result.InvalidRows, result.PhonesCleared, reasons)

	log.Info("clean completed",
		"run_id", result.RunID,
		"valid_rows", result.ValidRows,
		"invalid_rows", result.InvalidRows,
		"phones_cleared", result.PhonesCleared,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

func (s *Service) buildResult(fileName string, columns []string, res *ParseResult, start time.Time) *CleanResult {
	finished := s.now()
	result := &CleanResult{
		RunID:         uuid.New(),
		FileName:      fileName,
		OutputName:    OutputName(fileName),
		Columns:       columns,
		Roles:         res.Roles,
		DataRows:      res.DataRowCount() + res.InvalidRowCount,
		ValidRows:     res.DataRowCount(),
		InvalidRows:   res.InvalidRowCount,
		PhonesCleared: res.PhonesCleared,
		Duration:      finished.Sub(start),
		CreatedAt:     finished.UTC(),
		Rows:          res.ValidRows,
		Output:        Serialize(res.ValidRows),
	}
	result.DurationMS = result.Duration.Milliseconds()

	if len(res.Rejections) > 0 {
		result.ReasonCounts = make(map[RejectReason]int)
		for _, r := range res.Rejections {
			result.ReasonCounts[r.Reason]++
		}
		n := min(len(res.Rejections), s.sampleSize)
		result.Rejections = res.Rejections[:n:n]
	}
	return result
}

// resolveColumns picks explicit columns over a preset.
func (s *Service) resolveColumns(req CleanRequest) ([]string, error) {
	columns := make([]string, 0, len(req.Columns))
	for _, c := range req.Columns {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	if len(columns) > 0 || req.Preset == "" {
		return columns, nil
	}

	cols, ok := s.presets.Lookup(req.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, req.Preset)
	}
	return cols, nil
}

// GetRun returns a stored run. Malformed IDs are reported as not found.
func (s *Service) GetRun(ctx context.Context, id string) (*store.Run, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", store.ErrRunNotFound, id)
	}
	return s.store.GetRun(ctx, runID)
}

// ListRuns returns recent run summaries, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	return s.store.ListRuns(ctx, limit)
}

// Presets returns the configured presets sorted by name.
func (s *Service) Presets() []Preset {
	names := s.presets.Names()
	out := make([]Preset, 0, len(names))
	for _, name := range names {
		cols, _ := s.presets.Lookup(name)
		out = append(out, Preset{Name: name, Columns: cols})
	}
	return out
}

// LimiterStatus reports job slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForJobs blocks until running jobs finish or ctx ends.
func (s *Service) WaitForJobs(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks the run store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// OutputName names the cleaned file: "cleaned_" plus the input's base name.
func OutputName(fileName string) string {
	return OutputPrefix + displayName(fileName)
}

// displayName reduces a client-supplied name to its base name. Browsers on
// Windows may send a full path with backslashes.
func displayName(fileName string) string {
	name := strings.TrimSpace(fileName)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return defaultFileName
	}
	return filepath.Base(name)
}

func toRejectedRows(rejections []Rejection) []store.RejectedRow {
	if len(rejections) == 0 {
		return nil
	}
	out := make([]store.RejectedRow, len(rejections))
	for i, r := range rejections {
		out[i] = store.RejectedRow{
			Line:   r.Line,
			Reason: string(r.Reason),
			Fields: append([]string(nil), r.Fields...),
		}
	}
	return out
}
