package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/csvclean/internal/config"
	"github.com/JonMunkholm/csvclean/internal/metrics"
	"github.com/JonMunkholm/csvclean/internal/store"
)

const contactsCSV = "name,email,phone\n" +
	"Ada,ada@x.con,555-123-4567\n" +
	"Bob,bob@x,5551234567\n" +
	"Cy,cy@y.org,123\n"

func testConfig() *config.Config {
	return &config.Config{
		Clean: config.CleanConfig{
			MaxFileSize:         1 << 20,
			MaxConcurrent:       2,
			MaxWaitTime:         time.Second,
			Timeout:             5 * time.Second,
			ParallelThreshold:   DefaultParallelThreshold,
			RejectionSampleSize: 50,
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config, opts ...ServiceOption) (*Service, *store.MemoryStore) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	st := store.NewMemoryStore()
	svc, err := NewService(st, cfg, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, st
}

func TestService_Clean(t *testing.T) {
	m := metrics.New()
	svc, st := newTestService(t, nil, WithMetrics(m))

	ctx := ContextWithRequestMeta(context.Background(), RequestMeta{IP: "203.0.113.9", UserAgent: "curl/8"})
	res, err := svc.Clean(ctx, CleanRequest{
		FileName: "contacts.csv",
		Columns:  []string{"name", " email ", "phone", ""},
		Body:     strings.NewReader(contactsCSV),
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	if res.OutputName != "cleaned_contacts.csv" {
		t.Errorf("OutputName = %q, want cleaned_contacts.csv", res.OutputName)
	}
	if want := []string{"name", "email", "phone"}; !reflect.DeepEqual(res.Columns, want) {
		t.Errorf("Columns = %q, want %q", res.Columns, want)
	}
	if want := (ColumnRoles{Email: 1, Phone: 2}); res.Roles != want {
		t.Errorf("Roles = %+v, want %+v", res.Roles, want)
	}
	if res.DataRows != 3 || res.ValidRows != 2 || res.InvalidRows != 1 || res.PhonesCleared != 1 {
		t.Errorf("counts = data %d valid %d invalid %d phones %d, want 3 2 1 1",
			res.DataRows, res.ValidRows, res.InvalidRows, res.PhonesCleared)
	}
	if want := map[RejectReason]int{RejectInvalidEmail: 1}; !reflect.DeepEqual(res.ReasonCounts, want) {
		t.Errorf("ReasonCounts = %v, want %v", res.ReasonCounts, want)
	}
	if want := "name,email,phone\nAda,ada@x.com,555-123-4567\nCy,cy@y.org,"; res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
	if got := Serialize(res.Rows); got != res.Output {
		t.Errorf("Serialize(Rows) = %q, want Output %q", got, res.Output)
	}

	run, err := st.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Output != res.Output {
		t.Errorf("stored Output = %q, want %q", run.Output, res.Output)
	}
	if run.OutputName != "cleaned_contacts.csv" {
		t.Errorf("stored OutputName = %q", run.OutputName)
	}
	if run.ClientIP != "203.0.113.9" || run.UserAgent != "curl/8" {
		t.Errorf("stored request meta = %q %q", run.ClientIP, run.UserAgent)
	}
	if len(run.Rejections) != 1 {
		t.Fatalf("stored %d rejections, want 1", len(run.Rejections))
	}
	want := store.RejectedRow{
		Line:   3,
		Reason: "invalid_email",
		Fields: []string{"Bob", "bob@x", "5551234567"},
	}
	if !reflect.DeepEqual(run.Rejections[0], want) {
		t.Errorf("stored rejection = %+v, want %+v", run.Rejections[0], want)
	}

	expected := `
# HELP csvclean_runs_total Cleaning runs by outcome.
# TYPE csvclean_runs_total counter
csvclean_runs_total{outcome="success"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "csvclean_runs_total"); err != nil {
		t.Error(err)
	}
}

func TestService_Clean_StructureErrorStoresNothing(t *testing.T) {
	svc, st := newTestService(t, nil)

	_, err := svc.Clean(context.Background(), CleanRequest{
		FileName: "contacts.csv",
		Columns:  []string{"name", "email"},
		Body:     strings.NewReader(contactsCSV),
	})

	var se *StructureError
	if !errors.As(err, &se) {
		t.Fatalf("want *StructureError, got %v", err)
	}
	if se.Kind != StructureColumnCount {
		t.Errorf("Kind = %v, want %v", se.Kind, StructureColumnCount)
	}
	if code := MapError(err).Code; code != "HDR001" {
		t.Errorf("code = %q, want HDR001", code)
	}

	runs, err := st.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("stored %d runs, want none", len(runs))
	}
}

func TestService_Clean_NoColumns(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Clean(context.Background(), CleanRequest{
		Columns: []string{" ", ""},
		Body:    strings.NewReader(contactsCSV),
	})

	var se *StructureError
	if !errors.As(err, &se) {
		t.Fatalf("want *StructureError, got %v", err)
	}
	if se.Kind != StructureNoColumns {
		t.Errorf("Kind = %v, want %v", se.Kind, StructureNoColumns)
	}
}

func TestService_Clean_Presets(t *testing.T) {
	presets := &config.Presets{
		Columns: map[string][]string{"contacts": {"name", "email", "phone"}},
		Email: config.EmailRulesFile{
			Corrections: map[string]string{".cm": ".com"},
		},
	}
	svc, _ := newTestService(t, nil, WithPresets(presets))
	ctx := context.Background()

	res, err := svc.Clean(ctx, CleanRequest{
		FileName: "p.csv",
		Preset:   "contacts",
		Body:     strings.NewReader("Name,Email,Phone\nAl,al@b.cm,\n"),
	})
	if err != nil {
		t.Fatalf("Clean with preset: %v", err)
	}
	if want := "Name,Email,Phone\nAl,al@b.com,"; res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}

	_, err = svc.Clean(ctx, CleanRequest{Preset: "missing", Body: strings.NewReader("a\n")})
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("unknown preset error = %v, want ErrUnknownPreset", err)
	}
	if code := MapError(err).Code; code != "REQ002" {
		t.Errorf("code = %q, want REQ002", code)
	}

	// Explicit columns win over the preset.
	res, err = svc.Clean(ctx, CleanRequest{
		Columns: []string{"a"},
		Preset:  "missing",
		Body:    strings.NewReader("a\n1\n"),
	})
	if err != nil {
		t.Fatalf("Clean with columns and preset: %v", err)
	}
	if res.ValidRows != 1 {
		t.Errorf("ValidRows = %d, want 1", res.ValidRows)
	}

	want := []Preset{{Name: "contacts", Columns: []string{"name", "email", "phone"}}}
	if got := svc.Presets(); !reflect.DeepEqual(got, want) {
		t.Errorf("Presets() = %+v, want %+v", got, want)
	}
}

func TestService_Clean_InputErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Clean.MaxFileSize = 16
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()
	cols := []string{"name", "email", "phone"}

	if _, err := svc.Clean(ctx, CleanRequest{Columns: cols}); !errors.Is(err, ErrNoInput) {
		t.Errorf("no body error = %v, want ErrNoInput", err)
	}

	_, err := svc.Clean(ctx, CleanRequest{Columns: cols, Body: strings.NewReader("x"), Size: 17})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("declared size error = %v, want ErrFileTooLarge", err)
	}

	_, err = svc.Clean(ctx, CleanRequest{Columns: cols, Body: strings.NewReader(contactsCSV)})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("oversized body error = %v, want ErrFileTooLarge", err)
	}
	if code := MapError(err).Code; code != "FILE001" {
		t.Errorf("code = %q, want FILE001", code)
	}

	if active := svc.LimiterStatus().Active; active != 0 {
		t.Errorf("Active = %d after a failed read, want 0", active)
	}
}

func TestService_Clean_Busy(t *testing.T) {
	cfg := testConfig()
	cfg.Clean.MaxConcurrent = 1
	cfg.Clean.MaxWaitTime = 20 * time.Millisecond
	svc, _ := newTestService(t, cfg)

	if !svc.limiter.TryAcquire() {
		t.Fatal("TryAcquire failed on an idle limiter")
	}
	defer svc.limiter.Release()

	_, err := svc.Clean(context.Background(), CleanRequest{
		Columns: []string{"a"},
		Body:    strings.NewReader("a\n1\n"),
	})
	if !errors.Is(err, ErrTooManyJobs) {
		t.Errorf("Clean error = %v, want ErrTooManyJobs", err)
	}
	want := LimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}
	if got := svc.LimiterStatus(); got != want {
		t.Errorf("LimiterStatus() = %+v, want %+v", got, want)
	}
}

func TestService_Clean_RejectionSample(t *testing.T) {
	cfg := testConfig()
	cfg.Clean.RejectionSampleSize = 1
	svc, _ := newTestService(t, cfg)

	res, err := svc.Clean(context.Background(), CleanRequest{
		Columns: []string{"email"},
		Body:    strings.NewReader("email\nbad\nworse\nok@x.com\n"),
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.InvalidRows != 2 {
		t.Errorf("InvalidRows = %d, want 2", res.InvalidRows)
	}
	if n := res.ReasonCounts[RejectInvalidEmail]; n != 2 {
		t.Errorf("ReasonCounts[invalid_email] = %d, want 2", n)
	}
	if len(res.Rejections) != 1 {
		t.Fatalf("sampled %d rejections, want 1", len(res.Rejections))
	}
	if res.Rejections[0].Line != 2 {
		t.Errorf("Rejections[0].Line = %d, want 2", res.Rejections[0].Line)
	}
}

func TestService_GetAndListRuns(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	res, err := svc.Clean(ctx, CleanRequest{
		FileName: `C:\Users\me\contacts.csv`,
		Columns:  []string{"name", "email", "phone"},
		Body:     strings.NewReader(contactsCSV),
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.FileName != "contacts.csv" {
		t.Errorf("FileName = %q, want contacts.csv", res.FileName)
	}

	run, err := svc.GetRun(ctx, res.RunID.String())
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Output != res.Output {
		t.Errorf("run Output = %q, want %q", run.Output, res.Output)
	}

	_, err = svc.GetRun(ctx, "not-a-uuid")
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("GetRun(bad id) error = %v, want ErrRunNotFound", err)
	}
	if code := MapError(err).Code; code != "RUN001" {
		t.Errorf("code = %q, want RUN001", code)
	}

	runs, err := svc.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("listed %d runs, want 1", len(runs))
	}
	if runs[0].Output != "" {
		t.Error("ListRuns must not carry run output")
	}

	if err := svc.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestService_PruneRuns(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(t, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old := &store.Run{ID: [16]byte{1}, CreatedAt: now.AddDate(0, 0, -31)}
	recent := &store.Run{ID: [16]byte{2}, CreatedAt: now.AddDate(0, 0, -1)}
	for _, r := range []*store.Run{old, recent} {
		if err := st.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	n, err := svc.PruneRuns(ctx, 30)
	if err != nil {
		t.Fatalf("PruneRuns: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d runs, want 1", n)
	}

	if _, err := st.GetRun(ctx, recent.ID); err != nil {
		t.Errorf("recent run was pruned: %v", err)
	}
}

func TestService_RetentionSchedulerStopsOnCancel(t *testing.T) {
	now := time.Now()
	svc, st := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.SaveRun(ctx, &store.Run{ID: [16]byte{9}, CreatedAt: now.AddDate(0, 0, -90)}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(ctx, RetentionConfig{RetentionDays: 30, CheckInterval: time.Hour})
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for {
		runs, _ := st.ListRuns(context.Background(), 10)
		if len(runs) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expired run was not pruned on startup")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestService_WaitForJobs(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := svc.WaitForJobs(ctx); err != nil {
		t.Errorf("WaitForJobs on an idle service: %v", err)
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, testConfig()); err == nil {
		t.Error("NewService(nil store) succeeded")
	}
	if _, err := NewService(store.NewMemoryStore(), nil); err == nil {
		t.Error("NewService(nil config) succeeded")
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"contacts.csv", "cleaned_contacts.csv"},
		{"dir/sub/contacts.csv", "cleaned_contacts.csv"},
		{`C:\tmp\list.csv`, "cleaned_list.csv"},
		{"  spaced.csv ", "cleaned_spaced.csv"},
		{"", "cleaned_upload.csv"},
		{"dir/", "cleaned_upload.csv"},
		{"..", "cleaned_upload.csv"},
	}

	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
