package templates

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvclean/internal/core"
	"github.com/JonMunkholm/csvclean/internal/store"
)

func TestErrorAlert_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert(`<script>x</script>`, "Try again", "HDR001").Render(context.Background(), &buf))

	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Code: HDR001")
}

func TestDashboard(t *testing.T) {
	var buf bytes.Buffer
	err := Dashboard(DashboardParams{
		Presets:     []core.Preset{{Name: "contacts", Columns: []string{"name", "email"}}},
		MaxFileSize: 50 << 20,
		Jobs:        core.LimiterStatus{Available: 4, MaxConcurrent: 5},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `action="/api/clean"`)
	assert.Contains(t, out, `<option value="contacts">contacts (name, email)</option>`)
	assert.Contains(t, out, "Up to 50.0 MB.")
	assert.Contains(t, out, "4 of 5 job slots free.")
}

func TestResultPanel(t *testing.T) {
	id := uuid.New()
	var buf bytes.Buffer
	err := ResultPanel(&core.CleanResult{
		RunID:        id,
		OutputName:   "cleaned_a.csv",
		DataRows:     3,
		ValidRows:    2,
		InvalidRows:  1,
		ReasonCounts: map[core.RejectReason]int{core.RejectInvalidEmail: 1},
		Rejections:   []core.Rejection{{Record: 2, Line: 3, Reason: core.RejectInvalidEmail, Fields: core.Row{"Bob", "<b>"}}},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "cleaned_a.csv")
	assert.Contains(t, out, "/api/runs/"+id.String()+"/download?format=xlsx")
	assert.Contains(t, out, "1 invalid email")
	assert.Contains(t, out, "Bob, &lt;b&gt;")
}

func TestRunsPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunsPage(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No files cleaned yet.")

	buf.Reset()
	runs := []store.Run{{
		ID:        uuid.New(),
		FileName:  "leads.csv",
		Columns:   []string{"name", "email"},
		ValidRows: 10,
		CreatedAt: time.Now(),
	}}
	require.NoError(t, RunsPage(runs).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "leads.csv")
	assert.Contains(t, buf.String(), "<td>10</td>")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "50.0 MB", formatBytes(50<<20))
}
