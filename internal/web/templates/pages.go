package templates

import (
	"fmt"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvclean/internal/core"
	"github.com/JonMunkholm/csvclean/internal/store"
)

// DashboardParams feeds the upload form.
type DashboardParams struct {
	Presets     []core.Preset
	MaxFileSize int64
	Jobs        core.LimiterStatus
}

// Dashboard is the upload form. It posts to /api/clean; browsers get the
// result page back, HTMX requests the result panel.
func Dashboard(p DashboardParams) templ.Component {
	return Page("Clean a file", component(func(h *htmlWriter) {
		h.raw(`<section class="card"><h2>Clean a contact CSV</h2>`)
		h.raw(`<form method="post" action="/api/clean" enctype="multipart/form-data" hx-post="/api/clean" hx-target="#result" hx-encoding="multipart/form-data">`)

		h.raw(`<label for="file">CSV file</label><input id="file" name="file" type="file" accept=".csv,text/csv" required>`)
		h.rawf(`<p class="muted">Up to %s.</p>`, formatBytes(p.MaxFileSize))

		h.raw(`<label for="columns">Expected columns</label>`)
		h.raw(`<input id="columns" name="columns" type="text" placeholder="name, email, phone">`)

		if len(p.Presets) > 0 {
			h.raw(`<label for="preset">or a preset</label><select id="preset" name="preset"><option value="">(none)</option>`)
			for _, preset := range p.Presets {
				h.raw(`<option value="`)
				h.text(preset.Name)
				h.raw(`">`)
				h.text(preset.Name + " (" + strings.Join(preset.Columns, ", ") + ")")
				h.raw(`</option>`)
			}
			h.raw(`</select>`)
		}

		h.raw(`<button type="submit">Clean</button></form>`)
		h.rawf(`<p class="muted">%d of %d job slots free.</p>`, p.Jobs.Available, p.Jobs.MaxConcurrent)
		h.raw(`</section><div id="result"></div>`)
	}))
}

// ResultPanel summarises one cleaning run.
func ResultPanel(res *core.CleanResult) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<section class="card"><h2>`)
		h.text(res.OutputName)
		h.raw(`</h2><div class="stats">`)
		stat(h, "data rows", res.DataRows)
		stat(h, "kept", res.ValidRows)
		stat(h, "dropped", res.InvalidRows)
		stat(h, "phones cleared", res.PhonesCleared)
		h.raw(`</div>`)

		id := res.RunID.String()
		h.rawf(`<p><a href="/api/runs/%s/download">Download CSV</a> · <a href="/api/runs/%s/download?format=xlsx">Download XLSX</a></p>`, id, id)

		if len(res.ReasonCounts) > 0 {
			h.raw(`<p class="muted">Dropped: `)
			first := true
			for _, reason := range []core.RejectReason{core.RejectFieldCount, core.RejectInvalidEmail, core.RejectMalformedQuotes} {
				if n := res.ReasonCounts[reason]; n > 0 {
					if !first {
						h.raw(", ")
					}
					first = false
					h.text(fmt.Sprintf("%d %s", n, strings.ReplaceAll(string(reason), "_", " ")))
				}
			}
			h.raw(`</p>`)
		}

		if len(res.Rejections) > 0 {
			h.raw(`<table><thead><tr><th>Line</th><th>Reason</th><th>Row</th></tr></thead><tbody>`)
			for _, rej := range res.Rejections {
				h.rawf(`<tr><td>%d</td><td>`, rej.Line)
				h.text(string(rej.Reason))
				h.raw(`</td><td>`)
				h.text(strings.Join(rej.Fields, ", "))
				h.raw(`</td></tr>`)
			}
			h.raw(`</tbody></table>`)
		}
		h.raw(`</section>`)
	})
}

// ResultPage is ResultPanel as a full page.
func ResultPage(res *core.CleanResult) templ.Component {
	return Page(res.OutputName, ResultPanel(res))
}

// RunsPage lists recent runs.
func RunsPage(runs []store.Run) templ.Component {
	return Page("History", component(func(h *htmlWriter) {
		h.raw(`<section class="card"><h2>Recent runs</h2>`)
		if len(runs) == 0 {
			h.raw(`<p class="muted">No files cleaned yet.</p></section>`)
			return
		}

		h.raw(`<table><thead><tr><th>When</th><th>File</th><th>Columns</th><th>Kept</th><th>Dropped</th><th></th></tr></thead><tbody>`)
		for _, run := range runs {
			h.raw(`<tr><td>`)
			h.text(run.CreatedAt.Local().Format(time.DateTime))
			h.raw(`</td><td>`)
			h.text(run.FileName)
			h.raw(`</td><td>`)
			h.text(strings.Join(run.Columns, ", "))
			h.rawf(`</td><td>%d</td><td>%d</td>`, run.ValidRows, run.InvalidRows)
			h.rawf(`<td><a href="/api/runs/%s/download">csv</a> · <a href="/api/runs/%s/download?format=xlsx">xlsx</a></td></tr>`,
				run.ID, run.ID)
		}
		h.raw(`</tbody></table></section>`)
	}))
}

func stat(h *htmlWriter, label string, n int) {
	h.rawf(`<div><strong>%d</strong>`, n)
	h.text(label)
	h.raw(`</div>`)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
