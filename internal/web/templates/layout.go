// Package templates renders the csvclean HTML pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
header{background:#1f2933;color:#fff;padding:12px 24px;display:flex;gap:24px;align-items:center}
header a{color:#cbd2d9;text-decoration:none}
main{max-width:960px;margin:24px auto;padding:0 24px}
.card{background:#fff;border:1px solid #e4e7eb;border-radius:6px;padding:16px 20px;margin-bottom:16px}
label{display:block;font-weight:600;margin:12px 0 4px}
input[type=text],select{width:100%;padding:6px 8px;box-sizing:border-box}
button{margin-top:16px;padding:8px 16px;background:#2563eb;color:#fff;border:0;border-radius:4px}
table{width:100%;border-collapse:collapse}
th,td{text-align:left;padding:6px 8px;border-bottom:1px solid #e4e7eb;font-size:14px}
.muted{color:#7b8794;font-size:13px}
.alert{border-left:4px solid #dc2626;background:#fef2f2;padding:12px 16px;border-radius:4px}
.stats{display:flex;gap:24px}
.stats div{font-size:13px}.stats strong{display:block;font-size:22px}
`

// htmlWriter writes markup and keeps the first error.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

// component adapts a writer callback to templ.Component.
func component(fn func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		fn(h)
		return h.err
	})
}

// Page wraps body in the shared layout.
func Page(title string, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · csvclean</title><style>`)
		h.raw(styles)
		h.raw(`</style></head><body>`)
		h.raw(`<header><strong>csvclean</strong><a href="/">Clean a file</a><a href="/runs">History</a></header>`)
		h.raw(`<main>`)
		h.render(body)
		h.raw(`</main></body></html>`)
	})
}

// ErrorAlert is the error fragment returned to HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		if code != "" {
			h.raw(`<p class="muted">Code: `)
			h.text(code)
			h.raw(`</p>`)
		}
		h.raw(`</div>`)
	})
}

// ErrorPage is a full page around ErrorAlert.
func ErrorPage(message, action, code string) templ.Component {
	return Page("Error", ErrorAlert(message, action, code))
}
