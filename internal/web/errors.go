package web

// Errors are logged with full detail and the request ID, then answered with
// the catalogue message from core.MapError in the shape the client expects:
// an alert fragment for HTMX, a page for browsers, JSON for everyone else.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/csvclean/internal/core"
	"github.com/JonMunkholm/csvclean/internal/logging"
	"github.com/JonMunkholm/csvclean/internal/store"
	"github.com/JonMunkholm/csvclean/internal/web/templates"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Action  string         `json:"action,omitempty"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// detailedError carries per-field details for the JSON response.
type detailedError struct {
	err     error
	details map[string]any
}

func (e *detailedError) Error() string { return e.err.Error() }
func (e *detailedError) Unwrap() error { return e.err }

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var se *core.StructureError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyJobs):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnknownPreset),
		errors.Is(err, core.ErrInvalidRequest),
		errors.Is(err, core.ErrNoInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorDetails returns machine-readable context for err, if any.
func errorDetails(err error) map[string]any {
	var se *core.StructureError
	if errors.As(err, &se) {
		d := map[string]any{"kind": se.Kind.String()}
		switch se.Kind {
		case core.StructureColumnCount:
			d["expected"] = se.Expected
			d["found"] = se.Found
		case core.StructureColumnName:
			d["position"] = se.Position
			d["expected_name"] = se.ExpectedName
			d["found_name"] = se.FoundName
		case core.StructureEmptyInput:
			d["expected"] = se.Expected
		}
		return d
	}
	var de *detailedError
	if errors.As(err, &de) {
		return de.details
	}
	return nil
}

// respondError logs err and writes the mapped user message with status.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	switch {
	case isHTMX(r):
		// HTMX skips swapping non-2xx responses unless told otherwise.
		w.Header().Set("HX-Retarget", "#result")
		w.Header().Set("HX-Reswap", "innerHTML")
		renderHTML(w, r, status, templates.ErrorAlert(msg.Message, msg.Action, msg.Code))
	case wantsHTML(r):
		renderHTML(w, r, status, templates.ErrorPage(msg.Message, msg.Action, msg.Code))
	default:
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Error:   http.StatusText(status),
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
			Details: errorDetails(err),
		})
	}
}

// respondServiceError picks the status from err itself.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsHTML is true for browser navigations and plain form posts.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return false
	}
	return strings.Contains(accept, "text/html")
}
