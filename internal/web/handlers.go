package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/csvclean/internal/config"
	"github.com/JonMunkholm/csvclean/internal/core"
	"github.com/JonMunkholm/csvclean/internal/export"
	"github.com/JonMunkholm/csvclean/internal/logging"
	"github.com/JonMunkholm/csvclean/internal/store"
	"github.com/JonMunkholm/csvclean/internal/web/templates"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// CleanTextRequest is the JSON body of POST /api/clean/text.
type CleanTextRequest struct {
	FileName string   `json:"file_name" validate:"omitempty,max=255"`
	Columns  []string `json:"columns" validate:"required_without=Preset,dive,required"`
	Preset   string   `json:"preset" validate:"omitempty,max=100"`
	CSV      string   `json:"csv" validate:"required"`
}

// CleanResponse is a run result plus where to fetch its output.
type CleanResponse struct {
	*core.CleanResult
	DownloadURL string `json:"download_url"`
	XLSXURL     string `json:"xlsx_url"`
}

func newCleanResponse(res *core.CleanResult) CleanResponse {
	base := "/api/runs/" + res.RunID.String() + "/download"
	return CleanResponse{CleanResult: res, DownloadURL: base, XLSXURL: base + "?format=xlsx"}
}

// renderHTML writes a templ component with the given status.
func renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "error", err)
	}
}

// GET /
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, r, http.StatusOK, templates.Dashboard(templates.DashboardParams{
		Presets:     s.service.Presets(),
		MaxFileSize: s.cfg.Clean.MaxFileSize,
		Jobs:        s.service.LimiterStatus(),
	}))
}

// GET /runs
func (s *Server) handleRunsPage(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	renderHTML(w, r, http.StatusOK, templates.RunsPage(runs))
}

// POST /api/clean takes a multipart upload: file, columns, preset.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Clean.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(w, r, core.ErrNoInput, http.StatusBadRequest)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := s.service.Clean(withRequestMeta(r.Context(), r), core.CleanRequest{
		FileName: header.Filename,
		Columns:  config.SplitList(r.FormValue("columns")),
		Preset:   strings.TrimSpace(r.FormValue("preset")),
		Body:     file,
		Size:     header.Size,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

// POST /api/clean/text takes a CleanTextRequest.
func (s *Server) handleCleanText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Clean.MaxFileSize+multipartOverhead)

	var req CleanTextRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: malformed JSON: %w", core.ErrInvalidRequest, err), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, r, validationError(err), http.StatusBadRequest)
		return
	}

	res, err := s.service.Clean(withRequestMeta(r.Context(), r), core.CleanRequest{
		FileName: req.FileName,
		Columns:  req.Columns,
		Preset:   req.Preset,
		Body:     strings.NewReader(req.CSV),
		Size:     int64(len(req.CSV)),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

func (s *Server) respondResult(w http.ResponseWriter, r *http.Request, res *core.CleanResult) {
	switch {
	case isHTMX(r):
		renderHTML(w, r, http.StatusOK, templates.ResultPanel(res))
	case wantsHTML(r):
		renderHTML(w, r, http.StatusOK, templates.ResultPage(res))
	default:
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, newCleanResponse(res))
	}
}

// validationError turns validator output into ErrInvalidRequest with one
// detail entry per failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	fields := make(map[string]any, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, after, ok := strings.Cut(field, "."); ok {
			field = after
		}
		fields[field] = fe.Tag()
		names = append(names, field)
	}
	return &detailedError{
		err:     fmt.Errorf("%w: %s", core.ErrInvalidRequest, strings.Join(names, ", ")),
		details: map[string]any{"fields": fields},
	}
}

// GET /api/runs?limit=n
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	render.JSON(w, r, map[string]any{"runs": runs})
}

// GET /api/runs/{runID}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// GET /api/runs/{runID}/download?format=csv|xlsx
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "csv" && format != "xlsx" {
		respondError(w, r, fmt.Errorf("%w: unknown format %q", core.ErrInvalidRequest, format), http.StatusBadRequest)
		return
	}

	run, err := s.service.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if format == "xlsx" {
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, export.SheetName(run.OutputName), core.ParseOutput(run.Output)); err != nil {
			respondError(w, r, fmt.Errorf("export xlsx: %w", err), http.StatusInternalServerError)
			return
		}
		setAttachment(w, export.XLSXName(run.OutputName), export.XLSXContentType)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		buf.WriteTo(w)
		return
	}

	setAttachment(w, run.OutputName, "text/csv; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(run.Output)))
	w.Write([]byte(run.Output))
}

func setAttachment(w http.ResponseWriter, fileName, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
}

// GET /api/presets
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"presets": s.service.Presets()})
}

// GET /api/jobs/status
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.LimiterStatus())
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unavailable"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

const maxListLimit = 500

// parseLimit reads ?limit, falling back to the store default.
func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return store.DefaultListLimit
	}
	return min(n, maxListLimit)
}
