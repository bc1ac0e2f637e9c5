// Package server exposes the workspace over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/local/pagedeck/internal/delivery"
	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/filetype"
	"github.com/local/pagedeck/internal/logger"
	"github.com/local/pagedeck/internal/metrics"
	"github.com/local/pagedeck/internal/session"
	"github.com/local/pagedeck/internal/statuscheck"
	"github.com/local/pagedeck/internal/thumbnail"
	"github.com/local/pagedeck/internal/workspace"
)

type Options struct {
	// DefaultMode is used when an export request does not name a mode.
	DefaultMode export.Mode
	MaxUploadMB int
	// Checker backs GET /ready; without it /ready always reports ready.
	Checker *statuscheck.Checker
}

type Server struct {
	ws   *workspace.Workspace
	opts Options
}

func New(ws *workspace.Workspace, opts Options) *Server {
	if opts.DefaultMode == "" {
		opts.DefaultMode = export.ModeArchive
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 200
	}
	if opts.Checker == nil {
		opts.Checker = statuscheck.New(statuscheck.Options{})
	}
	return &Server{ws: ws, opts: opts}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /session/upload", s.handleUpload)
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("GET /session/thumbnails/{document}/{pageID}", s.handleThumbnail)
	mux.HandleFunc("POST /session/toggle", s.handleToggle)
	mux.HandleFunc("POST /session/move", s.handleMove)
	mux.HandleFunc("POST /session/reorder", s.handleReorder)
	mux.HandleFunc("POST /session/range", s.handleRange)
	mux.HandleFunc("POST /session/export", s.handleExport)
	mux.HandleFunc("GET /session/export/status", s.handleExportStatus)
	mux.HandleFunc("POST /session/reset", s.handleReset)
}

// Handler returns a mux with every route registered and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return logRequests(mux)
}

type documentView struct {
	Name  string         `json:"name"`
	Size  int64          `json:"size"`
	Pages []session.Page `json:"pages"`
	Kept  int            `json:"kept"`
}

type sessionView struct {
	SessionID  string             `json:"session_id"`
	Epoch      uint64             `json:"epoch"`
	CreatedAt  time.Time          `json:"created_at"`
	Documents  []documentView     `json:"documents"`
	Progress   thumbnail.Progress `json:"progress"`
	ExportBusy bool               `json:"export_busy"`
}

func (s *Server) view() sessionView {
	snap := s.ws.Snapshot()
	v := sessionView{
		SessionID:  snap.ID,
		Epoch:      snap.Epoch,
		CreatedAt:  snap.CreatedAt,
		Documents:  make([]documentView, 0, len(snap.Documents)),
		Progress:   s.ws.Progress(),
		ExportBusy: s.ws.ExportBusy(),
	}
	for _, d := range snap.Documents {
		v.Documents = append(v.Documents, documentView{Name: d.Name, Size: d.Size, Pages: snap.PagesOf(d.Name), Kept: snap.KeptPages(d.Name)})
	}
	return v
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "missing files", http.StatusBadRequest)
		return
	}
	uploads := make([]filetype.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "cannot read upload", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "cannot read upload", http.StatusBadRequest)
			return
		}
		uploads = append(uploads, filetype.Upload{Name: fh.Filename, MediaType: fh.Header.Get("Content-Type"), Data: data})
	}

	res, err := s.ws.Load(uploads)
	if errors.Is(err, workspace.ErrNoDocuments) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": err.Error(), "rejected": res.Rejected})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"session_id": res.Session.ID, "accepted": res.Accepted, "rejected": res.Rejected})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	data, mediaType, err := s.ws.Thumbnail(r.Context(), r.PathValue("document"), r.PathValue("pageID"))
	if err != nil {
		http.Error(w, "thumbnail not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}

type toggleReq struct {
	Document      string `json:"document"`
	OriginalIndex int    `json:"original_index"`
	Deleted       *bool  `json:"deleted"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleReq
	if !decode(w, r, &req) {
		return
	}
	var ok bool
	if req.Deleted != nil {
		ok = s.ws.SetDeleted(req.Document, req.OriginalIndex, *req.Deleted)
	} else {
		ok = s.ws.Toggle(req.Document, req.OriginalIndex)
	}
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.view())
}

type moveReq struct {
	Document string `json:"document"`
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if !decode(w, r, &req) {
		return
	}
	moved := s.ws.Move(req.Document, req.FromID, req.ToID)
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "session": s.view()})
}

type reorderReq struct {
	Document string `json:"document"`
	From     int    `json:"from"`
	To       int    `json:"to"`
}

// handleReorder moves a page between 0-based positions of the display order.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderReq
	if !decode(w, r, &req) {
		return
	}
	switch err := s.ws.Reorder(req.Document, req.From, req.To); {
	case errors.Is(err, session.ErrUnknownDocument):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, session.ErrPositionOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.view())
}

type rangeReq struct {
	Expression string `json:"expression"`
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	var req rangeReq
	if !decode(w, r, &req) {
		return
	}
	set, changed := s.ws.ApplyRange(req.Expression)
	writeJSON(w, http.StatusOK, map[string]any{"pages": set.String(), "changed": changed, "session": s.view()})
}

type exportReq struct {
	Mode string `json:"mode"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportReq
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	mode := s.opts.DefaultMode
	if req.Mode != "" {
		m, err := export.ParseMode(req.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = m
	}

	// archives are streamed back to the caller instead of the configured target
	var to delivery.Deliverer
	var collected delivery.Collector
	if mode == export.ModeArchive {
		to = &collected
	}

	report, err := s.ws.Export(r.Context(), mode, to)
	switch {
	case errors.Is(err, export.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, export.ErrNothingToExport):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		lg := logger.Component("http")
		lg.Error().Err(err).Str("mode", string(mode)).Msg("export failed")
		if report != nil {
			writeJSON(w, http.StatusBadGateway, report)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if mode == export.ModeArchive {
		files := collected.Files()
		if len(files) == 0 {
			writeJSON(w, http.StatusUnprocessableEntity, report)
			return
		}
		arch := files[len(files)-1]
		w.Header().Set("Content-Type", arch.MediaType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", arch.Name))
		w.Header().Set("X-Export-Id", report.ID)
		w.Header().Set("X-Export-Failures", fmt.Sprint(len(report.Failures)))
		_, _ = w.Write(arch.Data)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	st, ok, err := s.ws.ExportStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"state": "none", "busy": s.ws.ExportBusy()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	sum := s.opts.Checker.Summary(r.Context())
	code := http.StatusOK
	if !sum.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, sum)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ws.Reset()
	writeJSON(w, http.StatusOK, s.view())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		lg := logger.Component("http")
		lg.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.code).Dur("took", time.Since(start)).Msg("http request")
	})
}
