package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/history"
	"tonearm/internal/jobs"
	"tonearm/internal/logging"
	"tonearm/internal/services/ffmpeg"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	streamInterval time.Duration

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	streamInterval := time.Duration(cfg.Workflow.StreamIntervalSecs) * time.Second
	if streamInterval <= 0 {
		streamInterval = time.Second
	}

	srv := &apiServer{
		bind:           bind,
		logger:         logger,
		daemon:         d,
		streamInterval: streamInterval,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/jobs/", s.handleJob)
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/download/", s.handleDownload)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type createJobResponse struct {
	ID     string      `json:"id"`
	Status jobs.Status `json:"status"`
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req jobs.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		s.writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	if !ffmpeg.SupportedFormat(req.Format) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", req.Format))
		return
	}

	job := s.daemon.Submit(req)
	s.log().Info("job accepted",
		logging.String("job_id", job.ID),
		logging.String("format", req.Format),
		logging.Bool("playlist", req.IsPlaylist))
	s.writeJSON(w, http.StatusAccepted, createJobResponse{ID: job.ID, Status: job.Status()})
}

// handleJob routes /api/jobs/{id}, /api/jobs/{id}/stream, and
// /api/jobs/{id}/cancel.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job := s.daemon.store.Get(id)
		if job == nil {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeJSON(w, http.StatusOK, job.Snapshot())
	case "stream":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.streamJob(w, r, id)
	case "cancel":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job, found := s.daemon.CancelJob(id)
		if !found {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeJSON(w, http.StatusOK, job.Snapshot())
	default:
		s.writeError(w, http.StatusNotFound, "job not found")
	}
}

// streamJob emits the job snapshot as a server-sent event at the configured
// cadence, closing once the job reaches a terminal state.
func (s *apiServer) streamJob(w http.ResponseWriter, r *http.Request, id string) {
	job := s.daemon.store.Get(id)
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		snap := job.Snapshot()
		payload, err := json.Marshal(snap)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
		if snap.Status.IsTerminal() {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

type previewRequest struct {
	URL      string `json:"url"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type previewResponse struct {
	Playlist previewPlaylist      `json:"playlist"`
	Page     int                  `json:"page"`
	Items    []jobs.PlaylistEntry `json:"items"`
}

type previewPlaylist struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 25
	}

	listing, err := s.daemon.listingPage(r.Context(), req.URL, req.Page, req.PageSize)
	if err != nil {
		s.log().Warn("preview listing failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "listing extraction failed")
		return
	}

	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	var items []jobs.PlaylistEntry
	for _, entry := range listing.Entries {
		if entry.Index > start && entry.Index <= end {
			items = append(items, entry)
		}
	}
	s.writeJSON(w, http.StatusOK, previewResponse{
		Playlist: previewPlaylist{Title: listing.Title, Count: listing.Count},
		Page:     req.Page,
		Items:    items,
	})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.history == nil {
		s.writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	entries, err := s.daemon.history.Recent(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleDownload serves completed output and archive files by basename.
// Path traversal is rejected before touching the filesystem.
func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/download/")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.daemon.cfg.Paths.OutputDir, name))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
