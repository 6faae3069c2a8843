// Package server exposes texture analysis jobs over a small HTTP API
// with server-sent progress events and an HTML dashboard.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/texturestats/internal/report"
	"github.com/cwbudde/texturestats/internal/store"
	"github.com/cwbudde/texturestats/internal/texture"
)

// Server hosts the job API. The store is optional; without it, results
// live only in memory for the lifetime of the process.
type Server struct {
	addr       string
	store      store.Store
	jobManager *JobManager
	httpServer *http.Server
}

func NewServer(addr string, st store.Store) *Server {
	s := &Server{
		addr:       addr,
		store:      st,
		jobManager: NewJobManager(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobByID)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(corsMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := decodeJSON(r, &config); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validateJobConfig(config); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.jobManager.CreateJob(config)
	go runJob(context.Background(), s.jobManager, s.store, job.ID)

	writeJSON(w, http.StatusAccepted, job)
}

// handleJobByID dispatches /api/v1/jobs/{id}/{action} requests.
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.SplitN(rest, "/", 2)
	jobID := parts[0]
	if jobID == "" {
		writeJSONError(w, http.StatusNotFound, "job id missing")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" || action == "status":
		s.handleJobStatus(w, r, jobID)
	case action == "records":
		s.handleJobRecords(w, r, jobID)
	case action == "histogram.png":
		s.handleJobHistogram(w, r, jobID)
	case action == "stream":
		s.handleJobStream(w, r, jobID)
	case action == "cancel" && r.Method == http.MethodPost:
		s.handleJobCancel(w, jobID)
	default:
		writeJSONError(w, http.StatusNotFound, "unknown job action")
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobRecords(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, ok := s.jobManager.JobRecords(jobID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleJobHistogram re-renders the histogram of the last analyzed image.
func (s *Server) handleJobHistogram(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.LastImage == "" {
		writeJSONError(w, http.StatusConflict, "job has no analyzed images yet")
		return
	}

	hist, err := s.jobHistogram(job)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "computing histogram: "+err.Error())
		return
	}

	label := ""
	if job.LastRecord != nil {
		label = job.LastRecord.Label
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.HistogramChart(hist, label, w); err != nil {
		slog.Error("rendering histogram chart", "jobId", jobID, "error", err)
	}
}

// jobHistogram recomputes the last image's histogram from the job config.
func (s *Server) jobHistogram(job *Job) ([]int, error) {
	mask, err := loadJobMask(job.Config)
	if err != nil {
		return nil, err
	}
	buf, err := analysisBuffer(job.LastImage)
	if err != nil {
		return nil, err
	}
	region := regionFor(buf, job.Config, mask)
	if err := region.Validate(); err != nil {
		return nil, err
	}
	return texture.Histogram(buf, region), nil
}

func (s *Server) handleJobCancel(w http.ResponseWriter, jobID string) {
	if !s.jobManager.CancelJob(jobID) {
		writeJSONError(w, http.StatusConflict, "job not found or not cancellable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
