package server

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/cwbudde/texturestats/internal/ui"
)

// handleIndex renders the job dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobs := s.jobManager.ListJobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	items := make([]ui.JobListItem, 0, len(jobs))
	for _, job := range jobs {
		item := ui.JobListItem{
			ID:        job.ID,
			State:     string(job.State),
			DatasetID: job.DatasetID,
			Completed: job.Completed,
			Total:     job.Total,
			StartTime: job.StartTime,
			EndTime:   job.EndTime,
			Error:     job.Error,
		}
		if job.LastRecord != nil {
			item.LastLabel = job.LastRecord.Label
		}
		items = append(items, item)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.JobList(items).Render(r.Context(), w); err != nil {
		slog.Error("rendering dashboard", "error", err)
	}
}
