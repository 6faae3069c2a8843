// Package ui renders the server's HTML dashboard using templ components.
package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// JobListItem carries the per-job fields shown on the dashboard.
type JobListItem struct {
	ID        string
	State     string
	DatasetID string
	Completed int
	Total     int
	LastLabel string
	StartTime time.Time
	EndTime   *time.Time
	Error     string
}

const pageStyle = `body{font-family:sans-serif;margin:2rem}` +
	`table{border-collapse:collapse;width:100%}` +
	`th,td{border:1px solid #ccc;padding:0.4rem 0.8rem;text-align:left}` +
	`th{background:#f0f0f0}` +
	`.state-completed{color:#2a7a2a}.state-failed{color:#aa2222}.state-running{color:#225588}`

// JobList renders the analysis job overview page.
func JobList(items []JobListItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>texturestats</title><style>%s</style></head><body>", pageStyle); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<h1>Texture analysis jobs</h1>"); err != nil {
			return err
		}

		if len(items) == 0 {
			if _, err := io.WriteString(w, "<p>No jobs yet. POST to /api/v1/jobs to start one.</p>"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "<table><tr><th>Job</th><th>State</th><th>Dataset</th><th>Progress</th><th>Last image</th><th>Started</th><th>Error</th></tr>"); err != nil {
				return err
			}
			for _, item := range items {
				if err := jobRow(item).Render(ctx, w); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</table>"); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// jobRow renders a single table row for a job.
func jobRow(item JobListItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<tr><td><a href="/api/v1/jobs/%s/status">%s</a></td>`+
				`<td class="state-%s">%s</td><td>%s</td><td>%d / %d</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			templ.EscapeString(item.ID),
			templ.EscapeString(shortID(item.ID)),
			templ.EscapeString(item.State),
			templ.EscapeString(item.State),
			templ.EscapeString(item.DatasetID),
			item.Completed,
			item.Total,
			templ.EscapeString(item.LastLabel),
			item.StartTime.Format("2006-01-02 15:04:05"),
			templ.EscapeString(item.Error),
		)
		return err
	})
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}
