package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/texturestats/internal/store"
	"github.com/cwbudde/texturestats/internal/texture"
)

func writeTestImage(t *testing.T, dir, name string, value uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return path
}

func setupTestServer(t *testing.T) (*Server, *httptest.Server, store.Store) {
	t.Helper()
	st, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	s := NewServer(":0", st)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, st
}

func postJob(t *testing.T, ts *httptest.Server, config JobConfig) *http.Response {
	t.Helper()
	body, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("marshaling config: %v", err)
	}
	resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("posting job: %v", err)
	}
	return resp
}

func waitForState(t *testing.T, ts *httptest.Server, jobID string, want JobState) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var job Job
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/v1/jobs/" + jobID + "/status")
		if err != nil {
			t.Fatalf("fetching status: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&job)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decoding status: %v", err)
		}
		if job.State == want {
			return job
		}
		if isTerminal(job.State) {
			t.Fatalf("job reached terminal state %s (error %q), want %s", job.State, job.Error, want)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, last state %s", want, job.State)
	return job
}

func TestCreateJobRejectsInvalidConfig(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"no images", `{"images":[]}`},
		{"empty image path", `{"images":[""]}`},
		{"zero roi", `{"images":["a.png"],"roi":{"x":0,"y":0,"width":0,"height":4}}`},
		{"mask without roi", `{"images":["a.png"],"maskPath":"m.png"}`},
		{"unknown field", `{"images":["a.png"],"bogus":true}`},
		{"malformed json", `{"images":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("posting job: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	_, ts, st := setupTestServer(t)
	dir := t.TempDir()
	img1 := writeTestImage(t, dir, "one.png", 10)
	img2 := writeTestImage(t, dir, "two.png", 200)

	resp := postJob(t, ts, JobConfig{Images: []string{img1, img2}, DatasetID: "run-1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var created Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created job: %v", err)
	}

	job := waitForState(t, ts, created.ID, JobStateCompleted)
	if job.Completed != 2 {
		t.Errorf("expected 2 completed images, got %d", job.Completed)
	}
	if job.DatasetID != "run-1" {
		t.Errorf("expected dataset run-1, got %s", job.DatasetID)
	}
	if job.EndTime == nil {
		t.Error("expected end time to be set")
	}

	// Records must be in the store and on the records endpoint.
	records, err := st.LoadRecords("run-1")
	if err != nil {
		t.Fatalf("loading stored records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(records))
	}
	if records[0].Label != "one.png" || records[1].Label != "two.png" {
		t.Errorf("unexpected record labels: %s, %s", records[0].Label, records[1].Label)
	}
	if records[0].Mean != 10 {
		t.Errorf("expected mean 10 for constant image, got %g", records[0].Mean)
	}

	apiResp, err := http.Get(ts.URL + "/api/v1/jobs/" + created.ID + "/records")
	if err != nil {
		t.Fatalf("fetching records: %v", err)
	}
	defer apiResp.Body.Close()
	var apiRecords []texture.Record
	if err := json.NewDecoder(apiResp.Body).Decode(&apiRecords); err != nil {
		t.Fatalf("decoding records: %v", err)
	}
	if len(apiRecords) != 2 {
		t.Errorf("expected 2 records from API, got %d", len(apiRecords))
	}
}

func TestJobWithROIAndPrefix(t *testing.T) {
	_, ts, st := setupTestServer(t)
	dir := t.TempDir()
	img := writeTestImage(t, dir, "img.png", 50)

	resp := postJob(t, ts, JobConfig{
		Images:      []string{img},
		ROI:         &ROISpec{X: 2, Y: 2, Width: 4, Height: 4},
		LabelPrefix: "trial/",
		DatasetID:   "roi-run",
	})
	defer resp.Body.Close()
	var created Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created job: %v", err)
	}
	waitForState(t, ts, created.ID, JobStateCompleted)

	records, err := st.LoadRecords("roi-run")
	if err != nil {
		t.Fatalf("loading records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Label != "trial/img.png" {
		t.Errorf("expected prefixed label, got %s", records[0].Label)
	}
	if records[0].Samples != 16 {
		t.Errorf("expected 16 samples inside 4x4 roi, got %d", records[0].Samples)
	}
}

func TestJobFailsOnMissingImage(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp := postJob(t, ts, JobConfig{Images: []string{"/does/not/exist.png"}})
	defer resp.Body.Close()
	var created Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created job: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := tsGetJob(t, ts, created.ID)
		if !ok {
			t.Fatal("job not found")
		}
		if job.State == JobStateFailed {
			if job.Error == "" {
				t.Error("expected failure message on failed job")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for job failure")
}

func tsGetJob(t *testing.T, ts *httptest.Server, id string) (Job, bool) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/v1/jobs/" + id + "/status")
	if err != nil {
		t.Fatalf("fetching status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Job{}, false
	}
	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	return job, true
}

func TestJobStatusNotFound(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/jobs/nope/status")
	if err != nil {
		t.Fatalf("fetching status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestJobHistogramEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	dir := t.TempDir()
	img := writeTestImage(t, dir, "img.png", 99)

	resp := postJob(t, ts, JobConfig{Images: []string{img}})
	defer resp.Body.Close()
	var created Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created job: %v", err)
	}
	waitForState(t, ts, created.ID, JobStateCompleted)

	histResp, err := http.Get(ts.URL + "/api/v1/jobs/" + created.ID + "/histogram.png")
	if err != nil {
		t.Fatalf("fetching histogram: %v", err)
	}
	defer histResp.Body.Close()
	if histResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", histResp.StatusCode)
	}
	if ct := histResp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	magic := make([]byte, 8)
	if _, err := io.ReadFull(histResp.Body, magic); err != nil {
		t.Fatalf("reading histogram body: %v", err)
	}
	if !bytes.Equal(magic, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}) {
		t.Errorf("response is not a PNG, first bytes %v", magic)
	}
}

func TestJobStreamSnapshot(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	dir := t.TempDir()
	img := writeTestImage(t, dir, "img.png", 33)

	resp := postJob(t, ts, JobConfig{Images: []string{img}})
	defer resp.Body.Close()
	var created Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created job: %v", err)
	}
	waitForState(t, ts, created.ID, JobStateCompleted)

	// The stream sends one snapshot and closes once the job is terminal.
	streamResp, err := http.Get(ts.URL + "/api/v1/jobs/" + created.ID + "/stream")
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	defer streamResp.Body.Close()
	if ct := streamResp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %s", ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(streamResp.Body); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("expected SSE data line, got %q", line)
	}
	var event ProgressEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if event.State != JobStateCompleted {
		t.Errorf("expected completed snapshot, got %s", event.State)
	}
}

func TestListJobsEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	dir := t.TempDir()
	img := writeTestImage(t, dir, "img.png", 1)

	for i := 0; i < 3; i++ {
		resp := postJob(t, ts, JobConfig{Images: []string{img}, DatasetID: fmt.Sprintf("d%d", i)})
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/v1/jobs")
	if err != nil {
		t.Fatalf("listing jobs: %v", err)
	}
	defer resp.Body.Close()
	var jobs []Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decoding jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("expected 3 jobs, got %d", len(jobs))
	}
}

func TestDashboardRenders(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("fetching dashboard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading dashboard: %v", err)
	}
	body := buf.String()
	if !strings.Contains(body, "Texture analysis jobs") {
		t.Error("dashboard missing heading")
	}
	if !strings.Contains(body, "No jobs yet") {
		t.Error("empty dashboard should show placeholder")
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/jobs", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sending preflight: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected wildcard origin, got %q", origin)
	}
}
