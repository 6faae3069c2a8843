package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/texturestats/internal/texture"
)

// JobState represents the lifecycle state of an analysis job.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

// ROISpec selects a rectangular sub-region of each image.
type ROISpec struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// JobConfig describes an analysis job submitted over the API.
type JobConfig struct {
	Images      []string `json:"images"`
	ROI         *ROISpec `json:"roi,omitempty"`
	MaskPath    string   `json:"maskPath,omitempty"`
	LabelPrefix string   `json:"labelPrefix,omitempty"`
	DatasetID   string   `json:"datasetId,omitempty"`
	DatasetName string   `json:"datasetName,omitempty"`
}

// Job tracks the progress and results of one analysis run.
type Job struct {
	ID         string           `json:"id"`
	State      JobState         `json:"state"`
	Config     JobConfig        `json:"config"`
	DatasetID  string           `json:"datasetId,omitempty"`
	Completed  int              `json:"completed"`
	Total      int              `json:"total"`
	LastImage  string           `json:"lastImage,omitempty"`
	LastRecord *texture.Record  `json:"lastRecord,omitempty"`
	Records    []texture.Record `json:"-"`
	StartTime  time.Time        `json:"startTime"`
	EndTime    *time.Time       `json:"endTime,omitempty"`
	Error      string           `json:"error,omitempty"`

	cancel chan struct{}
}

// JobManager provides thread-safe access to the in-memory job table.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a new pending job for the given config.
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     JobStatePending,
		Config:    config,
		Total:     len(config.Images),
		StartTime: time.Now(),
		cancel:    make(chan struct{}),
	}
	jm.jobs[job.ID] = job
	return job
}

// GetJob returns a copy of the job with the given ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, ok := jm.jobs[id]
	if !ok {
		return nil, false
	}
	jobCopy := *job
	return &jobCopy, true
}

// ListJobs returns copies of all known jobs.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}
	return jobs
}

// UpdateJob applies fn to the job under the write lock.
func (jm *JobManager) UpdateJob(id string, fn func(*Job)) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// CancelJob signals a pending or running job to stop.
func (jm *JobManager) CancelJob(id string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return false
	}
	if job.State != JobStatePending && job.State != JobStateRunning {
		return false
	}
	select {
	case <-job.cancel:
	default:
		close(job.cancel)
	}
	return true
}

// JobRecords returns a copy of the records produced so far.
func (jm *JobManager) JobRecords(id string) ([]texture.Record, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, ok := jm.jobs[id]
	if !ok {
		return nil, false
	}
	records := make([]texture.Record, len(job.Records))
	copy(records, job.Records)
	return records, true
}

// GetRunningJobs returns the jobs currently in the running state.
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	var running []*Job
	for _, job := range jm.jobs {
		if job.State == JobStateRunning {
			jobCopy := *job
			running = append(running, &jobCopy)
		}
	}
	return running
}
