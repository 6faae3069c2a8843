package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cwbudde/texturestats/internal/imgio"
	"github.com/cwbudde/texturestats/internal/store"
	"github.com/cwbudde/texturestats/internal/texture"
)

// runJob analyzes every image in the job config, appending each record
// to the job and, when a store is configured, to the job's dataset.
func runJob(ctx context.Context, jm *JobManager, st store.Store, jobID string) {
	job, ok := jm.GetJob(jobID)
	if !ok {
		slog.Error("job disappeared before start", "jobId", jobID)
		return
	}
	config := job.Config

	datasetID, err := resolveDataset(st, job)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("preparing dataset: %w", err))
		return
	}

	mask, err := loadJobMask(config)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("loading mask: %w", err))
		return
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = JobStateRunning
		j.DatasetID = datasetID
	})
	slog.Info("job started", "jobId", jobID, "images", len(config.Images), "dataset", datasetID)

	for i, path := range config.Images {
		select {
		case <-ctx.Done():
			markJobCancelled(jm, jobID)
			return
		case <-job.cancel:
			markJobCancelled(jm, jobID)
			return
		default:
		}

		record, err := analyzeImage(path, config, mask)
		if err != nil {
			markJobFailed(jm, jobID, fmt.Errorf("analyzing %s: %w", path, err))
			return
		}

		if st != nil {
			if err := st.AppendRecord(datasetID, record); err != nil {
				markJobFailed(jm, jobID, fmt.Errorf("storing record for %s: %w", path, err))
				return
			}
		}

		completed := i + 1
		jm.UpdateJob(jobID, func(j *Job) {
			j.Completed = completed
			j.LastImage = path
			j.LastRecord = record
			j.Records = append(j.Records, *record)
		})
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:     jobID,
			State:     JobStateRunning,
			Completed: completed,
			Total:     len(config.Images),
			Label:     record.Label,
			Timestamp: time.Now(),
		})
	}

	now := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = JobStateCompleted
		j.EndTime = &now
	})
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     JobStateCompleted,
		Completed: len(config.Images),
		Total:     len(config.Images),
		Timestamp: now,
	})
	slog.Info("job completed", "jobId", jobID, "images", len(config.Images))
}

// analyzeImage loads one image and computes its texture record.
func analyzeImage(path string, config JobConfig, mask []uint8) (*texture.Record, error) {
	buf, err := imgio.Load(path)
	if err != nil {
		return nil, err
	}
	label := filepath.Base(path)
	if config.LabelPrefix != "" {
		label = config.LabelPrefix + label
	}
	return texture.Analyze(buf, regionFor(buf, config, mask), label)
}

// resolveDataset ensures the target dataset exists and returns its ID.
func resolveDataset(st store.Store, job *Job) (string, error) {
	if st == nil {
		return "", nil
	}
	id := job.Config.DatasetID
	if id == "" {
		id = job.ID
	}
	if _, err := st.LoadDataset(id); err == nil {
		return id, nil
	}
	name := job.Config.DatasetName
	if name == "" {
		name = id
	}
	dataset := store.NewDataset(id, name, "api")
	if err := st.SaveDataset(dataset); err != nil {
		return "", err
	}
	return id, nil
}

func markJobFailed(jm *JobManager, jobID string, err error) {
	now := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = JobStateFailed
		j.Error = err.Error()
		j.EndTime = &now
	})
	job, _ := jm.GetJob(jobID)
	event := ProgressEvent{
		JobID:     jobID,
		State:     JobStateFailed,
		Error:     err.Error(),
		Timestamp: now,
	}
	if job != nil {
		event.Completed = job.Completed
		event.Total = job.Total
	}
	jm.broadcaster.Broadcast(event)
	slog.Error("job failed", "jobId", jobID, "error", err)
}

func markJobCancelled(jm *JobManager, jobID string) {
	now := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = JobStateCancelled
		j.EndTime = &now
	})
	job, _ := jm.GetJob(jobID)
	event := ProgressEvent{
		JobID:     jobID,
		State:     JobStateCancelled,
		Timestamp: now,
	}
	if job != nil {
		event.Completed = job.Completed
		event.Total = job.Total
	}
	jm.broadcaster.Broadcast(event)
	slog.Info("job cancelled", "jobId", jobID)
}
