package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/texturestats/internal/server"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []server.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s\n", job.State)
		fmt.Printf("  Progress: %d / %d\n", job.Completed, job.Total)
		if job.DatasetID != "" {
			fmt.Printf("  Dataset: %s\n", job.DatasetID)
		}
		if job.Error != "" {
			fmt.Printf("  Error: %s\n", job.Error)
		}
		fmt.Println()
	}
	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var job server.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("State: %s\n", job.State)
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Images: %d\n", len(job.Config.Images))
	if job.Config.ROI != nil {
		roi := job.Config.ROI
		fmt.Printf("  ROI: %d,%d %dx%d\n", roi.X, roi.Y, roi.Width, roi.Height)
	}
	if job.Config.MaskPath != "" {
		fmt.Printf("  Mask: %s\n", job.Config.MaskPath)
	}
	if job.DatasetID != "" {
		fmt.Printf("  Dataset: %s\n", job.DatasetID)
	}
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Analyzed: %d / %d\n", job.Completed, job.Total)
	if job.LastRecord != nil {
		fmt.Printf("  Last image: %s\n", job.LastRecord.Label)
		fmt.Printf("  Mean: %.4f\n", job.LastRecord.Mean)
		fmt.Printf("  Std deviation: %.4f\n", job.LastRecord.StdDeviation)
		fmt.Printf("  Entropy: %.4f\n", job.LastRecord.Entropy)
	}
	if job.EndTime != nil {
		fmt.Printf("  Elapsed: %s\n", job.EndTime.Sub(job.StartTime).Round(time.Millisecond))
	}
	if job.Error != "" {
		fmt.Printf("\nError: %s\n", job.Error)
	}
	return nil
}
