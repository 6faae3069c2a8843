package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/texturestats/internal/report"
	"github.com/cwbudde/texturestats/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
	exportFormat  string
	exportOut     string
	plotMetric    string
	plotOut       string
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage stored analysis datasets",
	Long: `Manage analysis datasets: list them with record counts, export records
as CSV or JSON, render metric charts, and clean up old datasets.`,
}

var listDatasetsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all datasets",
	RunE:  runListDatasets,
}

var exportDatasetCmd = &cobra.Command{
	Use:   "export <dataset-id>",
	Short: "Export a dataset's records",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportDataset,
}

var plotDatasetCmd = &cobra.Command{
	Use:   "plot <dataset-id>",
	Short: "Render a metric series chart for a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlotDataset,
}

var cleanDatasetsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old datasets",
	Long: `Delete datasets based on retention policy. Specify how many of the
most recent datasets to keep, or an age limit in days.`,
	RunE: runCleanDatasets,
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.AddCommand(listDatasetsCmd)
	datasetsCmd.AddCommand(exportDatasetCmd)
	datasetsCmd.AddCommand(plotDatasetCmd)
	datasetsCmd.AddCommand(cleanDatasetsCmd)

	exportDatasetCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format (csv, json)")
	exportDatasetCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout)")

	plotDatasetCmd.Flags().StringVar(&plotMetric, "metric", report.MetricMean, "Metric to chart (mean, stddev, smoothness, skewness, kurtosis, uniformity, entropy)")
	plotDatasetCmd.Flags().StringVar(&plotOut, "out", "metric.png", "Output PNG path")

	cleanDatasetsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the N most recent datasets (0 = keep all)")
	cleanDatasetsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete datasets older than N days (0 = no age limit)")
	cleanDatasetsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListDatasets(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	infos, err := st.ListDatasets()
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No datasets found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATASET\tNAME\tCREATED\tRECORDS\tSIZE")
	fmt.Fprintln(w, "-------\t----\t-------\t-------\t----")

	for _, info := range infos {
		size, err := getDirSize(filepath.Join(dataDir, "datasets", info.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		displayID := info.ID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			displayID,
			info.Name,
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Records,
			sizeStr,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal datasets: %d\n", len(infos))
	return nil
}

func runExportDataset(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	records, err := st.LoadRecords(args[0])
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "csv":
		if err := store.ExportCSV(out, records); err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("failed to export JSON: %w", err)
		}
	default:
		return fmt.Errorf("unknown export format: %s", exportFormat)
	}

	if exportOut != "" {
		slog.Info("exported dataset", "dataset", args[0], "records", len(records), "path", exportOut)
	}
	return nil
}

func runPlotDataset(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	records, err := st.LoadRecords(args[0])
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	f, err := os.Create(plotOut)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := report.MetricSeriesChart(records, plotMetric, f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	fmt.Printf("Wrote %s chart for %d record(s) to %s\n", plotMetric, len(records), plotOut)
	return nil
}

func runCleanDatasets(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	infos, err := st.ListDatasets()
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No datasets to clean.")
		return nil
	}

	toDelete := selectDatasetsForDeletion(infos, keepLast, olderThanDays)
	if len(toDelete) == 0 {
		fmt.Println("No datasets match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d dataset(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%d records, created %s)\n",
			info.ID,
			info.Records,
			info.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := st.DeleteDataset(info.ID); err != nil {
			slog.Error("Failed to delete dataset", "dataset", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted dataset", "dataset", info.ID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d dataset(s), %d failed.\n", deleted, failed)
	return nil
}

// selectDatasetsForDeletion applies the retention policy to the dataset list.
func selectDatasetsForDeletion(infos []store.DatasetInfo, keepLast, olderThanDays int) []store.DatasetInfo {
	var toDelete []store.DatasetInfo

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.CreatedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.DatasetInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})

		for _, candidate := range sorted[:len(sorted)-keepLast] {
			found := false
			for _, existing := range toDelete {
				if existing.ID == candidate.ID {
					found = true
					break
				}
			}
			if !found {
				toDelete = append(toDelete, candidate)
			}
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
