package main

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/texturestats/internal/imgio"
	"github.com/cwbudde/texturestats/internal/report"
	"github.com/cwbudde/texturestats/internal/store"
	"github.com/cwbudde/texturestats/internal/texture"
)

var (
	analyzeImages []string
	roiSpec       string
	maskPath      string
	labelPrefix   string
	datasetID     string
	datasetName   string
	plotPath      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute texture statistics for one or more images",
	Long: `Analyzes grayscale images and prints one JSON record per image with
histogram moment statistics. With --dataset the records are also
appended to a dataset under the data directory.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeImages, "image", nil, "Image path (repeatable, required)")
	analyzeCmd.Flags().StringVar(&roiSpec, "roi", "", "Region of interest as x,y,width,height")
	analyzeCmd.Flags().StringVar(&maskPath, "mask", "", "Binary mask image, sized to the ROI")
	analyzeCmd.Flags().StringVar(&labelPrefix, "label-prefix", "", "Prefix for record labels")
	analyzeCmd.Flags().StringVar(&datasetID, "dataset", "", "Dataset ID to append records to")
	analyzeCmd.Flags().StringVar(&datasetName, "name", "", "Dataset name when creating a new dataset")
	analyzeCmd.Flags().StringVar(&plotPath, "plot", "", "Write the last image's histogram chart to this PNG path")

	analyzeCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rect, hasROI, err := parseROI(roiSpec)
	if err != nil {
		return err
	}
	if maskPath != "" && !hasROI {
		return fmt.Errorf("--mask requires --roi so the mask dimensions are fixed")
	}

	var mask []uint8
	if maskPath != "" {
		mask, err = imgio.LoadMask(maskPath, rect.Dx(), rect.Dy())
		if err != nil {
			return fmt.Errorf("loading mask: %w", err)
		}
	}

	st, err := openDataset()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	var lastHist []int
	var lastLabel string
	for _, path := range analyzeImages {
		buf, err := imgio.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}

		region := texture.WholeBuffer(buf)
		if hasROI {
			region = texture.Region{Rect: rect, Mask: mask}
		}

		label := labelPrefix + filepath.Base(path)
		record, err := texture.Analyze(buf, region, label)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", path, err)
		}

		if err := enc.Encode(record); err != nil {
			return err
		}
		if st != nil {
			if err := st.AppendRecord(datasetID, record); err != nil {
				return fmt.Errorf("storing record for %s: %w", path, err)
			}
		}
		if plotPath != "" {
			lastHist = texture.Histogram(buf, region)
			lastLabel = label
		}
		slog.Debug("analyzed image", "path", path, "samples", record.Samples)
	}

	if plotPath != "" && lastHist != nil {
		if err := writeHistogramPlot(lastHist, lastLabel, plotPath); err != nil {
			return err
		}
		slog.Info("wrote histogram chart", "path", plotPath)
	}
	return nil
}

// openDataset prepares the target dataset when --dataset is given.
func openDataset() (store.Store, error) {
	if datasetID == "" {
		return nil, nil
	}
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	if _, err := st.LoadDataset(datasetID); err == nil {
		return st, nil
	}
	name := datasetName
	if name == "" {
		name = datasetID
	}
	if err := st.SaveDataset(store.NewDataset(datasetID, name, "cli")); err != nil {
		return nil, fmt.Errorf("creating dataset: %w", err)
	}
	return st, nil
}

func writeHistogramPlot(hist []int, label, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plot file: %w", err)
	}
	defer f.Close()
	return report.HistogramChart(hist, label, f)
}

// parseROI parses "x,y,width,height". An empty spec means whole image.
func parseROI(spec string) (image.Rectangle, bool, error) {
	if spec == "" {
		return image.Rectangle{}, false, nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, false, fmt.Errorf("invalid roi %q: want x,y,width,height", spec)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return image.Rectangle{}, false, fmt.Errorf("invalid roi %q: %w", spec, err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return image.Rectangle{}, false, fmt.Errorf("invalid roi %q: width and height must be positive", spec)
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), true, nil
}
