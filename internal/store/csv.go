package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cwbudde/texturestats/internal/texture"
)

// csvHeader lists the exported columns in table order.
var csvHeader = []string{
	"label",
	"samples",
	"mean",
	"std_deviation",
	"relative_smoothness",
	"skewness",
	"kurtosis",
	"uniformity",
	"entropy",
	"timestamp",
}

// ExportCSV writes records as a CSV table, one row per record, with a
// header row. This is the exchange format for external analysis tools.
func ExportCSV(w io.Writer, records []texture.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.Label,
			strconv.Itoa(record.Samples),
			formatMetric(record.Mean),
			formatMetric(record.StdDeviation),
			formatMetric(record.RelativeSmoothness),
			formatMetric(record.Skewness),
			formatMetric(record.Kurtosis),
			formatMetric(record.Uniformity),
			formatMetric(record.Entropy),
			record.Timestamp.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
