// Package report renders analysis output as PNG charts.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/cwbudde/texturestats/internal/texture"
)

// HistogramChart renders an intensity histogram as a filled line chart.
// The x axis spans the full intensity range of the source bit depth.
func HistogramChart(hist []int, label string, w io.Writer) error {
	if len(hist) < 2 {
		return errors.New("histogram must have at least two bins")
	}

	xvalues := make([]float64, len(hist))
	yvalues := make([]float64, len(hist))
	maxCount := 0.0
	for i, count := range hist {
		xvalues[i] = float64(i)
		yvalues[i] = float64(count)
		if yvalues[i] > maxCount {
			maxCount = yvalues[i]
		}
	}
	if maxCount == 0 {
		return errors.New("histogram is empty")
	}

	graph := chart.Chart{
		Title:  label,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Intensity",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: float64(len(hist) - 1),
			},
		},
		YAxis: chart.YAxis{
			Name: "Count",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: maxCount,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					FillColor:   chart.ColorAlternateBlue,
				},
				XValues: xvalues,
				YValues: yvalues,
			},
		},
	}

	return graph.Render(chart.PNG, w)
}

// Metric names accepted by MetricSeriesChart.
const (
	MetricMean               = "mean"
	MetricStdDeviation       = "stddev"
	MetricRelativeSmoothness = "smoothness"
	MetricSkewness           = "skewness"
	MetricKurtosis           = "kurtosis"
	MetricUniformity         = "uniformity"
	MetricEntropy            = "entropy"
)

// MetricValue extracts a single named metric from a record.
func MetricValue(record texture.Record, metric string) (float64, error) {
	switch metric {
	case MetricMean:
		return record.Mean, nil
	case MetricStdDeviation:
		return record.StdDeviation, nil
	case MetricRelativeSmoothness:
		return record.RelativeSmoothness, nil
	case MetricSkewness:
		return record.Skewness, nil
	case MetricKurtosis:
		return record.Kurtosis, nil
	case MetricUniformity:
		return record.Uniformity, nil
	case MetricEntropy:
		return record.Entropy, nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", metric)
	}
}

// MetricSeriesChart plots one metric across a sequence of records, in
// record order. Useful for spotting texture drift across a batch.
func MetricSeriesChart(records []texture.Record, metric string, w io.Writer) error {
	if len(records) < 2 {
		return errors.New("need at least two records to plot a series")
	}

	xvalues := make([]float64, len(records))
	yvalues := make([]float64, len(records))
	for i, record := range records {
		value, err := MetricValue(record, metric)
		if err != nil {
			return err
		}
		xvalues[i] = float64(i + 1)
		yvalues[i] = value
	}

	graph := chart.Chart{
		Title:  metric,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Record",
		},
		YAxis: chart.YAxis{
			Name: metric,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
				},
				XValues: xvalues,
				YValues: yvalues,
			},
		},
	}

	return graph.Render(chart.PNG, w)
}
