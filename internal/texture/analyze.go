package texture

import (
	"math"
	"time"
)

// Record is one row of texture statistics for a labelled image region.
// Records are immutable once created; callers append them to a results
// sink such as the store package.
type Record struct {
	// Label identifies the source image or region.
	Label string `json:"label"`

	// Samples is the number of pixels that contributed to the histogram.
	Samples int `json:"samples"`

	Mean               float64 `json:"mean"`
	StdDeviation       float64 `json:"stdDeviation"`
	RelativeSmoothness float64 `json:"relativeSmoothness"`

	// Skewness and Kurtosis are reported as 0 for zero-variance regions;
	// the standardized moments are undefined there.
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`

	Uniformity float64 `json:"uniformity"`

	// Entropy is normalized by log2 of the histogram length into [0,1].
	Entropy float64 `json:"entropy"`

	// Timestamp records when the analysis ran.
	Timestamp time.Time `json:"timestamp"`
}

// Analyze extracts the region histogram from buf, normalizes it, and
// computes the full set of texture statistics.
//
// Returns ErrEmptyRegion when the region includes no samples (for example
// an all-zero mask), and a RegionError when the mask does not match the
// bounding rectangle. Invoking Analyze twice on the same inputs yields
// bit-identical metrics.
func Analyze(buf Buffer, region Region, label string) (*Record, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	hist := Histogram(buf, region)
	p, err := Normalize(hist)
	if err != nil {
		return nil, err
	}

	// Mean and variance feed several metrics; compute them once.
	mean := Mean(p)
	variance := NthMoment(p, 2)
	std := math.Sqrt(variance)

	span := float64(len(p) - 1)
	normalizedVariance := variance / (span * span)

	skewness := 0.0
	kurtosis := 0.0
	if std > 0 {
		skewness = NthMoment(p, 3) / math.Pow(std, 3)
		kurtosis = NthMoment(p, 4)/math.Pow(std, 4) - 3.0
	}

	return &Record{
		Label:              label,
		Samples:            Sum(hist),
		Mean:               mean,
		StdDeviation:       std,
		RelativeSmoothness: RelativeSmoothness(normalizedVariance),
		Skewness:           skewness,
		Kurtosis:           kurtosis,
		Uniformity:         Uniformity(p),
		Entropy:            Entropy(p),
		Timestamp:          time.Now(),
	}, nil
}
