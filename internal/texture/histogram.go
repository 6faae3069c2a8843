package texture

import (
	"errors"
	"image"
)

// ErrEmptyRegion is returned when a region contains no included samples,
// making the histogram impossible to normalize.
var ErrEmptyRegion = errors.New("texture: region contains no samples")

// Histogram counts the intensity values of the samples selected by region.
// The result has 2^bitDepth bins, index = intensity, value = sample count.
//
// The bounding rectangle is clipped to the buffer bounds, so a rectangle
// that extends past an edge only counts the samples that actually exist.
// The region must be valid (see Region.Validate); the buffer is not mutated.
func Histogram(buf Buffer, region Region) []int {
	hist := make([]int, 1<<buf.BitDepth())

	rect := region.Rect
	if region.IsWholeBuffer() {
		rect = image.Rect(0, 0, buf.Width(), buf.Height())
	}
	clipped := rect.Intersect(image.Rect(0, 0, buf.Width(), buf.Height()))

	for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
		for x := clipped.Min.X; x < clipped.Max.X; x++ {
			if region.maskedOut(x, y) {
				continue
			}
			hist[buf.At(x, y)]++
		}
	}
	return hist
}

// Sum returns the total number of counted samples in a histogram.
func Sum(hist []int) int {
	total := 0
	for _, count := range hist {
		total += count
	}
	return total
}

// Normalize rescales a count histogram into a probability mass function.
// Returns ErrEmptyRegion when the histogram sums to zero; the degenerate
// case is rejected rather than producing NaN metrics downstream.
func Normalize(hist []int) ([]float64, error) {
	total := Sum(hist)
	if total == 0 {
		return nil, ErrEmptyRegion
	}

	p := make([]float64, len(hist))
	for i, count := range hist {
		p[i] = float64(count) / float64(total)
	}
	return p, nil
}
