package texture

import "math"

// The functions in this file operate on a normalized histogram: an ordered
// sequence of float64 probabilities summing to 1, where index i represents
// intensity bin i. All of them are pure and deterministic.

// Mean computes the first raw moment about zero, Σ i·p[i].
func Mean(p []float64) float64 {
	mean := 0.0
	for i, pi := range p {
		mean += float64(i) * pi
	}
	return mean
}

// NthMoment computes the central moment of order n, Σ (i−mean)^n·p[i].
// The mean is derived from the same histogram.
func NthMoment(p []float64, n int) float64 {
	mean := Mean(p)
	moment := 0.0
	for i, pi := range p {
		moment += math.Pow(float64(i)-mean, float64(n)) * pi
	}
	return moment
}

// Variance is the second central moment.
func Variance(p []float64) float64 {
	return NthMoment(p, 2)
}

// StdDeviation is the square root of the variance.
func StdDeviation(p []float64) float64 {
	return math.Sqrt(Variance(p))
}

// NormalizedVariance rescales the variance by (L−1)² so the result is
// comparable across bit depths.
func NormalizedVariance(p []float64) float64 {
	span := float64(len(p) - 1)
	return Variance(p) / (span * span)
}

// RelativeSmoothness maps a normalized variance v into [0, 1) via
// 1 − 1/(1+v). A constant-intensity region scores 0.
func RelativeSmoothness(normalizedVariance float64) float64 {
	return 1.0 - 1.0/(1.0+normalizedVariance)
}

// Skewness is the third central moment divided by σ³.
// A zero-variance histogram has no asymmetry to measure; the result is
// defined as 0 rather than letting the division produce NaN.
func Skewness(p []float64) float64 {
	std := StdDeviation(p)
	if std == 0 {
		return 0
	}
	return NthMoment(p, 3) / math.Pow(std, 3)
}

// Kurtosis is the excess kurtosis, µ₄/σ⁴ − 3. Like Skewness, it is
// defined as 0 for a zero-variance histogram.
func Kurtosis(p []float64) float64 {
	std := StdDeviation(p)
	if std == 0 {
		return 0
	}
	return NthMoment(p, 4)/math.Pow(std, 4) - 3.0
}

// Uniformity is the sum of squared probabilities, maximal (1.0) when all
// mass sits in a single bin.
func Uniformity(p []float64) float64 {
	uniformity := 0.0
	for _, pi := range p {
		uniformity += pi * pi
	}
	return uniformity
}

// Entropy computes the Shannon entropy −Σ p[i]·log₂ p[i], with empty bins
// contributing nothing, normalized by log₂(L) into [0, 1]. A single-valued
// histogram scores 0, a perfectly uniform one scores 1.
func Entropy(p []float64) float64 {
	entropy := 0.0
	for _, pi := range p {
		if pi > 0 {
			entropy += pi * log2(pi)
		}
	}
	return -entropy / log2(float64(len(p)))
}

func log2(x float64) float64 {
	return math.Log(x) / math.Log(2.0)
}
