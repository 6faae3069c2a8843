package texture

import (
	"image"
	"testing"
)

// gradientBuffer creates a WxH 8-bit buffer where pixel (x, y) has
// intensity (x + y*w) % 256.
func gradientBuffer(w, h int) *Gray8 {
	buf := NewGray8(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.SetAt(x, y, (x+y*w)%256)
		}
	}
	return buf
}

func TestHistogram_WholeBuffer(t *testing.T) {
	buf := NewGray8(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			buf.SetAt(x, y, 7)
		}
	}

	hist := Histogram(buf, Region{})

	if len(hist) != 256 {
		t.Fatalf("Expected 256 bins for 8-bit buffer, got %d", len(hist))
	}
	if hist[7] != 16 {
		t.Errorf("Expected 16 samples in bin 7, got %d", hist[7])
	}
	if Sum(hist) != 16 {
		t.Errorf("Histogram sum should equal sample count, got %d", Sum(hist))
	}
}

func TestHistogram_SumMatchesIncludedSamples(t *testing.T) {
	buf := gradientBuffer(10, 10)

	tests := []struct {
		name    string
		region  Region
		samples int
	}{
		{"whole buffer", Region{}, 100},
		{"interior rect", Region{Rect: image.Rect(2, 3, 7, 8)}, 25},
		{"single cell", Region{Rect: image.Rect(4, 4, 5, 5)}, 1},
		{"clipped right and bottom", Region{Rect: image.Rect(6, 6, 20, 20)}, 16},
		{"fully outside", Region{Rect: image.Rect(50, 50, 60, 60)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := Histogram(buf, tt.region)
			if got := Sum(hist); got != tt.samples {
				t.Errorf("Expected %d samples, got %d", tt.samples, got)
			}
			for i, count := range hist {
				if count < 0 {
					t.Fatalf("Bin %d has negative count %d", i, count)
				}
			}
		})
	}
}

func TestHistogram_Gray16(t *testing.T) {
	buf := NewGray16(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			buf.SetAt(x, y, 40000)
		}
	}

	hist := Histogram(buf, Region{})

	if len(hist) != 65536 {
		t.Fatalf("Expected 65536 bins for 16-bit buffer, got %d", len(hist))
	}
	if hist[40000] != 9 {
		t.Errorf("Expected 9 samples in bin 40000, got %d", hist[40000])
	}
}

func TestHistogram_Mask(t *testing.T) {
	buf := NewGray8(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			buf.SetAt(x, y, 10*x)
		}
	}

	// 2x2 rect at (1,1) with only the top-left mask cell included
	region := Region{
		Rect: image.Rect(1, 1, 3, 3),
		Mask: []uint8{1, 0, 0, 0},
	}

	hist := Histogram(buf, region)

	if Sum(hist) != 1 {
		t.Fatalf("Expected 1 included sample, got %d", Sum(hist))
	}
	if hist[10] != 1 {
		t.Errorf("Expected the sample at (1,1) with intensity 10, histogram: bin10=%d", hist[10])
	}
}

func TestHistogram_AllZeroMask(t *testing.T) {
	buf := gradientBuffer(4, 4)
	region := Region{
		Rect: image.Rect(0, 0, 4, 4),
		Mask: make([]uint8, 16),
	}

	hist := Histogram(buf, region)
	if Sum(hist) != 0 {
		t.Errorf("All-zero mask should include no samples, got %d", Sum(hist))
	}

	if _, err := Normalize(hist); err != ErrEmptyRegion {
		t.Errorf("Expected ErrEmptyRegion, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	buf := gradientBuffer(16, 16)
	hist := Histogram(buf, Region{})

	p, err := Normalize(hist)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	sum := 0.0
	for i, pi := range p {
		if pi < 0 || pi > 1 {
			t.Fatalf("Bin %d probability %f out of [0,1]", i, pi)
		}
		sum += pi
	}

	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Normalized histogram should sum to 1, got %.12f", sum)
	}
}

func TestHistogram_Idempotent(t *testing.T) {
	buf := gradientBuffer(8, 8)
	region := Region{Rect: image.Rect(1, 1, 7, 7)}

	first := Histogram(buf, region)
	second := Histogram(buf, region)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Bin %d differs between runs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestRegionValidate(t *testing.T) {
	region := Region{
		Rect: image.Rect(0, 0, 3, 3),
		Mask: []uint8{1, 1}, // wrong size
	}

	err := region.Validate()
	if err == nil {
		t.Fatal("Expected error for mismatched mask size")
	}

	var regionErr *RegionError
	if !errorAs(err, &regionErr) {
		t.Errorf("Expected RegionError, got %T: %v", err, err)
	}
	if regionErr.Want != 9 || regionErr.Got != 2 {
		t.Errorf("Expected want=9 got=2, have want=%d got=%d", regionErr.Want, regionErr.Got)
	}
}

// errorAs is a small helper mirroring errors.As for the single type used here.
func errorAs(err error, target **RegionError) bool {
	re, ok := err.(*RegionError)
	if ok {
		*target = re
	}
	return ok
}

func BenchmarkHistogram_256x256(b *testing.B) {
	buf := gradientBuffer(256, 256)
	region := Region{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Histogram(buf, region)
	}
}
