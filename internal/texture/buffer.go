package texture

import "image"

// Buffer is a read-only 2D grid of non-negative integer intensity samples.
// The bit depth bounds sample values to [0, 2^BitDepth-1] and determines
// the histogram length. Buffers are owned by the caller and are never
// mutated by this package.
type Buffer interface {
	Width() int
	Height() int
	// BitDepth returns the number of bits per sample (8 or 16).
	BitDepth() int
	// At returns the sample at (x, y). Coordinates must be in bounds.
	At(x, y int) int
}

// Gray8 is an 8-bit intensity buffer backed by a flat row-major slice.
type Gray8 struct {
	Pix  []uint8
	W, H int
}

// NewGray8 allocates a zeroed 8-bit buffer.
func NewGray8(width, height int) *Gray8 {
	return &Gray8{
		Pix: make([]uint8, width*height),
		W:   width,
		H:   height,
	}
}

// FromGray copies a stdlib grayscale image into a buffer, dropping any
// stride padding.
func FromGray(img *image.Gray) *Gray8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	buf := NewGray8(w, h)
	for y := 0; y < h; y++ {
		row := img.Pix[(y)*img.Stride : y*img.Stride+w]
		copy(buf.Pix[y*w:(y+1)*w], row)
	}
	return buf
}

func (b *Gray8) Width() int    { return b.W }
func (b *Gray8) Height() int   { return b.H }
func (b *Gray8) BitDepth() int { return 8 }

func (b *Gray8) At(x, y int) int {
	return int(b.Pix[y*b.W+x])
}

// SetAt writes a sample. Intended for buffer construction, not for use
// during analysis.
func (b *Gray8) SetAt(x, y, v int) {
	b.Pix[y*b.W+x] = uint8(v)
}

// Gray16 is a 16-bit intensity buffer backed by a flat row-major slice.
type Gray16 struct {
	Pix  []uint16
	W, H int
}

// NewGray16 allocates a zeroed 16-bit buffer.
func NewGray16(width, height int) *Gray16 {
	return &Gray16{
		Pix: make([]uint16, width*height),
		W:   width,
		H:   height,
	}
}

// FromGray16 copies a stdlib 16-bit grayscale image into a buffer.
func FromGray16(img *image.Gray16) *Gray16 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	buf := NewGray16(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Gray16 stores big-endian sample pairs
			i := y*img.Stride + x*2
			buf.Pix[y*w+x] = uint16(img.Pix[i])<<8 | uint16(img.Pix[i+1])
		}
	}
	return buf
}

func (b *Gray16) Width() int    { return b.W }
func (b *Gray16) Height() int   { return b.H }
func (b *Gray16) BitDepth() int { return 16 }

func (b *Gray16) At(x, y int) int {
	return int(b.Pix[y*b.W+x])
}

// SetAt writes a sample. Intended for buffer construction, not for use
// during analysis.
func (b *Gray16) SetAt(x, y, v int) {
	b.Pix[y*b.W+x] = uint16(v)
}
