package texture

import "image"

// Region selects the part of a buffer to analyse: an optional bounding
// rectangle plus an optional binary mask in rectangle-local coordinates.
//
// The zero value selects the whole buffer with no mask. A mask, when
// present, must have exactly Rect.Dx()*Rect.Dy() entries in row-major
// order; cells with a value that is not strictly positive are excluded.
type Region struct {
	Rect image.Rectangle
	Mask []uint8
}

// WholeBuffer returns a region covering the entire buffer.
func WholeBuffer(buf Buffer) Region {
	return Region{Rect: image.Rect(0, 0, buf.Width(), buf.Height())}
}

// IsWholeBuffer reports whether the region is the zero value, meaning
// no bounding rectangle was supplied.
func (r Region) IsWholeBuffer() bool {
	return r.Rect == image.Rectangle{} && r.Mask == nil
}

// Validate checks the mask dimensions against the bounding rectangle.
func (r Region) Validate() error {
	if r.Mask == nil {
		return nil
	}
	want := r.Rect.Dx() * r.Rect.Dy()
	if len(r.Mask) != want {
		return &RegionError{
			Reason: "mask size does not match bounding rectangle",
			Want:   want,
			Got:    len(r.Mask),
		}
	}
	return nil
}

// maskedOut reports whether the mask excludes the buffer cell (x, y).
// Coordinates are buffer-global; the mask is indexed relative to the
// unclipped rectangle origin.
func (r Region) maskedOut(x, y int) bool {
	if r.Mask == nil {
		return false
	}
	i := (y-r.Rect.Min.Y)*r.Rect.Dx() + (x - r.Rect.Min.X)
	return r.Mask[i] == 0
}

// RegionError describes an invalid region geometry.
type RegionError struct {
	Reason    string
	Want, Got int
}

func (e *RegionError) Error() string {
	return "invalid region: " + e.Reason
}
