// Package imgio loads image files and converts them into intensity buffers
// for texture analysis. It is the host-side input boundary: the analysis
// core never touches the filesystem itself.
package imgio

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/cwbudde/texturestats/internal/texture"
)

// Load decodes the image at path and converts it to an intensity buffer.
// 16-bit grayscale and 16-bit color sources become a Gray16 buffer; all
// other formats are reduced to 8-bit grayscale by luminance.
func Load(path string) (texture.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return FromImage(img), nil
}

// FromImage converts a decoded image into an intensity buffer, choosing
// the bit depth from the source pixel format.
func FromImage(img image.Image) texture.Buffer {
	switch src := img.(type) {
	case *image.Gray:
		return texture.FromGray(src)
	case *image.Gray16:
		return texture.FromGray16(src)
	case *image.RGBA64, *image.NRGBA64:
		return toGray16(img)
	default:
		return toGray8(img)
	}
}

// toGray8 reduces any image to an 8-bit luminance buffer.
func toGray8(img image.Image) *texture.Gray8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	buf := texture.NewGray8(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Standard luminance weights over 16-bit channel values,
			// truncated to the top 8 bits
			lum := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
			buf.SetAt(x, y, int(lum))
		}
	}
	return buf
}

// toGray16 reduces a 16-bit color image to a 16-bit luminance buffer.
func toGray16(img image.Image) *texture.Gray16 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	buf := texture.NewGray16(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
			buf.SetAt(x, y, int(lum))
		}
	}
	return buf
}

// LoadMask decodes a mask image and returns region mask bytes for the
// given bounding rectangle. The mask image dimensions must match the
// rectangle; any pixel with nonzero luminance is included.
func LoadMask(path string, width, height int) ([]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("mask is %dx%d, want %dx%d to match the region",
			bounds.Dx(), bounds.Dy(), width, height)
	}

	mask := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if r|g|b != 0 {
				mask[y*width+x] = 1
			}
		}
	}
	return mask, nil
}
