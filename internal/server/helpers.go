package server

import (
	"encoding/json"
	"fmt"
	"image"
	"net/http"

	"github.com/cwbudde/texturestats/internal/imgio"
	"github.com/cwbudde/texturestats/internal/texture"
)

// validateJobConfig rejects configs the worker could not run.
func validateJobConfig(config JobConfig) error {
	if len(config.Images) == 0 {
		return fmt.Errorf("images list must not be empty")
	}
	for _, path := range config.Images {
		if path == "" {
			return fmt.Errorf("image path must not be empty")
		}
	}
	if roi := config.ROI; roi != nil {
		if roi.Width <= 0 || roi.Height <= 0 {
			return fmt.Errorf("roi dimensions must be positive, got %dx%d", roi.Width, roi.Height)
		}
	}
	if config.MaskPath != "" && config.ROI == nil {
		return fmt.Errorf("maskPath requires an roi so mask dimensions are fixed")
	}
	return nil
}

// regionFor builds the analysis region for one buffer from the job config.
// The mask is loaded once per job by the worker and passed in here.
func regionFor(buf texture.Buffer, config JobConfig, mask []uint8) texture.Region {
	if config.ROI == nil {
		if mask == nil {
			return texture.WholeBuffer(buf)
		}
		region := texture.WholeBuffer(buf)
		region.Mask = mask
		return region
	}
	roi := config.ROI
	return texture.Region{
		Rect: image.Rect(roi.X, roi.Y, roi.X+roi.Width, roi.Y+roi.Height),
		Mask: mask,
	}
}

// loadJobMask loads the mask named by the config, sized to the ROI.
func loadJobMask(config JobConfig) ([]uint8, error) {
	if config.MaskPath == "" {
		return nil, nil
	}
	return imgio.LoadMask(config.MaskPath, config.ROI.Width, config.ROI.Height)
}

// analysisBuffer loads an image into an analyzable buffer.
func analysisBuffer(path string) (texture.Buffer, error) {
	return imgio.Load(path)
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent, nothing useful left to do.
		return
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
