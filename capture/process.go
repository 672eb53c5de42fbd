package capture

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// Light sharpening and a small contrast lift keep on-screen text legible
// after the upload pipeline rescales the image.
const (
	sharpenSigma    = 1.5
	contrastPercent = 5
)

// enhance post-processes a captured screenshot in place.
func enhance(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open screenshot: %w", err)
	}

	img = imaging.Sharpen(img, sharpenSigma)
	img = imaging.AdjustContrast(img, contrastPercent)

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	return nil
}
