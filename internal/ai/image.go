package ai

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

// maxImageEdge is roughly an A4 page at 300 dpi.
const maxImageEdge = 2480

// PrepareImage loads a JPEG or PNG upload, applies EXIF orientation, bounds
// its size and returns it as base64 JPEG.
func PrepareImage(path string) (string, string, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", "", fmt.Errorf("failed to open image: %w", err)
	}

	b := src.Bounds()
	img := src
	if b.Dx() > maxImageEdge || b.Dy() > maxImageEdge {
		img = imaging.Fit(src, maxImageEdge, maxImageEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return "", "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), "image/jpeg", nil
}
