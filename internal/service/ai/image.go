package ai

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// LoadImage decodes an upload (PNG, JPEG, GIF, BMP, TIFF or WebP) and applies
// its EXIF orientation, so boxes and annotations share one coordinate space.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
