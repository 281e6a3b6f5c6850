package dto

import (
	"image"
	"math"
)

// BoundingBox holds corner coordinates [x1, y1, x2, y2] in pixels of the original image.
type BoundingBox [4]float64

// Rect rounds the box to an integer rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(b[0])), int(math.Round(b[1])),
		int(math.Round(b[2])), int(math.Round(b[3])),
	)
}

// Detection is one object instance predicted by the model.
type Detection struct {
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}
