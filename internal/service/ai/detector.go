package ai

import (
	"context"
	"errors"
	"fmt"
	"yoloweb/internal/dto"
)

// ErrModelUnavailable is returned by every call to a detector whose model failed to load.
var ErrModelUnavailable = errors.New("YOLO model not loaded")

// Detector runs object detection on an image stored on disk.
// Implementations must be safe for concurrent use.
type Detector interface {
	// Detect returns the boxes found in the image, highest score first.
	Detect(ctx context.Context, imagePath string) ([]dto.Detection, error)
	// Name identifies the backend in logs, history and the health endpoint.
	Name() string
	// Close releases the model.
	Close() error
}

type unavailableDetector struct {
	reason error
}

// Unavailable returns a Detector standing in for a model that could not be
// loaded. The server keeps running and each detection reports the reason.
func Unavailable(reason error) Detector {
	return &unavailableDetector{reason: reason}
}

func (d *unavailableDetector) Detect(ctx context.Context, imagePath string) ([]dto.Detection, error) {
	return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, d.reason)
}

func (d *unavailableDetector) Name() string {
	return "unavailable"
}

func (d *unavailableDetector) Close() error {
	return nil
}

// IsAvailable reports whether d has a loaded model behind it.
func IsAvailable(d Detector) bool {
	_, unavailable := d.(*unavailableDetector)
	return d != nil && !unavailable
}
