// Package gocvnet runs YOLOv8 ONNX models in-process through OpenCV's DNN module.
package gocvnet

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"yoloweb/internal/config"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"
	"yoloweb/internal/service/ai"

	"gocv.io/x/gocv"
)

// Detector wraps a loaded gocv.Net. Forward passes are serialized because a
// Net keeps its input and output blobs as internal state.
type Detector struct {
	mu            sync.Mutex
	net           gocv.Net
	labels        []string
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
	logger        *logger.Logger
}

// New loads the network at cfg.ModelPath. It fails when the file is missing or
// OpenCV cannot parse it.
func New(cfg *config.Config, labels []string, logger *logger.Logger) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network loaded from %s (%d classes)", cfg.ModelPath, len(labels))

	return &Detector{
		net:           net,
		labels:        labels,
		inputSize:     cfg.ModelInputSize,
		confThreshold: float32(cfg.ConfidenceThreshold),
		nmsThreshold:  float32(cfg.NMSThreshold),
		logger:        logger,
	}, nil
}

func (d *Detector) Name() string {
	return "gocv"
}

// Detect runs the network on the image and returns the boxes kept by
// non-maximum suppression, highest score first.
func (d *Detector) Detect(ctx context.Context, imagePath string) ([]dto.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := ai.LoadImage(imagePath)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	xFactor := float32(mat.Cols()) / float32(d.inputSize)
	yFactor := float32(mat.Rows()) / float32(d.inputSize)

	boxes, scores, classIDs, err := d.decode(output, xFactor, yFactor)
	if err != nil {
		return nil, err
	}

	detections := []dto.Detection{}
	if len(boxes) == 0 {
		return detections, nil
	}

	for _, i := range gocv.NMSBoxes(boxes, scores, d.confThreshold, d.nmsThreshold) {
		box := boxes[i].Add(origin)
		detections = append(detections, dto.Detection{
			ClassName:  ai.Label(d.labels, classIDs[i]),
			Confidence: float64(scores[i]),
			BBox: dto.BoundingBox{
				float64(box.Min.X), float64(box.Min.Y),
				float64(box.Max.X), float64(box.Max.Y),
			},
		})
	}

	d.logger.Debug("Detected %d objects in %s", len(detections), imagePath)
	return detections, nil
}

// decode reads the network output Mat and hands it to decodeOutput.
func (d *Detector) decode(output gocv.Mat, xFactor, yFactor float32) ([]image.Rectangle, []float32, []int, error) {
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, nil, nil, fmt.Errorf("unexpected output shape %v", sizes)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read output: %w", err)
	}
	return decodeOutput(data, sizes, d.confThreshold, xFactor, yFactor)
}

// decodeOutput reads YOLOv8 output of shape [1, 4+classes, anchors] (or its
// transpose) into candidate boxes scoring at least confThreshold, scaled to
// the source image.
func decodeOutput(data []float32, sizes []int, confThreshold, xFactor, yFactor float32) ([]image.Rectangle, []float32, []int, error) {
	if len(sizes) != 3 {
		return nil, nil, nil, fmt.Errorf("unexpected output shape %v", sizes)
	}

	attrs, anchors := sizes[1], sizes[2]
	transposed := false
	if attrs > anchors {
		attrs, anchors = anchors, attrs
		transposed = true
	}
	if attrs < 5 || len(data) < attrs*anchors {
		return nil, nil, nil, fmt.Errorf("unexpected output shape %v", sizes)
	}

	at := func(attr, anchor int) float32 {
		if transposed {
			return data[anchor*attrs+attr]
		}
		return data[attr*anchors+anchor]
	}

	var (
		boxes    []image.Rectangle
		scores   []float32
		classIDs []int
	)
	for i := 0; i < anchors; i++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if score := at(c, i); score > bestScore {
				bestClass, bestScore = c-4, score
			}
		}
		if bestClass < 0 || bestScore < confThreshold {
			continue
		}

		cx, cy := at(0, i)*xFactor, at(1, i)*yFactor
		w, h := at(2, i)*xFactor, at(3, i)*yFactor
		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, bestClass)
	}

	return boxes, scores, classIDs, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
