package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"strings"
	"time"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"
	"yoloweb/internal/model"
	"yoloweb/internal/service/ai"
	"yoloweb/internal/service/cache"
	"yoloweb/internal/service/storage"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLength is how much of an upload is inspected to recognise its format.
const sniffLength = 3072

// decodableTypes are the sniffed formats LoadImage can decode.
var decodableTypes = []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/webp"}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Broadcaster receives an event for every processed upload.
type Broadcaster interface {
	BroadcastEvent(event dto.DetectionEvent)
}

// DetectionService validates and stores uploads, runs the detector, writes
// the annotated copy and assembles the response.
type DetectionService struct {
	store       *storage.FileStore
	detector    ai.Detector
	annotator   *ai.Annotator
	cache       cache.DetectionCache
	history     *HistoryService
	broadcaster Broadcaster
	logger      *logger.Logger
	now         func() time.Time
}

type Option func(*DetectionService)

// WithCache reuses detections for image content that was already processed.
func WithCache(c cache.DetectionCache) Option {
	return func(s *DetectionService) { s.cache = c }
}

// WithHistory records every processed upload.
func WithHistory(h *HistoryService) Option {
	return func(s *DetectionService) { s.history = h }
}

// WithBroadcaster publishes a DetectionEvent for every processed upload.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *DetectionService) { s.broadcaster = b }
}

func NewDetectionService(store *storage.FileStore, detector ai.Detector, annotator *ai.Annotator, logger *logger.Logger, opts ...Option) *DetectionService {
	s := &DetectionService{
		store:     store,
		detector:  detector,
		annotator: annotator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detector returns the backend the service runs.
func (s *DetectionService) Detector() ai.Detector {
	return s.detector
}

// Process handles one upload end to end. Failures are *ValidationError or
// *ProcessingError.
func (s *DetectionService) Process(ctx context.Context, upload Upload) (*dto.UploadResponse, error) {
	if strings.TrimSpace(upload.Filename) == "" || upload.Content == nil {
		return nil, ErrNoFile
	}
	if !storage.AllowedFile(upload.Filename) {
		return nil, ErrInvalidFileType
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(upload.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &ProcessingError{Err: err}
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrEmptyFile
	}
	if !decodable(mimetype.Detect(head)) {
		return nil, ErrNotAnImage
	}

	digest := sha256.New()
	content := io.TeeReader(io.MultiReader(bytes.NewReader(head), upload.Content), digest)

	stored, size, err := s.store.SaveUpload(storage.StorageName(upload.Filename), content)
	if err != nil {
		return nil, &ProcessingError{Err: err}
	}
	uploadPath, err := s.store.UploadPath(stored)
	if err != nil {
		return nil, &ProcessingError{Err: err}
	}

	key := cache.Key(s.detector.Name(), digest.Sum(nil))
	detections, cached := s.cachedDetections(ctx, key)
	if !cached {
		detections, err = s.detector.Detect(ctx, uploadPath)
		if err != nil {
			s.logger.Error("Detection failed for %s: %v", stored, err)
			return nil, &ProcessingError{Err: err}
		}
		s.cacheDetections(ctx, key, detections)
	}
	if detections == nil {
		detections = []dto.Detection{}
	}

	resultName := storage.ResultName(stored)
	resultPath, err := s.store.ResultPath(resultName)
	if err != nil {
		return nil, &ProcessingError{Err: err}
	}
	if err := s.annotator.AnnotateFile(uploadPath, resultPath, detections); err != nil {
		s.logger.Error("Annotation failed for %s: %v", stored, err)
		return nil, &ProcessingError{Err: err}
	}

	s.logger.Info("Processed %s: %d detections (cached: %t)", stored, len(detections), cached)

	if s.history != nil {
		record := &model.Upload{
			OriginalName: upload.Filename,
			StoredName:   stored,
			ResultName:   resultName,
			FileSize:     size,
			Detector:     s.detector.Name(),
			CreatedAt:    s.now(),
		}
		if err := s.history.Record(record, detections); err != nil {
			s.logger.Error("Failed to record upload %s: %v", stored, err)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(dto.DetectionEvent{
			Type:          "detection",
			OriginalImage: stored,
			ResultImage:   resultName,
			Detections:    detections,
			Cached:        cached,
		})
	}

	return &dto.UploadResponse{
		Success:       true,
		OriginalImage: stored,
		ResultImage:   resultName,
		Detections:    detections,
	}, nil
}

// cachedDetections bypasses the cache while the model is unavailable.
func (s *DetectionService) cachedDetections(ctx context.Context, key string) ([]dto.Detection, bool) {
	if s.cache == nil || !ai.IsAvailable(s.detector) {
		return nil, false
	}

	detections, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warning("Detection cache lookup failed: %v", err)
		return nil, false
	}
	return detections, ok
}

func (s *DetectionService) cacheDetections(ctx context.Context, key string, detections []dto.Detection) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, detections); err != nil {
		s.logger.Warning("Failed to cache detections: %v", err)
	}
}

func decodable(mtype *mimetype.MIME) bool {
	for _, t := range decodableTypes {
		if mtype.Is(t) {
			return true
		}
	}
	return false
}
