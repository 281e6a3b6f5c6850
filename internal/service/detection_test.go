package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"yoloweb/internal/config"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"
	"yoloweb/internal/repository/sqlite"
	"yoloweb/internal/response"
	"yoloweb/internal/service"
	"yoloweb/internal/service/ai"
	"yoloweb/internal/service/storage"
)

// ========================================
// Test fakes
// ========================================

type fakeDetector struct {
	mu         sync.Mutex
	detections []dto.Detection
	err        error
	calls      int
}

func (d *fakeDetector) Detect(ctx context.Context, imagePath string) ([]dto.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.detections, d.err
}

func (d *fakeDetector) Name() string { return "fake" }
func (d *fakeDetector) Close() error { return nil }

func (d *fakeDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]dto.Detection
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]dto.Detection{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]dto.Detection, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.items[key]
	return d, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, detections []dto.Detection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = detections
	return nil
}

func (c *memoryCache) Close() error { return nil }

type recordingBroadcaster struct {
	events []dto.DetectionEvent
}

func (b *recordingBroadcaster) BroadcastEvent(event dto.DetectionEvent) {
	b.events = append(b.events, event)
}

// ========================================
// Helpers
// ========================================

var twoDetections = []dto.Detection{
	{ClassName: "person", Confidence: 0.92, BBox: dto.BoundingBox{4, 4, 20, 28}},
	{ClassName: "dog", Confidence: 0.61, BBox: dto.BoundingBox{22, 10, 30, 30}},
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 7), uint8(y * 5), 120, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func setupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	tempDir := t.TempDir()
	return &config.Config{
		UploadDirectory: filepath.Join(tempDir, "uploads"),
		ResultDirectory: filepath.Join(tempDir, "results"),
		DatabasePath:    filepath.Join(tempDir, "data", "test.db"),
	}
}

func setupService(t *testing.T, detector ai.Detector, opts ...service.Option) (*service.DetectionService, *config.Config) {
	t.Helper()

	cfg := setupTestConfig(t)
	store, err := storage.NewFileStore(cfg, logger.NewDiscard())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return service.NewDetectionService(store, detector, ai.NewAnnotator(), logger.NewDiscard(), opts...), cfg
}

func setupHistory(t *testing.T, dbPath string) *service.HistoryService {
	t.Helper()

	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return service.NewHistoryService(sqlite.NewUploadRepository(db), sqlite.NewDetectionRepository(db), logger.NewDiscard())
}

func upload(name string, content []byte) service.Upload {
	return service.Upload{Filename: name, Content: bytes.NewReader(content)}
}

// ========================================
// Validation
// ========================================

func TestProcess_ValidationErrors(t *testing.T) {
	svc, cfg := setupService(t, &fakeDetector{})
	content := pngBytes(t, 8, 8)

	tests := []struct {
		name     string
		upload   service.Upload
		expected error
	}{
		{"empty filename", upload("", content), service.ErrNoFile},
		{"blank filename", upload("   ", content), service.ErrNoFile},
		{"no content", service.Upload{Filename: "a.png"}, service.ErrNoFile},
		{"text file", upload("notes.txt", content), service.ErrInvalidFileType},
		{"no extension", upload("picture", content), service.ErrInvalidFileType},
		{"double extension", upload("a.png.exe", content), service.ErrInvalidFileType},
		{"empty file", upload("a.png", nil), service.ErrEmptyFile},
		{"not an image", upload("a.png", []byte("just some text")), service.ErrNotAnImage},
		{"svg", upload("a.png", []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)), service.ErrNotAnImage},
		{"tiff", upload("a.jpg", []byte("II*\x00\x08\x00\x00\x00\x00\x00")), service.ErrNotAnImage},
		{"icon", upload("a.gif", []byte("\x00\x00\x01\x00\x01\x00\x10\x10\x00\x00")), service.ErrNotAnImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), tt.upload)
			if !errors.Is(err, tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, err)
			}
			if status := response.StatusOf(err); status != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", status)
			}
		})
	}

	entries, _ := os.ReadDir(cfg.UploadDirectory)
	if len(entries) != 0 {
		t.Errorf("Rejected uploads must not be stored, found %d files", len(entries))
	}
}

// ========================================
// Processing
// ========================================

func TestProcess_Success(t *testing.T) {
	detector := &fakeDetector{detections: twoDetections}
	svc, cfg := setupService(t, detector)

	result, err := svc.Process(context.Background(), upload("My Cat.png", pngBytes(t, 32, 32)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected success")
	}
	if !strings.HasSuffix(result.OriginalImage, "_My_Cat.png") {
		t.Errorf("Unexpected stored name %s", result.OriginalImage)
	}
	if result.ResultImage != "result_"+result.OriginalImage {
		t.Errorf("Unexpected result name %s", result.ResultImage)
	}
	if len(result.Detections) != len(twoDetections) {
		t.Errorf("Expected %d detections, got %d", len(twoDetections), len(result.Detections))
	}
	if result.Detections[0].ClassName != "person" {
		t.Errorf("Detections out of order: %+v", result.Detections)
	}

	if !storage.Exists(filepath.Join(cfg.UploadDirectory, result.OriginalImage)) {
		t.Error("Original image was not stored")
	}
	if !storage.Exists(filepath.Join(cfg.ResultDirectory, result.ResultImage)) {
		t.Error("Annotated image was not written")
	}
	if detector.Calls() != 1 {
		t.Errorf("Expected 1 detector call, got %d", detector.Calls())
	}
}

func TestProcess_NoDetectionsIsEmptyList(t *testing.T) {
	svc, _ := setupService(t, &fakeDetector{})

	result, err := svc.Process(context.Background(), upload("empty.png", pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Detections == nil || len(result.Detections) != 0 {
		t.Errorf("Expected empty non-nil detections, got %#v", result.Detections)
	}
}

func TestProcess_UniqueNames(t *testing.T) {
	svc, _ := setupService(t, &fakeDetector{})
	content := pngBytes(t, 8, 8)

	first, err := svc.Process(context.Background(), upload("same.png", content))
	if err != nil {
		t.Fatalf("First upload failed: %v", err)
	}
	second, err := svc.Process(context.Background(), upload("same.png", content))
	if err != nil {
		t.Fatalf("Second upload failed: %v", err)
	}

	if first.OriginalImage == second.OriginalImage {
		t.Errorf("Both uploads stored as %s", first.OriginalImage)
	}
	if first.ResultImage == second.ResultImage {
		t.Errorf("Both results stored as %s", first.ResultImage)
	}
}

func TestProcess_ModelUnavailable(t *testing.T) {
	svc, _ := setupService(t, ai.Unavailable(errors.New("model file not found: yolov8n.onnx")))

	_, err := svc.Process(context.Background(), upload("cat.png", pngBytes(t, 8, 8)))

	var procErr *service.ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("Expected ProcessingError, got %v", err)
	}
	if !errors.Is(err, ai.ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable in chain, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "YOLO model not loaded") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if status := response.StatusOf(err); status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", status)
	}
}

func TestProcess_DetectorFailure(t *testing.T) {
	svc, _ := setupService(t, &fakeDetector{err: errors.New("inference exploded")})

	_, err := svc.Process(context.Background(), upload("cat.png", pngBytes(t, 8, 8)))
	if err == nil {
		t.Fatal("Expected error")
	}
	if err.Error() != "Error processing image: inference exploded" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if status := response.StatusOf(err); status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", status)
	}
}

func TestProcess_CorruptImage(t *testing.T) {
	svc, _ := setupService(t, &fakeDetector{})

	// A valid PNG signature followed by garbage passes sniffing but cannot be decoded.
	content := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 64)...)
	_, err := svc.Process(context.Background(), upload("broken.png", content))

	var procErr *service.ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("Expected ProcessingError, got %v", err)
	}
}

// ========================================
// Cache, history and broadcast
// ========================================

func TestProcess_CacheReusesDetections(t *testing.T) {
	detector := &fakeDetector{detections: twoDetections}
	svc, _ := setupService(t, detector, service.WithCache(newMemoryCache()))
	content := pngBytes(t, 16, 16)

	for i := 0; i < 3; i++ {
		result, err := svc.Process(context.Background(), upload("cat.png", content))
		if err != nil {
			t.Fatalf("Upload %d failed: %v", i, err)
		}
		if len(result.Detections) != 2 {
			t.Errorf("Upload %d: expected 2 detections, got %d", i, len(result.Detections))
		}
	}

	if detector.Calls() != 1 {
		t.Errorf("Expected 1 detector call, got %d", detector.Calls())
	}

	if _, err := svc.Process(context.Background(), upload("other.png", pngBytes(t, 17, 16))); err != nil {
		t.Fatalf("Different image failed: %v", err)
	}
	if detector.Calls() != 2 {
		t.Errorf("Different content should miss the cache, got %d calls", detector.Calls())
	}
}

func TestProcess_CacheBypassedWhenUnavailable(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := setupService(t, ai.Unavailable(errors.New("no model")), service.WithCache(cache))

	if _, err := svc.Process(context.Background(), upload("cat.png", pngBytes(t, 8, 8))); err == nil {
		t.Fatal("Expected error")
	}
	if len(cache.items) != 0 {
		t.Errorf("Nothing should be cached, found %d entries", len(cache.items))
	}
}

func TestProcess_RecordsHistory(t *testing.T) {
	cfg := setupTestConfig(t)
	history := setupHistory(t, cfg.DatabasePath)

	svc, _ := setupService(t, &fakeDetector{detections: twoDetections}, service.WithHistory(history))

	result, err := svc.Process(context.Background(), upload("street.png", pngBytes(t, 32, 32)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	info, err := history.Get(result.OriginalImage)
	if err != nil {
		t.Fatalf("History lookup failed: %v", err)
	}
	if info.OriginalName != "street.png" {
		t.Errorf("Expected original name street.png, got %s", info.OriginalName)
	}
	if info.ResultName != result.ResultImage {
		t.Errorf("Expected result %s, got %s", result.ResultImage, info.ResultName)
	}
	if info.Detector != "fake" {
		t.Errorf("Expected detector fake, got %s", info.Detector)
	}
	if info.FileSize <= 0 {
		t.Errorf("Expected positive file size, got %d", info.FileSize)
	}
	if len(info.Detections) != 2 || info.Detections[1].ClassName != "dog" {
		t.Errorf("Unexpected recorded detections %+v", info.Detections)
	}
}

func TestProcess_Broadcasts(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	svc, _ := setupService(t, &fakeDetector{detections: twoDetections}, service.WithBroadcaster(broadcaster))

	result, err := svc.Process(context.Background(), upload("cat.png", pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(broadcaster.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(broadcaster.events))
	}
	event := broadcaster.events[0]
	if event.Type != "detection" || event.OriginalImage != result.OriginalImage || len(event.Detections) != 2 {
		t.Errorf("Unexpected event %+v", event)
	}
}

func TestProcess_NoBroadcastOnFailure(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	svc, _ := setupService(t, &fakeDetector{err: errors.New("boom")}, service.WithBroadcaster(broadcaster))

	svc.Process(context.Background(), upload("cat.png", pngBytes(t, 8, 8)))
	svc.Process(context.Background(), upload("cat.txt", nil))

	if len(broadcaster.events) != 0 {
		t.Errorf("Expected no events, got %d", len(broadcaster.events))
	}
}
