package service

import (
	"fmt"
	"net/http"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"
	"yoloweb/internal/model"
	"yoloweb/internal/repository"
	"yoloweb/internal/response"
)

// ErrUploadNotFound is returned when no history record matches a stored name.
var ErrUploadNotFound = response.NewError(http.StatusNotFound, "upload not found")

// HistoryService records processed uploads and answers history queries.
type HistoryService struct {
	uploads    repository.UploadRepository
	detections repository.DetectionRepository
	logger     *logger.Logger
}

func NewHistoryService(uploads repository.UploadRepository, detections repository.DetectionRepository, logger *logger.Logger) *HistoryService {
	return &HistoryService{
		uploads:    uploads,
		detections: detections,
		logger:     logger,
	}
}

// Record stores an upload together with its detections, all or nothing.
func (h *HistoryService) Record(upload *model.Upload, detections []dto.Detection) error {
	id, err := h.uploads.Insert(upload, detections)
	if err != nil {
		return fmt.Errorf("upload %s: %w", upload.StoredName, err)
	}
	upload.ID = id
	return nil
}

// Exists reports whether an upload with this stored name was recorded.
func (h *HistoryService) Exists(storedName string) (bool, error) {
	upload, err := h.uploads.GetByStoredName(storedName)
	return upload != nil, err
}

// List returns one page of history, newest first. page is 1-based.
func (h *HistoryService) List(page, limit int) (*dto.UploadsPage, error) {
	total, err := h.uploads.Count()
	if err != nil {
		return nil, err
	}

	uploads, err := h.uploads.List(limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	infos := make([]dto.UploadInfo, 0, len(uploads))
	for _, upload := range uploads {
		info, err := h.info(upload)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}

	return &dto.UploadsPage{
		Uploads:     infos,
		Length:      total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// Get returns the record of one stored upload.
func (h *HistoryService) Get(storedName string) (*dto.UploadInfo, error) {
	upload, err := h.uploads.GetByStoredName(storedName)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrUploadNotFound
	}
	return h.info(*upload)
}

// Stats summarises the whole history.
func (h *HistoryService) Stats() (*dto.Stats, error) {
	uploads, err := h.uploads.Count()
	if err != nil {
		return nil, err
	}
	detections, err := h.detections.Count()
	if err != nil {
		return nil, err
	}
	classes, err := h.detections.CountByClass()
	if err != nil {
		return nil, err
	}

	return &dto.Stats{
		TotalUploads:    uploads,
		TotalDetections: detections,
		Classes:         classes,
	}, nil
}

func (h *HistoryService) info(upload model.Upload) (*dto.UploadInfo, error) {
	rows, err := h.detections.GetByUploadID(upload.ID)
	if err != nil {
		return nil, err
	}

	detections := make([]dto.Detection, 0, len(rows))
	for _, row := range rows {
		detections = append(detections, dto.Detection{
			ClassName:  row.ClassName,
			Confidence: row.Confidence,
			BBox:       dto.BoundingBox{row.X1, row.Y1, row.X2, row.Y2},
		})
	}

	return &dto.UploadInfo{
		OriginalName: upload.OriginalName,
		StoredName:   upload.StoredName,
		ResultName:   upload.ResultName,
		FileSize:     upload.FileSize,
		Detector:     upload.Detector,
		CreatedAt:    upload.CreatedAt,
		Detections:   detections,
	}, nil
}
