package repository

import (
	"yoloweb/internal/dto"
	"yoloweb/internal/model"
)

// UploadRepository defines the interface for upload history operations.
type UploadRepository interface {
	// Create operations
	Insert(upload *model.Upload, detections []dto.Detection) (int64, error)

	// Read operations
	GetByStoredName(storedName string) (*model.Upload, error)
	List(limit, offset int) ([]model.Upload, error)
	Count() (int, error)

	// Delete operations
	DeleteByStoredName(storedName string) error
}

// DetectionRepository defines the interface for detection row operations.
type DetectionRepository interface {
	// Read operations
	GetByUploadID(uploadID int64) ([]model.Detection, error)
	CountByClass() ([]dto.ClassCount, error)
	Count() (int, error)
}
