package dto

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UploadInfo describes one processed upload in the history API.
type UploadInfo struct {
	OriginalName string      `json:"original_name"`
	StoredName   string      `json:"original_image"`
	ResultName   string      `json:"result_image"`
	FileSize     int64       `json:"file_size"`
	Detector     string      `json:"detector"`
	CreatedAt    time.Time   `json:"created_at"`
	Detections   []Detection `json:"detections"`
}

// MarshalJSON formats CreatedAt as RFC 3339 in UTC.
func (u UploadInfo) MarshalJSON() ([]byte, error) {
	type Alias UploadInfo
	return json.Marshal(&struct {
		CreatedAt string `json:"created_at"`
		Alias
	}{
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		Alias:     (Alias)(u),
	})
}

// UploadsPage is a page of upload history.
type UploadsPage struct {
	Uploads     []UploadInfo `json:"uploads"`
	Length      int          `json:"length"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Limit       int          `json:"limit"`
}

// ClassCount is the number of detections recorded for a class.
type ClassCount struct {
	ClassName string `json:"class_name"`
	Count     int    `json:"count"`
}

// Stats summarises the upload history.
type Stats struct {
	TotalUploads    int          `json:"total_uploads"`
	TotalDetections int          `json:"total_detections"`
	Classes         []ClassCount `json:"classes"`
}
