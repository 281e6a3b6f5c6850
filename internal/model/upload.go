package model

import "time"

// Upload is one processed upload.
type Upload struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	ResultName   string    `json:"result_name"`
	FileSize     int64     `json:"file_size"`
	Detector     string    `json:"detector"`
	CreatedAt    time.Time `json:"created_at"`
}
