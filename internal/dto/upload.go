package dto

// UploadResponse is returned by POST /upload on success.
type UploadResponse struct {
	Success       bool        `json:"success"`
	OriginalImage string      `json:"original_image"`
	ResultImage   string      `json:"result_image"`
	Detections    []Detection `json:"detections"`
}

// DetectionEvent is broadcast to websocket viewers after each processed upload.
type DetectionEvent struct {
	Type          string      `json:"type"`
	OriginalImage string      `json:"original_image"`
	ResultImage   string      `json:"result_image"`
	Detections    []Detection `json:"detections"`
	Cached        bool        `json:"cached"`
}
