package service

import (
	"errors"
	"net/http"
	"yoloweb/internal/service/ai"
)

// ValidationError rejects an upload before anything is stored.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

var (
	ErrNoFile          = &ValidationError{Message: "No file selected"}
	ErrInvalidFileType = &ValidationError{Message: "Invalid file type"}
	ErrEmptyFile       = &ValidationError{Message: "Uploaded file is empty"}
	ErrNotAnImage      = &ValidationError{Message: "Uploaded file is not a valid image"}
)

// ProcessingError reports a failure after validation: storing the file,
// running the model or writing the annotated copy. Its text reaches the client.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	if errors.Is(e.Err, ai.ErrModelUnavailable) {
		return e.Err.Error()
	}
	return "Error processing image: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func (e *ProcessingError) StatusCode() int {
	return http.StatusInternalServerError
}
