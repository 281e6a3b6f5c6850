package handler

import (
	"context"
	"errors"
	"net/http"
	"yoloweb/internal/config"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"
	"yoloweb/internal/middleware"
	"yoloweb/internal/response"
	"yoloweb/internal/service"
)

// ErrFileTooLarge is reported when the request body exceeds MAX_CONTENT_LENGTH.
var ErrFileTooLarge = response.NewError(http.StatusRequestEntityTooLarge, "File too large")

// Processor runs an upload through detection.
type Processor interface {
	Process(ctx context.Context, upload service.Upload) (*dto.UploadResponse, error)
}

// UploadHandler handles POST /upload with the image in multipart field "file".
func UploadHandler(processor Processor, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				logger.Warning("[%s] Upload rejected: body over %d bytes", requestID, cfg.MaxUploadSize)
				response.Fail(w, ErrFileTooLarge)
				return
			}
			logger.Debug("[%s] No file in upload: %v", requestID, err)
			response.Fail(w, service.ErrNoFile)
			return
		}
		defer file.Close()

		result, err := processor.Process(r.Context(), service.Upload{
			Filename: header.Filename,
			Content:  file,
		})
		if err != nil {
			if status := response.Fail(w, err); status >= http.StatusInternalServerError {
				logger.Error("[%s] Upload %q failed: %v", requestID, header.Filename, err)
			} else {
				logger.Warning("[%s] Upload %q rejected: %v", requestID, header.Filename, err)
			}
			return
		}

		if err := response.JSON(w, http.StatusOK, result); err != nil {
			logger.Error("[%s] Error encoding JSON response: %v", requestID, err)
		}
	}
}
