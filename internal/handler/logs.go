package handler

import (
	"net/http"
	"yoloweb/internal/logger"
	"yoloweb/internal/response"
	"yoloweb/internal/service/storage"
)

// ShowLogsHandler serves the application log file as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := logger.FilePath()
		if filePath == "" || !storage.Exists(filePath) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Log file not found"))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler rotates the application log.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := logger.CleanLogs(); err != nil {
			response.Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
