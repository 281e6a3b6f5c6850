package handler

import (
	"net/http"
	"strconv"
	"yoloweb/internal/logger"
	"yoloweb/internal/response"
	"yoloweb/internal/service"
)

const maxPageLimit = 100

// ErrHistoryDisabled is returned by the history API when no database is configured.
var ErrHistoryDisabled = response.NewError(http.StatusServiceUnavailable, "Upload history is disabled")

// ListUploadsHandler returns a page of processed uploads, newest first.
func ListUploadsHandler(history *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			response.Fail(w, ErrHistoryDisabled)
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := min(atoiDefault(q.Get("limit"), 24), maxPageLimit)

		data, err := history.List(page, limit)
		if err != nil {
			logger.Error("Error querying uploads from database: %v", err)
			response.Fail(w, err)
			return
		}

		if err := response.JSON(w, http.StatusOK, data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// GetUploadHandler returns the history record of one stored upload.
func GetUploadHandler(history *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			response.Fail(w, ErrHistoryDisabled)
			return
		}

		info, err := history.Get(r.PathValue("filename"))
		if err != nil {
			if response.StatusOf(err) >= http.StatusInternalServerError {
				logger.Error("Error reading upload %s: %v", r.PathValue("filename"), err)
			}
			response.Fail(w, err)
			return
		}

		response.JSON(w, http.StatusOK, info)
	}
}

// StatsHandler returns detection counts per class.
func StatsHandler(history *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			response.Fail(w, ErrHistoryDisabled)
			return
		}

		stats, err := history.Stats()
		if err != nil {
			logger.Error("Error computing stats: %v", err)
			response.Fail(w, err)
			return
		}

		response.JSON(w, http.StatusOK, stats)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
