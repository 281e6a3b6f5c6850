package handler

import (
	"net/http"
	"yoloweb/internal/response"
	"yoloweb/internal/service/ai"
)

type healthStatus struct {
	Status      string `json:"status"`
	Detector    string `json:"detector"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HealthHandler reports liveness and whether a model is loaded.
func HealthHandler(detector ai.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, healthStatus{
			Status:      "ok",
			Detector:    detector.Name(),
			ModelLoaded: ai.IsAvailable(detector),
		})
	}
}
