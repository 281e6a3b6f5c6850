package route

import (
	"net/http"
	"yoloweb/internal/config"
	"yoloweb/internal/handler"
	"yoloweb/internal/logger"
	"yoloweb/internal/middleware"
	"yoloweb/internal/service"
	"yoloweb/internal/service/storage"
	wshub "yoloweb/internal/service/websocket"
)

// Dependencies are the services the routes are bound to. History and Hub are
// optional; their endpoints answer 503 or are not registered when nil.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Store     *storage.FileStore
	Detection *service.DetectionService
	History   *service.HistoryService
	Hub       *wshub.HubService
}

// SetupRoutes registers pages, file routes and API endpoints and wraps the
// mux with request ID and access log middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	cfg, logger := deps.Config, deps.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))
	mux.HandleFunc("GET /{$}", handler.IndexHandler(cfg))

	// Upload and stored images
	var upload http.Handler = handler.UploadHandler(deps.Detection, cfg, logger)
	if cfg.UploadRateLimit > 0 {
		upload = middleware.NewRateLimiter(cfg.UploadRateLimit, cfg.UploadRateBurst, logger).Limit(upload)
	}
	mux.Handle("POST /upload", upload)
	mux.HandleFunc("GET /uploads/{filename}", handler.UploadedFileHandler(deps.Store))
	mux.HandleFunc("GET /results/{filename}", handler.ResultFileHandler(deps.Store))

	// API endpoints
	mux.HandleFunc("GET /api/uploads", handler.ListUploadsHandler(deps.History, logger))
	mux.HandleFunc("GET /api/uploads/{filename}", handler.GetUploadHandler(deps.History, logger))
	mux.HandleFunc("GET /api/stats", handler.StatsHandler(deps.History, logger))
	if deps.Hub != nil {
		mux.HandleFunc("GET /api/events", handler.EventsHandler(deps.Hub, logger))
	}
	mux.HandleFunc("GET /health", handler.HealthHandler(deps.Detection.Detector()))

	// Log endpoints, only with an admin token configured
	if cfg.AdminToken != "" {
		admin := middleware.AdminAuth(cfg.AdminToken)
		mux.Handle("GET /logs", admin(handler.ShowLogsHandler(logger)))
		mux.Handle("POST /logs/clear", admin(handler.ClearLogsHandler(logger)))
	}

	return middleware.RequestID(middleware.Logging(logger)(mux))
}
