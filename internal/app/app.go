package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"yoloweb/internal/config"
	"yoloweb/internal/logger"
	"yoloweb/internal/repository/sqlite"
	"yoloweb/internal/route"
	"yoloweb/internal/service"
	"yoloweb/internal/service/ai"
	"yoloweb/internal/service/ai/gocvnet"
	"yoloweb/internal/service/cache"
	"yoloweb/internal/service/storage"
	wshub "yoloweb/internal/service/websocket"
)

const (
	inferenceTimeout = 60 * time.Second
	healthTimeout    = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// App owns every long-lived resource of the server. New acquires them and
// Close releases them in reverse order.
type App struct {
	config   *config.Config
	logger   *logger.Logger
	detector ai.Detector
	cache    cache.DetectionCache
	db       *sqlite.DB
	hub      *wshub.HubService
	handler  http.Handler
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log}

	store, err := storage.NewFileStore(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.detector = NewDetector(cfg, log)
	opts := []service.Option{}

	var history *service.HistoryService
	if cfg.DatabasePath != "" {
		a.db, err = sqlite.New(cfg.DatabasePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		history = service.NewHistoryService(sqlite.NewUploadRepository(a.db), sqlite.NewDetectionRepository(a.db), log)
		opts = append(opts, service.WithHistory(history))
		log.Info("Upload history stored in %s", cfg.DatabasePath)
	}

	if cfg.RedisAddress != "" {
		redisCache, err := cache.NewRedisCache(cfg, log)
		if err != nil {
			log.Warning("Detection cache disabled: %v", err)
		} else {
			a.cache = redisCache
			opts = append(opts, service.WithCache(redisCache))
		}
	}

	a.hub = wshub.NewHubService(log)
	opts = append(opts, service.WithBroadcaster(a.hub))

	detection := service.NewDetectionService(store, a.detector, ai.NewAnnotator(), log, opts...)

	a.handler = route.SetupRoutes(route.Dependencies{
		Config:    cfg,
		Logger:    log,
		Store:     store,
		Detection: detection,
		History:   history,
		Hub:       a.hub,
	})

	return a, nil
}

// NewDetector loads the configured backend. A backend that cannot be loaded is
// replaced by ai.Unavailable so the server still starts.
func NewDetector(cfg *config.Config, log *logger.Logger) ai.Detector {
	switch cfg.DetectorBackend {
	case config.BackendRemote:
		remote := ai.NewRemoteDetector(cfg.InferenceURL, inferenceTimeout, log)
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		if err := remote.CheckHealth(ctx); err != nil {
			log.Warning("Inference service at %s is not healthy yet: %v", cfg.InferenceURL, err)
		}
		return remote
	default:
		labels, err := ai.LoadLabels(cfg.LabelsPath)
		if err != nil {
			log.Error("Failed to load labels: %v", err)
			return ai.Unavailable(err)
		}
		detector, err := gocvnet.New(cfg, labels, log)
		if err != nil {
			log.Error("Failed to load YOLO model: %v", err)
			return ai.Unavailable(err)
		}
		return detector
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	a.logger.Info("YOLO detection server listening on http://%s", a.config.Addr())
	a.logger.Info("Uploads: %s, results: %s, detector: %s, debug: %t",
		a.config.UploadDirectory, a.config.ResultDirectory, a.detector.Name(), a.config.Debug)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Close releases the model, cache, database and log file.
func (a *App) Close() error {
	var errs []error
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}
