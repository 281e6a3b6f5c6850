package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// BackendGoCV runs the ONNX model in-process through OpenCV's DNN module.
	BackendGoCV = "gocv"
	// BackendRemote forwards images to an external inference service.
	BackendRemote = "remote"
)

type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	Environment string // FLASK_ENV, falling back to APP_ENV
	Debug       bool

	UploadDirectory string `validate:"required"`
	ResultDirectory string `validate:"required"`
	StaticDirectory string `validate:"required"`
	MaxUploadSize   int64  `validate:"gt=0"`

	DetectorBackend     string  `validate:"oneof=gocv remote"`
	ModelPath           string  // ONNX network used by the gocv backend
	LabelsPath          string  // optional, one class name per line
	InferenceURL        string  `validate:"omitempty,url"`
	ModelInputSize      int     `validate:"gt=0"`
	ConfidenceThreshold float64 `validate:"gte=0,lte=1"`
	NMSThreshold        float64 `validate:"gte=0,lte=1"`

	DatabasePath string // empty disables upload history

	RedisAddress  string // empty disables the detection cache
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	CacheTTL      time.Duration `validate:"gte=0"`

	UploadRateLimit float64 `validate:"gte=0"` // requests per second per client, 0 disables
	UploadRateBurst int     `validate:"gte=0"`

	LogDirectory string
	AdminToken   string // guards the log endpoints; empty leaves them unregistered
}

// Load reads configuration from the environment, after pulling in a .env file
// when one exists, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	env := getEnv("FLASK_ENV", getEnv("APP_ENV", ""))

	cfg := &Config{
		Port:        getEnvAsInt("PORT", 5000),
		Environment: env,
		Debug:       env == "development",

		UploadDirectory: getEnv("UPLOAD_DIR", "uploads"),
		ResultDirectory: getEnv("RESULTS_DIR", "results"),
		StaticDirectory: getEnv("STATIC_DIR", "static"),
		MaxUploadSize:   getEnvAsInt64("MAX_CONTENT_LENGTH", 16*1024*1024),

		DetectorBackend:     getEnv("DETECTOR_BACKEND", BackendGoCV),
		ModelPath:           getEnv("MODEL_PATH", "yolov8n.onnx"),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		InferenceURL:        getEnv("INFERENCE_URL", ""),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.7),

		DatabasePath: getEnvAllowEmpty("DB_PATH", filepath.Join("data", "detections.db")),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL", 3600)) * time.Second,

		UploadRateLimit: getEnvAsFloat("UPLOAD_RATE_LIMIT", 5),
		UploadRateBurst: getEnvAsInt("UPLOAD_RATE_BURST", 10),

		LogDirectory: getEnvAllowEmpty("LOG_DIR", "logs"),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the cross-field rules the tags can't express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DetectorBackend == BackendRemote && c.InferenceURL == "" {
		return errors.New("invalid configuration: INFERENCE_URL is required for the remote detector")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv for keys where an explicit empty value switches a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
