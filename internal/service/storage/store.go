package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"yoloweb/internal/config"
	"yoloweb/internal/logger"
)

// maxNameAttempts bounds the disambiguation loop for uploads sharing a second and a name.
const maxNameAttempts = 1000

// ErrInvalidName is returned for names that would escape the store directories.
var ErrInvalidName = errors.New("invalid file name")

// FileStore keeps uploads and annotated results in two flat directories.
type FileStore struct {
	uploadDir string
	resultDir string
	now       func() time.Time
	logger    *logger.Logger
}

// NewFileStore creates a FileStore and makes sure both directories exist.
func NewFileStore(cfg *config.Config, logger *logger.Logger) (*FileStore, error) {
	for _, dir := range []string{cfg.UploadDirectory, cfg.ResultDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &FileStore{
		uploadDir: cfg.UploadDirectory,
		resultDir: cfg.ResultDirectory,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// SetClock replaces the time source used for name prefixes.
func (s *FileStore) SetClock(now func() time.Time) {
	s.now = now
}

// SaveUpload writes r under a new, unique, timestamp-prefixed name built from
// the already sanitized name. It returns the stored name and the bytes written.
func (s *FileStore) SaveUpload(name string, r io.Reader) (string, int64, error) {
	ts := s.now().Unix()

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		stored := fmt.Sprintf("%d_%s", ts, name)
		if attempt > 0 {
			stored = fmt.Sprintf("%d-%d_%s", ts, attempt, name)
		}

		fullpath := filepath.Join(s.uploadDir, stored)
		file, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to create %s: %w", stored, err)
		}

		n, err := io.Copy(file, r)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(fullpath)
			return "", 0, fmt.Errorf("failed to write %s: %w", stored, err)
		}

		s.logger.Debug("Saved upload %s (%d bytes)", stored, n)
		return stored, n, nil
	}

	return "", 0, fmt.Errorf("no free name for %s after %d attempts", name, maxNameAttempts)
}

// UploadPath returns the on-disk path of a stored upload.
func (s *FileStore) UploadPath(name string) (string, error) {
	return join(s.uploadDir, name)
}

// ResultPath returns the on-disk path of an annotated result.
func (s *FileStore) ResultPath(name string) (string, error) {
	return join(s.resultDir, name)
}

// Uploads lists stored upload names in ascending order.
func (s *FileStore) Uploads() ([]string, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func join(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", ErrInvalidName
	}
	return filepath.Join(dir, name), nil
}
