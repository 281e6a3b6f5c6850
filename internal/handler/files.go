package handler

import (
	"net/http"
	"path/filepath"
	"yoloweb/internal/config"
	"yoloweb/internal/service/storage"
)

// UploadedFileHandler serves GET /uploads/{filename}.
func UploadedFileHandler(store *storage.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveStored(w, r, store.UploadPath)
	}
}

// ResultFileHandler serves GET /results/{filename}.
func ResultFileHandler(store *storage.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveStored(w, r, store.ResultPath)
	}
}

func serveStored(w http.ResponseWriter, r *http.Request, resolve func(string) (string, error)) {
	path, err := resolve(r.PathValue("filename"))
	if err != nil || !storage.Exists(path) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// IndexHandler serves the upload page from the static directory.
func IndexHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := filepath.Join(cfg.StaticDirectory, "index.html")
		if !storage.Exists(filePath) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}
