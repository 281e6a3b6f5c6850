package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"yoloweb/internal/dto"
	"yoloweb/internal/model"
)

// UploadRepository implements repository.UploadRepository for SQLite.
type UploadRepository struct {
	db *DB
}

// NewUploadRepository creates a new SQLite upload repository.
func NewUploadRepository(db *DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Insert adds an upload record and its detections in one transaction, so a
// failed detection row leaves no upload behind.
func (r *UploadRepository) Insert(upload *model.Upload, detections []dto.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO uploads (original_name, stored_name, result_name, file_size, detector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, upload.OriginalName, upload.StoredName, upload.ResultName, upload.FileSize, upload.Detector, upload.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read upload id: %w", err)
	}

	if len(detections) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO detections (upload_id, class_name, confidence, x1, y1, x2, y2)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, det := range detections {
			if _, err := stmt.Exec(id, det.ClassName, det.Confidence,
				det.BBox[0], det.BBox[1], det.BBox[2], det.BBox[3]); err != nil {
				return 0, fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upload: %w", err)
	}
	return id, nil
}

// GetByStoredName retrieves an upload by its stored file name. It returns nil, nil when absent.
func (r *UploadRepository) GetByStoredName(storedName string) (*model.Upload, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var upload model.Upload
	err := r.db.Conn().QueryRow(`
		SELECT id, original_name, stored_name, result_name, file_size, detector, created_at
		FROM uploads WHERE stored_name = ?
	`, storedName).Scan(&upload.ID, &upload.OriginalName, &upload.StoredName, &upload.ResultName,
		&upload.FileSize, &upload.Detector, &upload.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return &upload, nil
}

// List returns uploads newest first.
func (r *UploadRepository) List(limit, offset int) ([]model.Upload, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, original_name, stored_name, result_name, file_size, detector, created_at
		FROM uploads ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	uploads := []model.Upload{}
	for rows.Next() {
		var upload model.Upload
		if err := rows.Scan(&upload.ID, &upload.OriginalName, &upload.StoredName, &upload.ResultName,
			&upload.FileSize, &upload.Detector, &upload.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, upload)
	}

	return uploads, rows.Err()
}

// Count returns the number of recorded uploads.
func (r *UploadRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM uploads`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return count, nil
}

// DeleteByStoredName removes an upload and, through the foreign key, its detections.
func (r *UploadRepository) DeleteByStoredName(storedName string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM uploads WHERE stored_name = ?`, storedName); err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}
