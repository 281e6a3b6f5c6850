package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"time"
	"yoloweb/internal/app"
	"yoloweb/internal/config"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"
	"yoloweb/internal/model"
	"yoloweb/internal/repository/sqlite"
	"yoloweb/internal/service"
	"yoloweb/internal/service/ai"
	"yoloweb/internal/service/storage"
)

// storedPrefix matches "<unix>_" and "<unix>-<n>_" in front of stored names.
var storedPrefix = regexp.MustCompile(`^(\d+)(?:-\d+)?_(.+)$`)

func main() {
	dryRun := flag.Bool("dry-run", false, "List uploads missing from history without changing anything")
	detect := flag.Bool("detect", true, "Run the detector on uploads that have no history record")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabasePath == "" {
		log.Fatalf("DB_PATH is empty, upload history is disabled")
	}

	lg, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Close()

	store, err := storage.NewFileStore(cfg, lg)
	if err != nil {
		log.Fatalf("Failed to open upload store: %v", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	history := service.NewHistoryService(sqlite.NewUploadRepository(db), sqlite.NewDetectionRepository(db), lg)

	var detector ai.Detector = ai.Unavailable(fmt.Errorf("detection disabled"))
	if *detect && !*dryRun {
		detector = app.NewDetector(cfg, lg)
	}
	defer detector.Close()
	annotator := ai.NewAnnotator()

	names, err := store.Uploads()
	if err != nil {
		log.Fatalf("Failed to list uploads: %v", err)
	}

	fmt.Printf("Reindexing %d uploads from %s into %s\n", len(names), cfg.UploadDirectory, cfg.DatabasePath)

	ctx := context.Background()
	added, skipped := 0, 0
	for _, name := range names {
		if exists, err := history.Exists(name); err != nil {
			log.Fatalf("Failed to query history: %v", err)
		} else if exists {
			continue
		}
		if !storage.AllowedFile(name) {
			skipped++
			continue
		}

		if *dryRun {
			fmt.Printf("  missing: %s\n", name)
			added++
			continue
		}

		if err := reindex(ctx, store, history, detector, annotator, name); err != nil {
			log.Printf("Skipping %s: %v", name, err)
			skipped++
			continue
		}
		added++
	}

	if *dryRun {
		fmt.Printf("%d uploads have no history record\n", added)
	} else {
		fmt.Printf("Recorded %d uploads\n", added)
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d files\n", skipped)
	}

	stats, err := history.Stats()
	if err == nil {
		fmt.Printf("\nHistory: %d uploads, %d detections\n", stats.TotalUploads, stats.TotalDetections)
		for _, class := range stats.Classes {
			fmt.Printf("   - %s: %d\n", class.ClassName, class.Count)
		}
	}
}

// reindex records one stored upload. Detections are recomputed when a model
// is available; the annotated result is written if it is missing.
func reindex(ctx context.Context, store *storage.FileStore, history *service.HistoryService,
	detector ai.Detector, annotator *ai.Annotator, name string) error {
	uploadPath, err := store.UploadPath(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(uploadPath)
	if err != nil {
		return err
	}

	detections := []dto.Detection{}
	backend := "reindex"
	if ai.IsAvailable(detector) {
		detections, err = detector.Detect(ctx, uploadPath)
		if err != nil {
			return err
		}
		backend = detector.Name()
	}

	resultName := storage.ResultName(name)
	resultPath, err := store.ResultPath(resultName)
	if err != nil {
		return err
	}
	if !storage.Exists(resultPath) {
		if err := annotator.AnnotateFile(uploadPath, resultPath, detections); err != nil {
			return err
		}
	}

	original, createdAt := parseStoredName(name, info.ModTime())
	return history.Record(&model.Upload{
		OriginalName: original,
		StoredName:   name,
		ResultName:   resultName,
		FileSize:     info.Size(),
		Detector:     backend,
		CreatedAt:    createdAt,
	}, detections)
}

// parseStoredName recovers the sanitized client name and upload time from a
// stored name, falling back to the file's modification time.
func parseStoredName(name string, modTime time.Time) (string, time.Time) {
	m := storedPrefix.FindStringSubmatch(name)
	if m == nil {
		return name, modTime
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return m[2], modTime
	}
	return m[2], time.Unix(ts, 0)
}
