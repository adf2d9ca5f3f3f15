package internal

import (
	"context"
	"fmt"
	"io"
	"knowledge/logger"
	"knowledge/types"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Archive destinations for a processed file.
const (
	FileOK = iota
	FileBad
)

// FileWatcher polls the source directory and emits files that have been
// stable for longer than the monitoring window. A file is tracked from the
// moment it first appears; emitting only after the quiet period avoids
// picking up files still being written.
type FileWatcher struct {
	cfg types.Config
	log *logger.Logger

	mu              sync.Mutex
	fileFirstSeen   map[string]time.Time
	filesProcessing map[string]bool
}

func NewFileWatcher(cfg types.Config, log *logger.Logger) (*FileWatcher, error) {
	if err := createDirectories(cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir); err != nil {
		return nil, fmt.Errorf("create loader directories: %w", err)
	}
	return &FileWatcher{
		cfg:             cfg,
		log:             log,
		fileFirstSeen:   make(map[string]time.Time),
		filesProcessing: make(map[string]bool),
	}, nil
}

func (w *FileWatcher) Watch(ctx context.Context, fileChan chan<- string) {
	w.log.Info("start monitoring folder", "dir", w.cfg.SourceDir)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("file watcher stopped")
			return
		case <-ticker.C:
			w.scan(ctx, fileChan)
		}
	}
}

func (w *FileWatcher) scan(ctx context.Context, fileChan chan<- string) {
	files, err := os.ReadDir(w.cfg.SourceDir)
	if err != nil {
		w.log.Error("error reading source directory", "error", err)
		return
	}

	currentFiles := make(map[string]bool)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		filePath := filepath.Join(w.cfg.SourceDir, file.Name())
		currentFiles[filePath] = true

		w.mu.Lock()
		if w.filesProcessing[filePath] {
			w.mu.Unlock()
			continue
		}
		firstSeen, seen := w.fileFirstSeen[filePath]
		if !seen {
			w.fileFirstSeen[filePath] = time.Now()
			w.log.Info("new file detected", "file", filePath)
			w.mu.Unlock()
			continue
		}
		w.mu.Unlock()

		if time.Since(firstSeen) < w.cfg.MonitoringTime {
			continue
		}

		w.mu.Lock()
		w.filesProcessing[filePath] = true
		w.mu.Unlock()

		select {
		case fileChan <- filePath:
		case <-ctx.Done():
			return
		}
	}

	// Drop tracking for files that disappeared from the directory.
	w.mu.Lock()
	for filePath := range w.fileFirstSeen {
		if !currentFiles[filePath] {
			delete(w.fileFirstSeen, filePath)
			delete(w.filesProcessing, filePath)
		}
	}
	w.mu.Unlock()
}

// Done releases a file from the processing set once the pipeline finished
// with it.
func (w *FileWatcher) Done(filePath string) {
	w.mu.Lock()
	delete(w.filesProcessing, filePath)
	delete(w.fileFirstSeen, filePath)
	w.mu.Unlock()
}

// MoveToArchive copies the file into a dated archive (or bad) directory and
// removes the original. Name collisions get a numeric suffix.
func (w *FileWatcher) MoveToArchive(filePath string, fileState int) {
	destRoot := w.cfg.ArchiveDir
	if fileState == FileBad {
		destRoot = w.cfg.BadDir
	}

	destDir := filepath.Join(destRoot, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		w.log.Error("error creating archive directory", "error", err)
		return
	}

	destPath := filepath.Join(destDir, filepath.Base(filePath))
	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(filePath)
		baseName := strings.TrimSuffix(filepath.Base(filePath), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
		counter++
	}

	if err := copyFile(filePath, destPath); err != nil {
		w.log.Error("error moving file to archive", "file", filePath, "error", err)
		return
	}
	os.Remove(filePath)
	w.log.Info("file archived", "dest", destPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func createDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
