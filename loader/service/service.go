package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"knowledge/loader/internal"
	"knowledge/logger"
	"knowledge/model"
	"knowledge/store"
	"knowledge/types"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Service drives the ingestion pipeline: watch the source directory,
// extract and chunk each stable file, embed the chunks, and persist
// everything. Files move to the archive on success and to the bad
// directory on failure.
type Service struct {
	cfg      types.Config
	log      *logger.Logger
	store    store.DBStorer
	watcher  *internal.FileWatcher
	chunker  *internal.Chunker
	embedder model.Embedder
}

func New(cfg types.Config, storer store.DBStorer, embedder model.Embedder, log *logger.Logger) (*Service, error) {
	watcher, err := internal.NewFileWatcher(cfg, log)
	if err != nil {
		return nil, err
	}
	chunker, err := internal.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		store:    storer,
		watcher:  watcher,
		chunker:  chunker,
		embedder: embedder,
	}, nil
}

func (s *Service) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		s.watcher.Watch(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.processLoop(ctx, fileChan)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	<-sigch
	s.log.Info("received shutdown signal, shutting down gracefully")

	cancel()
	signal.Stop(sigch)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all goroutines stopped")
	case <-shutdownCtx.Done():
		s.log.Warn("timeout waiting for goroutines to stop, forcing shutdown")
	}

	s.log.Info("loader service stopped")
}

func (s *Service) processLoop(ctx context.Context, fileChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case filePath, ok := <-fileChan:
			if !ok {
				return
			}
			if err := s.ingest(ctx, filePath); err != nil {
				s.log.Error("error processing file", "file", filePath, "error", err)
				s.watcher.MoveToArchive(filePath, internal.FileBad)
			}
			s.watcher.Done(filePath)
		}
	}
}

// ingest runs one file through the pipeline. Unchanged content (same hash
// as the stored row) is archived without touching the database.
func (s *Service) ingest(ctx context.Context, filePath string) error {
	s.log.Info("processing file", "file", filePath)

	text, contentType, err := internal.ExtractText(filePath)
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return fmt.Errorf("no text extracted from %s", filePath)
	}

	hash := contentHash(text)

	existing, err := s.store.GetContentBySourcePath(ctx, filePath)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ContentHash == hash {
		s.log.Info("content unchanged, skipping", "file", filePath)
		s.watcher.MoveToArchive(filePath, internal.FileOK)
		return nil
	}

	content := types.Content{
		ID:          uuid.New(),
		Type:        contentType,
		Title:       internal.GenerateTitle(filePath),
		Summary:     summarize(text),
		Metadata:    map[string]string{"namespace": s.cfg.Namespace},
		ContentHash: hash,
		SourcePath:  filePath,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if existing != nil {
		content.ID = existing.ID
		content.CreatedAt = existing.CreatedAt
	}

	chunks := s.chunker.Split(content.ID, text, content.Title)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced from %s", filePath)
	}

	for i := range chunks {
		embedding, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks[i].Embedding = embedding
	}

	if err := s.store.SaveContent(ctx, content); err != nil {
		return err
	}
	if existing != nil {
		if err := s.store.DeleteChunksByContentID(ctx, content.ID); err != nil {
			return err
		}
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return err
	}

	s.log.Info("content saved", "id", content.ID, "title", content.Title, "chunks", len(chunks))
	s.watcher.MoveToArchive(filePath, internal.FileOK)
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// summarize takes the head of the text as a display summary. Kept short so
// the full-text vector stays weighted toward titles and tags.
func summarize(text string) string {
	const maxLen = 500
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}
