package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileTranscriptStore writes one JSON document per transcript.
// Suitable for single-node deployments.
type FileTranscriptStore struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileTranscriptStore creates a file-based transcript store under config.BaseDir.
func NewFileTranscriptStore(config StoreConfig) (*FileTranscriptStore, error) {
	if config.BaseDir == "" {
		return nil, fmt.Errorf("file store requires base_dir")
	}
	baseDir := filepath.Join(config.BaseDir, "transcripts")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript store directory: %w", err)
	}
	return &FileTranscriptStore{baseDir: baseDir}, nil
}

func (s *FileTranscriptStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileTranscriptStore) Save(ctx context.Context, t *Transcript) error {
	rec, err := prepare(t)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	// Atomic write: write to temp file then rename
	target := s.path(rec.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (s *FileTranscriptStore) Load(ctx context.Context, id string) (*Transcript, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.read(s.path(id))
}

func (s *FileTranscriptStore) read(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript %s: %w", filepath.Base(path), err)
	}
	return &t, nil
}

func (s *FileTranscriptStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	out := make([]*Transcript, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.read(filepath.Join(s.baseDir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sortNewestFirst(out)
	return truncate(out, limit), nil
}

func (s *FileTranscriptStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := os.Stat(s.baseDir)
	return err
}

func (s *FileTranscriptStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
