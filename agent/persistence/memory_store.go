package persistence

import (
	"context"
	"sync"
)

// MemoryTranscriptStore keeps transcripts in process memory.
// Suitable for development and tests.
type MemoryTranscriptStore struct {
	mu          sync.RWMutex
	transcripts map[string]*Transcript
	closed      bool
}

// NewMemoryTranscriptStore creates an in-memory transcript store
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{transcripts: make(map[string]*Transcript)}
}

func (s *MemoryTranscriptStore) Save(ctx context.Context, t *Transcript) error {
	rec, err := prepare(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.transcripts[rec.ID] = rec
	return nil
}

func (s *MemoryTranscriptStore) Load(ctx context.Context, id string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	t, ok := s.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryTranscriptStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*Transcript, 0, len(s.transcripts))
	for _, t := range s.transcripts {
		out = append(out, clone(t))
	}
	sortNewestFirst(out)
	return truncate(out, limit), nil
}

func (s *MemoryTranscriptStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemoryTranscriptStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
