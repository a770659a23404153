package tokencache

import (
	"context"
	"sync/atomic"

	"siren/internal/registry/models"
)

// MemoryStore keeps the token in process. Readers never block a writer.
type MemoryStore struct {
	current atomic.Pointer[models.BearerToken]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (models.BearerToken, bool, error) {
	token := s.current.Load()
	if token == nil {
		return models.BearerToken{}, false, nil
	}
	return *token, true, nil
}

func (s *MemoryStore) Set(_ context.Context, token models.BearerToken) error {
	s.current.Store(&token)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.current.Store(nil)
	return nil
}
