package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"siren/internal/registry/models"
	id "siren/pkg/domain"
	"siren/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps business records in process, for tests and local runs.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[id.RecordID]models.BusinessRecord
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[id.RecordID]models.BusinessRecord)}
}

// Save stores a copy of record. Saving an existing ID is a conflict.
func (s *InMemoryRecordStore) Save(_ context.Context, record *models.BusinessRecord) error {
	if record == nil {
		return fmt.Errorf("business record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("save business record %s: %w", record.ID, sentinel.ErrConflict)
	}
	s.records[record.ID] = *record
	return nil
}

func (s *InMemoryRecordStore) FindByID(_ context.Context, recordID id.RecordID) (*models.BusinessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

// ListByUser returns the user's records, newest first.
func (s *InMemoryRecordStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.BusinessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.BusinessRecord
	for _, record := range s.records {
		if record.UserID == userID {
			r := record
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
