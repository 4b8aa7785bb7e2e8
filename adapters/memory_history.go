package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// MemoryHistoryRepository keeps the most recent records in memory
type MemoryHistoryRepository struct {
	mu       sync.RWMutex
	records  []*entities.TranslationRecord
	capacity int
}

var _ repositories.HistoryRepository = (*MemoryHistoryRepository)(nil)

// NewMemoryHistoryRepository creates a repository holding at most capacity records
func NewMemoryHistoryRepository(capacity int) *MemoryHistoryRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryHistoryRepository{
		records:  make([]*entities.TranslationRecord, 0, capacity),
		capacity: capacity,
	}
}

// Save implements HistoryRepository. The oldest record is dropped when full.
func (m *MemoryHistoryRepository) Save(ctx context.Context, record *entities.TranslationRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) == m.capacity {
		copy(m.records, m.records[1:])
		m.records = m.records[:len(m.records)-1]
	}
	stored := *record
	stored.Stages = append([]entities.StageTrace(nil), record.Stages...)
	m.records = append(m.records, &stored)
	return nil
}

// ListRecent implements HistoryRepository
func (m *MemoryHistoryRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entities.TranslationRecord, error) {
	if limit <= 0 {
		return []*entities.TranslationRecord{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*entities.TranslationRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(records) < limit; i-- {
		if m.records[i].SessionID == sessionID {
			record := *m.records[i]
			records = append(records, &record)
		}
	}
	return records, nil
}
