package adapters

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

type storedAudio struct {
	audio     entities.AudioBlob
	createdAt time.Time
	detached  bool
}

// MemoryAudioStore keeps synthesized audio in process memory and serves it
// through the audio endpoint of the API
type MemoryAudioStore struct {
	mu        sync.RWMutex
	audio     map[string]storedAudio // id -> audio
	urlPrefix string
}

var (
	_ repositories.AudioStore   = (*MemoryAudioStore)(nil)
	_ repositories.AudioExpirer = (*MemoryAudioStore)(nil)
)

// NewMemoryAudioStore creates a store whose handle URLs are urlPrefix + id
func NewMemoryAudioStore(urlPrefix string) *MemoryAudioStore {
	return &MemoryAudioStore{
		audio:     make(map[string]storedAudio),
		urlPrefix: strings.TrimRight(urlPrefix, "/") + "/",
	}
}

// Acquire implements AudioStore
func (m *MemoryAudioStore) Acquire(ctx context.Context, audio entities.AudioBlob) (*entities.AudioHandle, error) {
	if audio.Empty() {
		return nil, errors.New("audio cannot be empty")
	}

	now := time.Now()
	id := uuid.NewString()

	m.mu.Lock()
	m.audio[id] = storedAudio{audio: audio, createdAt: now}
	m.mu.Unlock()

	return &entities.AudioHandle{
		ID:        id,
		URL:       m.urlPrefix + id,
		MIMEType:  audio.MIMEType,
		Size:      audio.Size(),
		CreatedAt: now,
	}, nil
}

// Release implements AudioStore
func (m *MemoryAudioStore) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.audio[id]; !exists {
		return repositories.ErrAudioNotFound
	}
	delete(m.audio, id)
	return nil
}

// Open implements AudioStore
func (m *MemoryAudioStore) Open(ctx context.Context, id string) (entities.AudioBlob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, exists := m.audio[id]
	if !exists {
		return entities.AudioBlob{}, repositories.ErrAudioNotFound
	}
	return stored.audio, nil
}

// Detach implements AudioStore
func (m *MemoryAudioStore) Detach(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.audio[id]
	if !exists {
		return repositories.ErrAudioNotFound
	}
	stored.detached = true
	m.audio[id] = stored
	return nil
}

// ExpireOlderThan implements AudioExpirer. Audio still owned by a session is kept.
func (m *MemoryAudioStore) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, stored := range m.audio {
		if stored.detached && stored.createdAt.Before(cutoff) {
			delete(m.audio, id)
			expired++
		}
	}
	return expired, nil
}

// Len returns the number of stored audio blobs
func (m *MemoryAudioStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.audio)
}
