package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/satriahrh/vaani/domain/entities"
)

// ErrAudioNotFound is returned when a handle has been released or never existed
var ErrAudioNotFound = errors.New("audio not found")

// AudioStore turns synthesized audio into playable handles.
// Every handle returned by Acquire is owned by its caller until it is passed
// to Release, or to Detach when nobody will release it.
type AudioStore interface {
	Acquire(ctx context.Context, audio entities.AudioBlob) (*entities.AudioHandle, error)
	Release(ctx context.Context, id string) error
	Open(ctx context.Context, id string) (entities.AudioBlob, error)

	// Detach gives up ownership of a handle. Only detached audio expires.
	Detach(ctx context.Context, id string) error
}

// AudioExpirer is implemented by stores that can drop detached audio,
// such as handles handed out by one-shot translations
type AudioExpirer interface {
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// HistoryRepository persists finished pipeline runs
type HistoryRepository interface {
	Save(ctx context.Context, record *entities.TranslationRecord) error
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*entities.TranslationRecord, error)
}
