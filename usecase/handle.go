package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
	"github.com/satriahrh/vaani/internal/observe"
)

const releaseTimeout = 5 * time.Second

// handleSlot owns at most one playable handle. Take and Install are called
// under the session lock; acquire, release and detach talk to the store and
// are called without it. A run takes the previous handle and releases it
// before it acquires the next one.
type handleSlot struct {
	store   repositories.AudioStore
	metrics *observe.Metrics
	logger  *zap.Logger
	current *entities.AudioHandle
}

func newHandleSlot(store repositories.AudioStore, metrics *observe.Metrics, logger *zap.Logger) *handleSlot {
	return &handleSlot{store: store, metrics: metrics, logger: logger}
}

// Take empties the slot and returns the handle it held, or nil
func (s *handleSlot) Take(ctx context.Context) *entities.AudioHandle {
	handle := s.current
	if handle != nil {
		s.current = nil
		s.metrics.HandleReleased(ctx)
	}
	return handle
}

// Install makes handle the live one. The slot is empty: every run starts by taking.
func (s *handleSlot) Install(ctx context.Context, handle *entities.AudioHandle) {
	s.current = handle
	s.metrics.HandleAcquired(ctx)
}

func (s *handleSlot) acquire(ctx context.Context, audio entities.AudioBlob) (*entities.AudioHandle, error) {
	return s.store.Acquire(ctx, audio)
}

// release gives a taken handle back to the store. A failed release is logged
// and the handle is dropped anyway.
func (s *handleSlot) release(ctx context.Context, handle *entities.AudioHandle) {
	if handle == nil {
		return
	}

	// release even when the run that owned the handle was cancelled
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.store.Release(releaseCtx, handle.ID); err != nil {
		s.logger.Warn("Failed to release audio handle", zap.String("audioID", handle.ID), zap.Error(err))
	}
}

// detach hands a taken handle over to the store's expiry
func (s *handleSlot) detach(ctx context.Context, handle *entities.AudioHandle) {
	if handle == nil {
		return
	}

	detachCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.store.Detach(detachCtx, handle.ID); err != nil {
		s.logger.Warn("Failed to detach audio handle", zap.String("audioID", handle.ID), zap.Error(err))
	}
}
