package janitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/repositories"
)

// AudioJanitor periodically drops audio that no session released, such as
// handles handed out by one-shot translations
type AudioJanitor struct {
	store    repositories.AudioExpirer
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewAudioJanitor creates a janitor that expires audio older than ttl every interval
func NewAudioJanitor(store repositories.AudioExpirer, ttl, interval time.Duration, logger *zap.Logger) *AudioJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AudioJanitor{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background cleanup loop
func (j *AudioJanitor) Start() {
	go j.loop()
	j.logger.Info("Audio janitor started",
		zap.Duration("ttl", j.ttl),
		zap.Duration("interval", j.interval))
}

// Stop ends the loop and waits for a sweep in progress to finish
func (j *AudioJanitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		<-j.done
		j.logger.Info("Audio janitor stopped")
	})
}

func (j *AudioJanitor) loop() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.Sweep(context.Background())
		}
	}
}

// Sweep expires detached audio older than the TTL once and returns how many were dropped
func (j *AudioJanitor) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	expired, err := j.store.ExpireOlderThan(ctx, time.Now().Add(-j.ttl))
	if err != nil {
		j.logger.Error("Failed to expire audio", zap.Error(err), zap.Int("expired", expired))
		return expired
	}
	if expired > 0 {
		j.logger.Info("Expired audio", zap.Int("count", expired))
	}
	return expired
}
