package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/vaani/adapters"
	"github.com/satriahrh/vaani/adapters/llm"
	"github.com/satriahrh/vaani/adapters/stt"
	"github.com/satriahrh/vaani/adapters/tts"
	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/usecase"
)

type fakeExpirer struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakeExpirer) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 2, f.err
}

func (f *fakeExpirer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweepUsesTTL(t *testing.T) {
	store := &fakeExpirer{}
	janitor := NewAudioJanitor(store, 10*time.Minute, time.Hour, zaptest.NewLogger(t))

	before := time.Now()
	if got := janitor.Sweep(context.Background()); got != 2 {
		t.Errorf("Expected 2 expired, got %d", got)
	}

	cutoff := store.cutoffs[0]
	if cutoff.After(before.Add(-10*time.Minute).Add(time.Second)) || cutoff.Before(before.Add(-11*time.Minute)) {
		t.Errorf("Cutoff %s is not about ten minutes ago", cutoff)
	}
}

func TestSweepReportsErrors(t *testing.T) {
	store := &fakeExpirer{err: errors.New("bucket unavailable")}
	janitor := NewAudioJanitor(store, time.Minute, time.Hour, zaptest.NewLogger(t))

	if got := janitor.Sweep(context.Background()); got != 2 {
		t.Errorf("Expected partial count 2, got %d", got)
	}
}

func TestJanitorRunsUntilStopped(t *testing.T) {
	store := &fakeExpirer{}
	janitor := NewAudioJanitor(store, time.Minute, 5*time.Millisecond, zaptest.NewLogger(t))

	janitor.Start()
	deadline := time.Now().Add(time.Second)
	for store.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	janitor.Stop()
	janitor.Stop()

	calls := store.calls()
	if calls < 2 {
		t.Fatalf("Expected at least 2 sweeps, got %d", calls)
	}
	time.Sleep(20 * time.Millisecond)
	if store.calls() != calls {
		t.Error("Janitor kept sweeping after Stop")
	}
}

func TestSweepKeepsAudioHeldBySession(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	store := adapters.NewMemoryAudioStore("/api/v1/audio")
	pipeline, err := usecase.NewTranslationPipeline(usecase.PipelineConfig{},
		stt.NewMockSpeechToText(logger), llm.NewMockTranslator(logger), tts.NewMockTextToSpeech(logger),
		store, nil, nil, logger)
	if err != nil {
		t.Fatalf("NewTranslationPipeline: %v", err)
	}

	session := pipeline.NewSession(ctx, "s1", nil)
	defer session.Close(ctx)
	recording := entities.AudioBlob{Data: make([]byte, 1000), MIMEType: "audio/webm"}
	if _, err := session.HandleRecordingComplete(ctx, recording, "hi"); err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}
	oneShot, err := pipeline.Translate(ctx, "rest-1", recording, "hi")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	time.Sleep(time.Millisecond)

	janitor := NewAudioJanitor(store, time.Nanosecond, time.Hour, logger)
	if got := janitor.Sweep(ctx); got != 1 {
		t.Errorf("Expected only the one-shot audio to expire, got %d", got)
	}

	held := session.State().Audio
	if held == nil {
		t.Fatal("Session should still hold a handle")
	}
	if _, err := store.Open(ctx, held.ID); err != nil {
		t.Errorf("Audio held by the session must stay playable: %v", err)
	}
	if _, err := store.Open(ctx, oneShot.AudioID); err == nil {
		t.Error("One-shot audio should have expired")
	}
}
