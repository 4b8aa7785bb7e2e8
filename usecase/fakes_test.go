package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

type fakeSTT struct {
	mu       sync.Mutex
	text     string
	err      error
	calls    int
	language string

	// when set, the call signals entered and waits for cancellation
	entered chan struct{}
}

func (f *fakeSTT) TranscribeAudio(ctx context.Context, audio entities.AudioBlob, language string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.language = language
	entered := f.entered
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func (f *fakeSTT) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranslator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	args  [3]string

	// when set, the call signals entered and waits for proceed, ignoring ctx
	entered chan struct{}
	proceed chan struct{}
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.args = [3]string{text, source, target}
	entered, proceed := f.entered, f.proceed
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-proceed
	}
	return f.text, f.err
}

func (f *fakeTranslator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTTS struct {
	audio entities.AudioBlob
	err   error
	calls int
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, language string) (entities.AudioBlob, error) {
	f.calls++
	return f.audio, f.err
}

// countingStore records acquire/release order and the peak number of live handles
type countingStore struct {
	mu         sync.Mutex
	next       int
	live       map[string]entities.AudioBlob
	maxLive    int
	events     []string
	acquireErr error

	// when set, Acquire signals acquiring and waits for uploaded
	acquiring chan struct{}
	uploaded  chan struct{}
}

func newCountingStore() *countingStore {
	return &countingStore{live: make(map[string]entities.AudioBlob)}
}

func (s *countingStore) Acquire(ctx context.Context, audio entities.AudioBlob) (*entities.AudioHandle, error) {
	s.mu.Lock()
	acquiring, uploaded := s.acquiring, s.uploaded
	s.mu.Unlock()
	if acquiring != nil {
		close(acquiring)
		<-uploaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.next++
	id := fmt.Sprintf("a%d", s.next)
	s.live[id] = audio
	if len(s.live) > s.maxLive {
		s.maxLive = len(s.live)
	}
	s.events = append(s.events, "acquire "+id)
	return &entities.AudioHandle{ID: id, URL: "/api/v1/audio/" + id, MIMEType: audio.MIMEType, Size: audio.Size()}, nil
}

func (s *countingStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; !ok {
		return repositories.ErrAudioNotFound
	}
	delete(s.live, id)
	s.events = append(s.events, "release "+id)
	return nil
}

func (s *countingStore) Detach(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; !ok {
		return repositories.ErrAudioNotFound
	}
	s.events = append(s.events, "detach "+id)
	return nil
}

func (s *countingStore) Open(ctx context.Context, id string) (entities.AudioBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	audio, ok := s.live[id]
	if !ok {
		return entities.AudioBlob{}, repositories.ErrAudioNotFound
	}
	return audio, nil
}

func (s *countingStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *countingStore) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type fakeHistory struct {
	mu      sync.Mutex
	records []*entities.TranslationRecord
}

func (h *fakeHistory) Save(ctx context.Context, record *entities.TranslationRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

func (h *fakeHistory) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entities.TranslationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*entities.TranslationRecord
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		if h.records[i].SessionID == sessionID {
			out = append(out, h.records[i])
		}
	}
	return out, nil
}

func (h *fakeHistory) Last() *entities.TranslationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return nil
	}
	return h.records[len(h.records)-1]
}

type fixture struct {
	stt        *fakeSTT
	translator *fakeTranslator
	tts        *fakeTTS
	store      *countingStore
	history    *fakeHistory
	pipeline   *TranslationPipeline
}

func newFixture(t *testing.T, config PipelineConfig) *fixture {
	t.Helper()
	f := &fixture{
		stt:        &fakeSTT{text: "hello"},
		translator: &fakeTranslator{text: "नमस्ते"},
		tts:        &fakeTTS{audio: entities.AudioBlob{Data: make([]byte, 2048), MIMEType: "audio/wav"}},
		store:      newCountingStore(),
		history:    &fakeHistory{},
	}

	pipeline, err := NewTranslationPipeline(config, f.stt, f.translator, f.tts, f.store, f.history, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTranslationPipeline: %v", err)
	}
	f.pipeline = pipeline
	return f
}

func recording(size int) entities.AudioBlob {
	return entities.AudioBlob{Data: make([]byte, size), MIMEType: "audio/webm;codecs=opus"}
}
