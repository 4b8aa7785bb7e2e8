package usecase

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
)

func TestRunSucceeds(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	outcome, err := session.HandleRecordingComplete(ctx, recording(10000), "hi")
	if err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}

	state := session.State()
	if state.Transcript != "hello" || state.Translation != "नमस्ते" {
		t.Errorf("Unexpected text results %q / %q", state.Transcript, state.Translation)
	}
	if state.Audio == nil || state.Audio.ID == "" {
		t.Fatal("Expected a playable handle")
	}
	if state.Loading || state.Error != "" {
		t.Errorf("Expected idle state without error, got loading=%v error=%q", state.Loading, state.Error)
	}
	if outcome.Audio.ID != state.Audio.ID {
		t.Errorf("Outcome handle %s differs from state handle %s", outcome.Audio.ID, state.Audio.ID)
	}

	if f.stt.language != "en-IN" {
		t.Errorf("Expected transcription in en-IN, got %s", f.stt.language)
	}
	if f.translator.args != [3]string{"hello", "en-IN", "hi"} {
		t.Errorf("Unexpected translator args %v", f.translator.args)
	}
}

func TestRunWithoutLanguageUsesSelection(t *testing.T) {
	f := newFixture(t, PipelineConfig{DefaultLanguage: "ta"})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	if _, err := session.HandleRecordingComplete(ctx, recording(100), ""); err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}
	if f.translator.args[2] != "ta" {
		t.Errorf("Expected target ta, got %s", f.translator.args[2])
	}
}

func TestRunAdoptsRecordedLanguage(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	if _, err := session.HandleRecordingComplete(ctx, recording(100), "bn-IN"); err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}
	if got := session.State().SelectedLanguage; got != "bn" {
		t.Errorf("Expected selected language bn, got %s", got)
	}
}

func TestStageFailures(t *testing.T) {
	tests := []struct {
		name            string
		setup           func(f *fixture)
		wantKind        ErrorKind
		wantMessage     string
		wantTranscript  string
		wantTranslation string
	}{
		{
			name:        "empty transcription",
			setup:       func(f *fixture) { f.stt.text = "   " },
			wantKind:    KindTranscription,
			wantMessage: MessageGenericFallback,
		},
		{
			name: "transcription service error",
			setup: func(f *fixture) {
				f.stt.err = domain.NewServiceError("sarvam", 500, []byte("internal error"))
			},
			wantKind:    KindService,
			wantMessage: "API error: sarvam returned status 500: internal error",
		},
		{
			name:           "empty translation",
			setup:          func(f *fixture) { f.translator.text = "" },
			wantKind:       KindTranslation,
			wantMessage:    MessageGenericFallback,
			wantTranscript: "hello",
		},
		{
			name: "translation format error",
			setup: func(f *fixture) {
				f.translator.err = domain.FormatError("sarvam", errors.New("invalid character"))
			},
			wantKind:       KindFormat,
			wantMessage:    MessageUnexpectedFormat,
			wantTranscript: "hello",
		},
		{
			name:            "zero length synthesis",
			setup:           func(f *fixture) { f.tts.audio = entities.AudioBlob{MIMEType: "audio/wav"} },
			wantKind:        KindSynthesis,
			wantMessage:     MessageGenericFallback,
			wantTranscript:  "hello",
			wantTranslation: "नमस्ते",
		},
		{
			name:            "synthesis network error",
			setup:           func(f *fixture) { f.tts.err = errors.New("connection refused") },
			wantKind:        KindUnknown,
			wantMessage:     "Error: connection refused",
			wantTranscript:  "hello",
			wantTranslation: "नमस्ते",
		},
		{
			name:            "audio store failure",
			setup:           func(f *fixture) { f.store.acquireErr = errors.New("bucket unavailable") },
			wantKind:        KindUnknown,
			wantMessage:     "Error: bucket unavailable",
			wantTranscript:  "hello",
			wantTranslation: "नमस्ते",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, PipelineConfig{})
			tt.setup(f)
			ctx := context.Background()
			session := f.pipeline.NewSession(ctx, "s1", nil)

			_, err := session.HandleRecordingComplete(ctx, recording(10000), "hi")

			var perr *PipelineError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *PipelineError, got %v", err)
			}
			if perr.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, perr.Kind)
			}

			state := session.State()
			if state.Error != tt.wantMessage {
				t.Errorf("Expected error %q, got %q", tt.wantMessage, state.Error)
			}
			if state.Transcript != tt.wantTranscript {
				t.Errorf("Expected transcript %q, got %q", tt.wantTranscript, state.Transcript)
			}
			if state.Translation != tt.wantTranslation {
				t.Errorf("Expected translation %q, got %q", tt.wantTranslation, state.Translation)
			}
			if state.Audio != nil {
				t.Error("Failed run must not leave a playable handle")
			}
			if state.Loading {
				t.Error("Failed run must clear loading")
			}
			if f.store.Live() != 0 {
				t.Errorf("Expected no live handles, got %d", f.store.Live())
			}
		})
	}
}

func TestTranscriptionFailureSkipsLaterStages(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	f.stt.text = ""
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	_, _ = session.HandleRecordingComplete(ctx, recording(10000), "hi")

	if f.translator.Calls() != 0 || f.tts.calls != 0 {
		t.Errorf("Expected no translate/synthesize calls, got %d/%d", f.translator.Calls(), f.tts.calls)
	}
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		audio       entities.AudioBlob
		language    string
		wantMessage string
	}{
		{"empty audio", entities.AudioBlob{}, "hi", "Error: audio recording is empty"},
		{"too large", recording(2048), "hi", "Error: audio recording exceeds 1024 bytes"},
		{"source language", recording(10), "en-IN", `Error: unsupported language: target "en-IN" must differ from source "en-IN"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, PipelineConfig{MaxAudioBytes: 1024})
			ctx := context.Background()
			session := f.pipeline.NewSession(ctx, "s1", nil)

			_, err := session.HandleRecordingComplete(ctx, tt.audio, tt.language)
			if KindOf(err) != KindInvalidInput {
				t.Fatalf("Expected invalid input, got %v", err)
			}
			if f.stt.Calls() != 0 {
				t.Error("Invalid input must not reach transcription")
			}

			state := session.State()
			if state.Error != tt.wantMessage {
				t.Errorf("Expected error %q, got %q", tt.wantMessage, state.Error)
			}
			if state.Loading {
				t.Error("Rejected run must clear loading")
			}
		})
	}
}

func TestSecondHandleReleasesFirst(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	for i := 0; i < 3; i++ {
		if _, err := session.HandleRecordingComplete(ctx, recording(10000), "hi"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	want := []string{"acquire a1", "release a1", "acquire a2", "release a2", "acquire a3"}
	if got := f.store.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected events %v, got %v", want, got)
	}
	if f.store.maxLive != 1 {
		t.Errorf("Expected at most one live handle, peak was %d", f.store.maxLive)
	}
	if got := session.State().Audio.ID; got != "a3" {
		t.Errorf("Expected current handle a3, got %s", got)
	}
}

func TestChangeLanguageResets(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	if _, err := session.HandleRecordingComplete(ctx, recording(10000), "hi"); err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}
	if err := session.ChangeLanguage(ctx, "ta"); err != nil {
		t.Fatalf("ChangeLanguage: %v", err)
	}

	state := session.State()
	if state.SelectedLanguage != "ta" {
		t.Errorf("Expected ta, got %s", state.SelectedLanguage)
	}
	if state.Transcript != "" || state.Translation != "" || state.Audio != nil || state.Error != "" {
		t.Errorf("Expected cleared state, got %+v", state)
	}
	if f.store.Live() != 0 {
		t.Errorf("Language change must release the handle, %d live", f.store.Live())
	}
}

func TestChangeLanguageClearsError(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	f.stt.text = ""
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	_, _ = session.HandleRecordingComplete(ctx, recording(10000), "hi")
	if session.State().Error == "" {
		t.Fatal("Expected an error before the language change")
	}

	if err := session.ChangeLanguage(ctx, "hi"); err != nil {
		t.Fatalf("ChangeLanguage: %v", err)
	}
	if got := session.State().Error; got != "" {
		t.Errorf("Expected error cleared, got %q", got)
	}
}

func TestChangeLanguageRejectsUnknown(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)
	before := session.State()

	err := session.ChangeLanguage(ctx, "xx")
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("Expected invalid input, got %v", err)
	}
	if !errors.Is(err, entities.ErrUnsupportedLanguage) {
		t.Errorf("Expected ErrUnsupportedLanguage in chain, got %v", err)
	}
	if after := session.State(); !reflect.DeepEqual(before, after) {
		t.Errorf("State changed on rejected language: %+v -> %+v", before, after)
	}
}

func TestLanguageChangeCancelsInFlightRun(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	entered := make(chan struct{})
	f.stt.entered = entered
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	done := make(chan error, 1)
	go func() {
		_, err := session.HandleRecordingComplete(ctx, recording(10000), "hi")
		done <- err
	}()

	<-entered
	if err := session.ChangeLanguage(ctx, "ta"); err != nil {
		t.Fatalf("ChangeLanguage: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrStaleRun) {
			t.Errorf("Expected ErrStaleRun, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run was not cancelled by the language change")
	}

	state := session.State()
	if state.SelectedLanguage != "ta" || state.Error != "" || state.Loading || state.Transcript != "" {
		t.Errorf("Stale run leaked into state: %+v", state)
	}
}

func TestLateResultIsDiscarded(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	entered, proceed := make(chan struct{}), make(chan struct{})
	f.translator.entered = entered
	f.translator.proceed = proceed
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	done := make(chan error, 1)
	go func() {
		_, err := session.HandleRecordingComplete(ctx, recording(10000), "hi")
		done <- err
	}()

	<-entered
	if err := session.ChangeLanguage(ctx, "ta"); err != nil {
		t.Fatalf("ChangeLanguage: %v", err)
	}
	close(proceed)

	if err := <-done; !errors.Is(err, ErrStaleRun) {
		t.Errorf("Expected ErrStaleRun, got %v", err)
	}

	state := session.State()
	if state.Transcript != "" || state.Translation != "" || state.Audio != nil {
		t.Errorf("Late result repopulated state: %+v", state)
	}
	if f.tts.calls != 0 || len(f.store.Events()) != 0 {
		t.Error("Stale run must not synthesize or acquire a handle")
	}
	if rec := f.history.Last(); rec == nil || rec.Status != entities.RunStatusDiscarded {
		t.Errorf("Expected discarded record, got %+v", rec)
	}
}

func TestRunTimeout(t *testing.T) {
	f := newFixture(t, PipelineConfig{Timeout: 20 * time.Millisecond})
	f.stt.entered = make(chan struct{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	_, err := session.HandleRecordingComplete(ctx, recording(10000), "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
	if got := session.State().Error; got != "Error: the request timed out" {
		t.Errorf("Unexpected error message %q", got)
	}
}

func TestListenerSeesOrderedTransitions(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()

	var mu sync.Mutex
	var states []entities.SessionState
	session := f.pipeline.NewSession(ctx, "s1", func(state entities.SessionState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	})

	if _, err := session.HandleRecordingComplete(ctx, recording(10000), "hi"); err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 5 {
		t.Fatalf("Expected 5 transitions, got %d", len(states))
	}
	if !states[0].Loading || states[0].Transcript != "" {
		t.Errorf("First transition should start loading, got %+v", states[0])
	}
	if states[1].Transcript != "hello" || states[1].Translation != "" {
		t.Errorf("Second transition should carry only the transcript, got %+v", states[1])
	}
	if states[2].Translation != "नमस्ते" || states[2].Audio != nil {
		t.Errorf("Third transition should carry the translation, got %+v", states[2])
	}
	if states[3].Audio == nil || !states[3].Loading {
		t.Errorf("Fourth transition should carry the handle while loading, got %+v", states[3])
	}
	if states[4].Loading {
		t.Error("Last transition should stop loading")
	}
}

func TestCloseReleasesHandle(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	if _, err := session.HandleRecordingComplete(ctx, recording(10000), "hi"); err != nil {
		t.Fatalf("HandleRecordingComplete: %v", err)
	}
	session.Close(ctx)
	session.Close(ctx)

	if f.store.Live() != 0 {
		t.Errorf("Close must release the handle, %d live", f.store.Live())
	}
	if _, err := session.HandleRecordingComplete(ctx, recording(10000), "hi"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if err := session.ChangeLanguage(ctx, "ta"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}

func TestLanguageChangeDoesNotWaitForUpload(t *testing.T) {
	f := newFixture(t, PipelineConfig{})
	f.store.acquiring = make(chan struct{})
	f.store.uploaded = make(chan struct{})
	ctx := context.Background()
	session := f.pipeline.NewSession(ctx, "s1", nil)

	done := make(chan error, 1)
	go func() {
		_, err := session.HandleRecordingComplete(ctx, recording(10000), "hi")
		done <- err
	}()
	<-f.store.acquiring

	changed := make(chan error, 1)
	go func() { changed <- session.ChangeLanguage(ctx, "ta") }()
	select {
	case err := <-changed:
		if err != nil {
			t.Fatalf("ChangeLanguage: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ChangeLanguage blocked behind the audio upload")
	}

	close(f.store.uploaded)
	if err := <-done; !errors.Is(err, ErrStaleRun) {
		t.Errorf("Expected ErrStaleRun, got %v", err)
	}

	want := []string{"acquire a1", "release a1"}
	if got := f.store.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected the stale upload to be released, got events %v", got)
	}
	if state := session.State(); state.Audio != nil || state.SelectedLanguage != "ta" {
		t.Errorf("Stale upload leaked into state: %+v", state)
	}
}
