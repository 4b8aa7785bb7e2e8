package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
)

// StateListener receives a snapshot after every state transition.
// It is called with the session lock held and must not call back into the session.
type StateListener func(state entities.SessionState)

// RunOutcome is the result of a successful run
type RunOutcome struct {
	Generation  uint64
	Transcript  string
	Translation string
	Audio       *entities.AudioHandle
}

// Session owns the state of one translator UI and its playable handle.
// Starting a run or changing the language supersedes any run in flight.
type Session struct {
	id       string
	pipeline *TranslationPipeline
	listener StateListener
	logger   *zap.Logger

	mu        sync.Mutex
	state     entities.SessionState
	slot      *handleSlot
	cancelRun context.CancelFunc
	closed    bool
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns a snapshot of the current state
func (s *Session) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// HandleRecordingComplete runs the pipeline on a finished recording.
// An empty language means the currently selected one. Stage failures are
// recorded in the session state and returned as *PipelineError; a run that
// was superseded returns an error wrapping ErrStaleRun.
func (s *Session) HandleRecordingComplete(ctx context.Context, audio entities.AudioBlob, language string) (outcome *RunOutcome, err error) {
	p := s.pipeline

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if language == "" {
		language = s.state.SelectedLanguage
	}
	target, invalid := p.validate(audio, language)
	if invalid == nil {
		language = target.Code
		s.state.SelectedLanguage = target.Code
	}

	s.cancelInFlight()
	runCtx, cancel := s.runContext(ctx)
	s.cancelRun = cancel
	previous := s.slot.Take(ctx)
	generation := s.state.BeginRun()
	s.notify()
	s.mu.Unlock()

	s.slot.release(ctx, previous)

	logger := s.logger.With(zap.Uint64("generation", generation), zap.String("language", language))
	logger.Info("Processing recording", zap.Int("bytes", audio.Size()), zap.String("mimeType", audio.MIMEType))

	record := entities.NewTranslationRecord(s.id, p.catalog.Source(), language, audio.Size())
	defer func() {
		cancel()
		p.finishRecord(ctx, record, err)
	}()
	defer s.finish(generation)

	if invalid != nil {
		return nil, s.fail(ctx, generation, invalid)
	}
	return s.run(runCtx, generation, record, audio, language, logger)
}

// ChangeLanguage selects a new target language. Results, error and the
// playable handle are cleared and any run in flight is cancelled.
func (s *Session) ChangeLanguage(ctx context.Context, code string) error {
	lang, err := s.pipeline.catalog.Lookup(code)
	if err == nil {
		err = s.pipeline.catalog.ValidateTarget(lang.Code)
	}
	if err != nil {
		return &PipelineError{Kind: KindInvalidInput, Message: err.Error(), Err: err}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.cancelInFlight()
	previous := s.slot.Take(ctx)
	s.state.SelectLanguage(lang.Code)
	s.notify()
	s.mu.Unlock()

	s.slot.release(ctx, previous)
	s.logger.Info("Language changed", zap.String("language", lang.Code))
	return nil
}

// Close cancels any run in flight and releases the playable handle
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelInFlight()
	previous := s.slot.Take(ctx)
	s.state.Reset()
	s.mu.Unlock()

	s.slot.release(ctx, previous)
	s.pipeline.metrics.SessionClosed(ctx)
}

func (s *Session) run(ctx context.Context, generation uint64, record *entities.TranslationRecord, audio entities.AudioBlob, target string, logger *zap.Logger) (*RunOutcome, error) {
	p := s.pipeline

	transcript, err := p.transcribe(ctx, record, audio)
	if err != nil {
		return nil, s.fail(ctx, generation, err)
	}
	record.Transcript = transcript
	if err := s.apply(generation, func(state *entities.SessionState) { state.SetTranscript(transcript) }); err != nil {
		return nil, err
	}
	logger.Info("Transcription completed", zap.String("text", transcript))

	translation, err := p.translate(ctx, record, transcript, target)
	if err != nil {
		return nil, s.fail(ctx, generation, err)
	}
	record.Translation = translation
	if err := s.apply(generation, func(state *entities.SessionState) { state.SetTranslation(translation) }); err != nil {
		return nil, err
	}
	logger.Info("Translation completed", zap.String("text", translation))

	speech, err := p.synthesize(ctx, record, translation, target)
	if err != nil {
		return nil, s.fail(ctx, generation, err)
	}
	record.AudioSize = speech.Size()

	handle, err := s.attachAudio(ctx, generation, speech)
	if err != nil {
		return nil, err
	}
	logger.Info("Synthesis completed", zap.String("audioID", handle.ID), zap.Int("bytes", handle.Size))

	return &RunOutcome{
		Generation:  generation,
		Transcript:  transcript,
		Translation: translation,
		Audio:       handle,
	}, nil
}

// apply mutates the state if generation is still current
func (s *Session) apply(generation uint64, fn func(state *entities.SessionState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsCurrent(generation) {
		return ErrStaleRun
	}
	fn(&s.state)
	s.notify()
	return nil
}

// attachAudio stores the synthesized audio and installs its handle. The upload
// happens without the lock; a run that went stale meanwhile releases it again.
func (s *Session) attachAudio(ctx context.Context, generation uint64, speech entities.AudioBlob) (*entities.AudioHandle, error) {
	if !s.isCurrent(generation) {
		return nil, ErrStaleRun
	}

	handle, err := s.slot.acquire(ctx, speech)
	if err != nil {
		return nil, s.fail(ctx, generation, classify(entities.StageSynthesize, err))
	}

	s.mu.Lock()
	if !s.state.IsCurrent(generation) {
		s.mu.Unlock()
		s.slot.release(ctx, handle)
		return nil, ErrStaleRun
	}
	s.slot.Install(ctx, handle)
	s.state.SetAudio(handle)
	s.notify()
	s.mu.Unlock()

	return handle, nil
}

func (s *Session) fail(ctx context.Context, generation uint64, err error) error {
	s.mu.Lock()
	if !s.state.IsCurrent(generation) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrStaleRun, err)
	}
	previous := s.slot.Take(ctx)
	s.state.Fail(UserMessage(err))
	s.mu.Unlock()

	s.slot.release(ctx, previous)
	s.logger.Error("Translation run failed",
		zap.Uint64("generation", generation),
		zap.String("kind", string(KindOf(err))),
		zap.Error(err))
	return err
}

// finish clears loading for the run that is still current
func (s *Session) finish(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsCurrent(generation) {
		return
	}
	s.state.Finish()
	s.notify()
}

// detachAudio hands the playable handle over to the store's expiry
func (s *Session) detachAudio(ctx context.Context) *entities.AudioHandle {
	s.mu.Lock()
	handle := s.slot.Take(ctx)
	s.mu.Unlock()

	s.slot.detach(ctx, handle)
	return handle
}

func (s *Session) isCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsCurrent(generation)
}

func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.pipeline.config.Timeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Session) cancelInFlight() {
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
}

func (s *Session) notify() {
	if s.listener != nil {
		s.listener(s.state.Snapshot())
	}
}
