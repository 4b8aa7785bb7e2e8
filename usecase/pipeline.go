package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
	"github.com/satriahrh/vaani/internal/observe"
)

const historyTimeout = 5 * time.Second

// PipelineConfig holds the tunables of a TranslationPipeline
type PipelineConfig struct {
	SourceLanguage  string
	Languages       []entities.Language
	DefaultLanguage string
	// Timeout bounds a whole run; zero means no timeout
	Timeout time.Duration
	// MaxAudioBytes rejects larger recordings; zero means no limit
	MaxAudioBytes int
}

// TranslationPipeline sequences transcription, translation and synthesis.
// It is shared by all sessions; per-user state lives in Session.
type TranslationPipeline struct {
	speechToText repositories.SpeechToText
	translator   repositories.Translator
	textToSpeech repositories.TextToSpeech
	audioStore   repositories.AudioStore
	history      repositories.HistoryRepository
	catalog      *entities.Catalog
	config       PipelineConfig
	metrics      *observe.Metrics
	logger       *zap.Logger
}

// NewTranslationPipeline creates a new pipeline. history and metrics may be nil.
func NewTranslationPipeline(
	config PipelineConfig,
	stt repositories.SpeechToText,
	translator repositories.Translator,
	tts repositories.TextToSpeech,
	audioStore repositories.AudioStore,
	history repositories.HistoryRepository,
	metrics *observe.Metrics,
	logger *zap.Logger,
) (*TranslationPipeline, error) {
	if stt == nil || translator == nil || tts == nil || audioStore == nil {
		return nil, errors.New("speech-to-text, translator, text-to-speech and audio store are required")
	}
	if config.SourceLanguage == "" {
		config.SourceLanguage = entities.DefaultSourceLanguage
	}
	if len(config.Languages) == 0 {
		config.Languages = entities.DefaultLanguages
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = entities.DefaultTargetLanguage
	}

	catalog, err := entities.NewCatalog(config.SourceLanguage, config.Languages)
	if err != nil {
		return nil, err
	}
	if err := catalog.ValidateTarget(config.DefaultLanguage); err != nil {
		return nil, fmt.Errorf("default language: %w", err)
	}

	return &TranslationPipeline{
		speechToText: stt,
		translator:   translator,
		textToSpeech: tts,
		audioStore:   audioStore,
		history:      history,
		catalog:      catalog,
		config:       config,
		metrics:      metrics,
		logger:       logger,
	}, nil
}

// Catalog returns the supported languages
func (p *TranslationPipeline) Catalog() *entities.Catalog {
	return p.catalog
}

// DefaultLanguage returns the target language new sessions start with
func (p *TranslationPipeline) DefaultLanguage() string {
	return p.config.DefaultLanguage
}

// NewSession opens a session with the default language selected.
// listener is called with a snapshot after every state transition and may be nil.
func (p *TranslationPipeline) NewSession(ctx context.Context, id string, listener StateListener) *Session {
	p.metrics.SessionOpened(ctx)
	return &Session{
		id:       id,
		pipeline: p,
		listener: listener,
		state:    entities.NewSessionState(p.config.DefaultLanguage),
		slot:     newHandleSlot(p.audioStore, p.metrics, p.logger),
		logger:   p.logger.With(zap.String("sessionID", id)),
	}
}

// Translate runs the pipeline once outside of any interactive session.
// The produced audio handle is not released; the audio store expires it.
func (p *TranslationPipeline) Translate(ctx context.Context, sessionID string, audio entities.AudioBlob, targetLanguage string) (*domain.TranslationResult, error) {
	session := p.NewSession(ctx, sessionID, nil)
	defer session.Close(ctx)

	_, runErr := session.HandleRecordingComplete(ctx, audio, targetLanguage)

	state := session.State()
	result := &domain.TranslationResult{
		SessionID:      sessionID,
		SourceLanguage: p.catalog.Source(),
		TargetLanguage: state.SelectedLanguage,
		Transcript:     state.Transcript,
		Translation:    state.Translation,
		Error:          state.Error,
	}
	if runErr != nil {
		result.ErrorKind = string(KindOf(runErr))
		return result, runErr
	}

	if handle := session.detachAudio(ctx); handle != nil {
		result.AudioID = handle.ID
		result.AudioURL = handle.URL
	}
	return result, nil
}

// History lists recent runs of a session, newest first
func (p *TranslationPipeline) History(ctx context.Context, sessionID string, limit int) ([]*entities.TranslationRecord, error) {
	if p.history == nil {
		return []*entities.TranslationRecord{}, nil
	}
	return p.history.ListRecent(ctx, sessionID, limit)
}

func (p *TranslationPipeline) validate(audio entities.AudioBlob, language string) (entities.Language, error) {
	if audio.Empty() {
		return entities.Language{}, invalidInput("audio recording is empty")
	}
	if p.config.MaxAudioBytes > 0 && audio.Size() > p.config.MaxAudioBytes {
		return entities.Language{}, invalidInput("audio recording exceeds %d bytes", p.config.MaxAudioBytes)
	}
	if err := p.catalog.ValidateTarget(language); err != nil {
		return entities.Language{}, &PipelineError{Kind: KindInvalidInput, Message: err.Error(), Err: err}
	}
	return p.catalog.Lookup(language)
}

func (p *TranslationPipeline) transcribe(ctx context.Context, record *entities.TranslationRecord, audio entities.AudioBlob) (string, error) {
	started := time.Now()
	text, err := p.speechToText.TranscribeAudio(ctx, audio, p.catalog.Source())
	text = strings.TrimSpace(text)
	if err != nil {
		err = classify(entities.StageTranscribe, err)
	} else if text == "" {
		err = emptyResult(entities.StageTranscribe)
	}
	p.traceStage(ctx, record, entities.StageTranscribe, started, err)
	return text, err
}

func (p *TranslationPipeline) translate(ctx context.Context, record *entities.TranslationRecord, text, target string) (string, error) {
	started := time.Now()
	translated, err := p.translator.Translate(ctx, text, p.catalog.Source(), target)
	translated = strings.TrimSpace(translated)
	if err != nil {
		err = classify(entities.StageTranslate, err)
	} else if translated == "" {
		err = emptyResult(entities.StageTranslate)
	}
	p.traceStage(ctx, record, entities.StageTranslate, started, err)
	return translated, err
}

func (p *TranslationPipeline) synthesize(ctx context.Context, record *entities.TranslationRecord, text, target string) (entities.AudioBlob, error) {
	started := time.Now()
	audio, err := p.textToSpeech.Synthesize(ctx, text, target)
	if err != nil {
		err = classify(entities.StageSynthesize, err)
	} else if audio.Empty() {
		err = emptyResult(entities.StageSynthesize)
	}
	p.traceStage(ctx, record, entities.StageSynthesize, started, err)
	return audio, err
}

func (p *TranslationPipeline) traceStage(ctx context.Context, record *entities.TranslationRecord, stage entities.Stage, started time.Time, err error) {
	record.AddStage(stage, started, err)
	p.metrics.RecordStage(ctx, string(stage), time.Since(started), err)
}

// finishRecord stores the outcome of a run and counts it
func (p *TranslationPipeline) finishRecord(ctx context.Context, record *entities.TranslationRecord, runErr error) {
	switch {
	case runErr == nil:
		record.Status = entities.RunStatusSucceeded
	case errors.Is(runErr, ErrStaleRun):
		record.Status = entities.RunStatusDiscarded
	default:
		record.Status = entities.RunStatusFailed
		record.ErrorKind = string(KindOf(runErr))
		record.Error = runErr.Error()
	}
	p.metrics.RecordRun(ctx, string(record.Status), record.ErrorKind)

	if p.history == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := p.history.Save(saveCtx, record); err != nil {
		p.logger.Error("Failed to save translation record",
			zap.String("sessionID", record.SessionID),
			zap.Error(err))
	}
}
