package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
)

// ErrorKind classifies where a pipeline failure came from
type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindTranscription ErrorKind = "transcription"
	KindTranslation   ErrorKind = "translation"
	KindSynthesis     ErrorKind = "synthesis"
	KindService       ErrorKind = "service"
	KindFormat        ErrorKind = "format"
	KindUnknown       ErrorKind = "unknown"
)

// User-facing messages
const (
	MessageGenericFallback  = "An error occurred during the translation process. Please try again."
	MessageUnexpectedFormat = "The translation service returned an unexpected format. Please try again or select a different language."
)

var (
	// ErrStaleRun is returned by a run whose results were discarded because a newer run
	// or a language change superseded it
	ErrStaleRun = errors.New("run superseded")

	// ErrSessionClosed is returned when a closed session is asked to run
	ErrSessionClosed = errors.New("session closed")
)

// PipelineError is the single error type surfaced by a run
type PipelineError struct {
	Kind    ErrorKind
	Stage   entities.Stage
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix = string(e.Stage)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message shown in the error banner
func (e *PipelineError) UserMessage() string {
	switch e.Kind {
	case KindService:
		return e.Message
	case KindFormat:
		return MessageUnexpectedFormat
	case KindTranscription, KindTranslation, KindSynthesis:
		return MessageGenericFallback
	default:
		if e.Message == "" {
			return MessageGenericFallback
		}
		return "Error: " + e.Message
	}
}

// UserMessage converts any error into a user-facing message
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.UserMessage()
	}
	return classify("", err).UserMessage()
}

// KindOf reports the kind of a pipeline error, or KindUnknown
func KindOf(err error) ErrorKind {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// classify tags a collaborator failure by its origin
func classify(stage entities.Stage, err error) *PipelineError {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr
	}

	var serr *domain.ServiceError
	switch {
	case errors.As(err, &serr):
		return &PipelineError{Kind: KindService, Stage: stage, Message: serr.Error(), Err: err}
	case errors.Is(err, domain.ErrUnexpectedFormat):
		return &PipelineError{Kind: KindFormat, Stage: stage, Message: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &PipelineError{Kind: KindUnknown, Stage: stage, Message: "the request timed out", Err: err}
	default:
		return &PipelineError{Kind: KindUnknown, Stage: stage, Message: err.Error(), Err: err}
	}
}

func emptyResult(stage entities.Stage) *PipelineError {
	switch stage {
	case entities.StageTranscribe:
		return &PipelineError{Kind: KindTranscription, Stage: stage, Message: "no text was transcribed from the audio"}
	case entities.StageTranslate:
		return &PipelineError{Kind: KindTranslation, Stage: stage, Message: "no translated text received"}
	default:
		return &PipelineError{Kind: KindSynthesis, Stage: stage, Message: "no audio received"}
	}
}

func invalidInput(format string, args ...any) *PipelineError {
	return &PipelineError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}
