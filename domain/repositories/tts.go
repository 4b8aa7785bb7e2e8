package repositories

import (
	"context"

	"github.com/satriahrh/vaani/domain/entities"
)

// TextToSpeech abstracts speech synthesis services
type TextToSpeech interface {
	// Synthesize renders text spoken in the given language
	Synthesize(ctx context.Context, text, language string) (entities.AudioBlob, error)
}
