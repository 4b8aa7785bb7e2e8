package repositories

import (
	"context"

	"github.com/satriahrh/vaani/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts recorded audio in the given language to text
	TranscribeAudio(ctx context.Context, audio entities.AudioBlob, language string) (string, error)
}
