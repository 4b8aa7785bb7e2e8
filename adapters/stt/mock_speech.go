package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeAudio returns a canned phrase chosen by recording size
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audio entities.AudioBlob, language string) (string, error) {
	s.logger.Info("Processing mock speech-to-text",
		zap.Int("audioSize", audio.Size()),
		zap.String("mimeType", audio.MIMEType),
		zap.String("language", language))

	switch {
	case audio.Size() > 50000:
		return "Could you tell me the way to the railway station?", nil
	case audio.Size() > 10000:
		return "Thank you very much for your help.", nil
	case audio.Size() > 0:
		return "hello", nil
	default:
		return "", nil
	}
}
