package openai

import (
	"bytes"
	"context"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// SpeechToText transcribes recordings with Whisper
type SpeechToText struct {
	client *Client
}

var _ repositories.SpeechToText = (*SpeechToText)(nil)

// NewSpeechToText creates a Whisper adapter
func NewSpeechToText(client *Client) *SpeechToText {
	return &SpeechToText{client: client}
}

// TranscribeAudio uploads the recording; the file name only tells the API the container format
func (s *SpeechToText) TranscribeAudio(ctx context.Context, audio entities.AudioBlob, language string) (string, error) {
	resp, err := s.client.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    s.client.config.TranscriptionModel,
		FilePath: "recording" + audio.FileExtension(),
		Reader:   bytes.NewReader(audio.Data),
		Language: entities.BaseLanguage(language),
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", apiError(err)
	}

	s.client.logger.Info("Whisper transcription completed", zap.Int("length", len(resp.Text)))
	return resp.Text, nil
}
