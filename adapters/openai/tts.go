package openai

import (
	"context"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// TextToSpeech synthesizes MP3 speech
type TextToSpeech struct {
	client *Client
}

var _ repositories.TextToSpeech = (*TextToSpeech)(nil)

// NewTextToSpeech creates a speech adapter
func NewTextToSpeech(client *Client) *TextToSpeech {
	return &TextToSpeech{client: client}
}

// Synthesize renders text; the voice infers the language from the script
func (t *TextToSpeech) Synthesize(ctx context.Context, text, language string) (entities.AudioBlob, error) {
	resp, err := t.client.api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(t.client.config.SpeechModel),
		Input:          text,
		Voice:          goopenai.SpeechVoice(t.client.config.Voice),
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return entities.AudioBlob{}, apiError(err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return entities.AudioBlob{}, fmt.Errorf("failed to read speech: %w", err)
	}
	return entities.AudioBlob{Data: data, MIMEType: "audio/mpeg"}, nil
}
