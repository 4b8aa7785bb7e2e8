package sarvam

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// TextToSpeech synthesizes speech with Bulbul
type TextToSpeech struct {
	client *Client
}

var _ repositories.TextToSpeech = (*TextToSpeech)(nil)

// NewTextToSpeech creates a Bulbul adapter
func NewTextToSpeech(client *Client) *TextToSpeech {
	return &TextToSpeech{client: client}
}

type speechRequest struct {
	Text               string `json:"text"`
	TargetLanguageCode string `json:"target_language_code"`
	Speaker            string `json:"speaker"`
	Model              string `json:"model"`
}

type speechResponse struct {
	RequestID string   `json:"request_id"`
	Audios    []string `json:"audios"`
}

// Synthesize returns WAV audio for text. A response without audio yields an empty blob.
func (t *TextToSpeech) Synthesize(ctx context.Context, text, language string) (entities.AudioBlob, error) {
	var resp speechResponse
	err := t.client.postJSON(ctx, "/text-to-speech", speechRequest{
		Text:               text,
		TargetLanguageCode: entities.Locale(language),
		Speaker:            t.client.config.Speaker,
		Model:              t.client.config.TTSModel,
	}, &resp)
	if err != nil {
		return entities.AudioBlob{}, err
	}

	if len(resp.Audios) == 0 {
		return entities.AudioBlob{MIMEType: "audio/wav"}, nil
	}
	data, err := base64.StdEncoding.DecodeString(resp.Audios[0])
	if err != nil {
		return entities.AudioBlob{}, domain.FormatError(provider, fmt.Errorf("audio is not base64: %w", err))
	}

	return entities.AudioBlob{Data: data, MIMEType: "audio/wav"}, nil
}
