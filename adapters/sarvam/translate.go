package sarvam

import (
	"context"
	"fmt"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// Translator translates text with Mayura
type Translator struct {
	client *Client
}

var _ repositories.Translator = (*Translator)(nil)

// NewTranslator creates a Mayura adapter
func NewTranslator(client *Client) *Translator {
	return &Translator{client: client}
}

type translateRequest struct {
	Input              string `json:"input"`
	SourceLanguageCode string `json:"source_language_code"`
	TargetLanguageCode string `json:"target_language_code"`
	Model              string `json:"model"`
}

type translateResponse struct {
	RequestID      string  `json:"request_id"`
	TranslatedText *string `json:"translated_text"`
}

// Translate converts text between two Indic locales
func (t *Translator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	var resp translateResponse
	err := t.client.postJSON(ctx, "/translate", translateRequest{
		Input:              text,
		SourceLanguageCode: entities.Locale(sourceLanguage),
		TargetLanguageCode: entities.Locale(targetLanguage),
		Model:              t.client.config.MTModel,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.TranslatedText == nil {
		return "", domain.FormatError(provider, fmt.Errorf("translated_text missing from response"))
	}
	return *resp.TranslatedText, nil
}
