package openai

import (
	"context"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/satriahrh/vaani/adapters/llm"
	"github.com/satriahrh/vaani/domain/repositories"
)

// Translator translates text with a chat completion model
type Translator struct {
	client *Client
}

var _ repositories.Translator = (*Translator)(nil)

// NewTranslator creates a chat translation adapter
func NewTranslator(client *Client) *Translator {
	return &Translator{client: client}
}

// Translate returns the model's answer or an empty string when it gave none
func (t *Translator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	resp, err := t.client.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: t.client.config.ChatModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.TranslationSystemPrompt(sourceLanguage, targetLanguage)},
			{Role: goopenai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", apiError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return llm.CleanTranslation(resp.Choices[0].Message.Content), nil
}
