// Package openai adapts the OpenAI audio and chat endpoints to the pipeline:
// Whisper for recognition, a chat model for translation and the speech endpoint for synthesis.
package openai

import (
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain"
)

const provider = "openai"

// Config holds configuration for the OpenAI adapters
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	ChatModel          string
	SpeechModel        string
	Voice              string
}

// Client wraps the go-openai client shared by the adapters
type Client struct {
	api    *goopenai.Client
	config Config
	logger *zap.Logger
}

// NewClient validates config and applies defaults
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if config.TranscriptionModel == "" {
		config.TranscriptionModel = goopenai.Whisper1
	}
	if config.ChatModel == "" {
		config.ChatModel = goopenai.GPT4oMini
	}
	if config.SpeechModel == "" {
		config.SpeechModel = string(goopenai.TTSModel1)
	}
	if config.Voice == "" {
		config.Voice = string(goopenai.VoiceAlloy)
	}

	apiConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiConfig.BaseURL = config.BaseURL
	}

	return &Client{
		api:    goopenai.NewClientWithConfig(apiConfig),
		config: config,
		logger: logger,
	}, nil
}

// apiError maps go-openai failures onto domain errors
func apiError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ServiceError{Provider: provider, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &domain.ServiceError{Provider: provider, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}
