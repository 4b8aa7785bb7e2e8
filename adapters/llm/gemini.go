package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/repositories"
)

const (
	geminiProvider = "gemini"

	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.2
	defaultMaxTokens   = 1024
	maxAttempts        = 3
)

// GeminiConfig holds configuration for the Gemini translator
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}

	return nil
}

// contentGenerator is the subset of genai.Models used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiTranslator implements Translator using Google's Gemini API
type GeminiTranslator struct {
	models          contentGenerator
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	backoff         time.Duration
}

var _ repositories.Translator = (*GeminiTranslator)(nil)

// NewGeminiTranslator creates a new Gemini translator
func NewGeminiTranslator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTranslator, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiTranslator(client.Models, config, logger), nil
}

func newGeminiTranslator(models contentGenerator, config GeminiConfig, logger *zap.Logger) *GeminiTranslator {
	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultTemperature)
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
	}

	return &GeminiTranslator{
		models:          models,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		backoff:         time.Second,
	}
}

// Translate asks the model for a plain translation of text
func (g *GeminiTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(TranslationSystemPrompt(sourceLanguage, targetLanguage), genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err = g.models.GenerateContent(ctx, g.model, contents, config)
		if err == nil || !retryable(err) {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * g.backoff):
			}
		}
	}
	if err != nil {
		return "", geminiError(err)
	}

	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("No content generated for translation")
		return "", nil
	}

	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}

	return CleanTranslation(b.String()), nil
}

// retryable reports whether a Gemini failure is worth another attempt
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ServiceError{Provider: geminiProvider, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("failed to generate content: %w", err)
}
