package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// greetings answers the phrase the mock recognizer returns for short recordings
var greetings = map[string]string{
	"hi": "नमस्ते",
	"bn": "নমস্কার",
	"gu": "નમસ્તે",
	"kn": "ನಮಸ್ಕಾರ",
	"ml": "നമസ്കാരം",
	"mr": "नमस्कार",
	"od": "ନମସ୍କାର",
	"pa": "ਸਤ ਸ੍ਰੀ ਅਕਾਲ",
	"ta": "வணக்கம்",
	"te": "నమస్కారం",
}

// MockTranslator is a placeholder implementation for translation
type MockTranslator struct {
	logger *zap.Logger
}

// NewMockTranslator creates a new mock translator
func NewMockTranslator(logger *zap.Logger) repositories.Translator {
	return &MockTranslator{logger: logger}
}

// Translate returns a known greeting or tags the text with the target language
func (m *MockTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	m.logger.Info("Processing mock translation",
		zap.String("source", sourceLanguage),
		zap.String("target", targetLanguage))

	if text == "" {
		return "", nil
	}
	target := entities.BaseLanguage(targetLanguage)
	if greeting, ok := greetings[target]; ok && text == "hello" {
		return greeting, nil
	}
	return fmt.Sprintf("[%s] %s", target, text), nil
}
