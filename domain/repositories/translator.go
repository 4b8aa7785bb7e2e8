package repositories

import "context"

// Translator abstracts text translation services
type Translator interface {
	// Translate converts text from the source language to the target language
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}
