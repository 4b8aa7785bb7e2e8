package llm

import (
	"fmt"
	"strings"

	"github.com/satriahrh/vaani/domain/entities"
)

const translationInstruction = "You are a professional translator. Translate the user's text from %s (%s) to %s (%s). " +
	"Reply with the translation only, in the native script of the target language, without quotes, notes or transliteration."

// TranslationSystemPrompt instructs a chat model to answer with a bare translation
func TranslationSystemPrompt(sourceLanguage, targetLanguage string) string {
	return fmt.Sprintf(translationInstruction,
		entities.LanguageName(sourceLanguage), sourceLanguage,
		entities.LanguageName(targetLanguage), targetLanguage)
}

// CleanTranslation strips wrapping the model sometimes adds around the answer
func CleanTranslation(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		if (text[0] == '"' && text[len(text)-1] == '"') || (text[0] == '\'' && text[len(text)-1] == '\'') {
			text = text[1 : len(text)-1]
		}
	}
	return strings.TrimSpace(text)
}
