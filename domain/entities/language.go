package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Default language codes
const (
	DefaultSourceLanguage = "en-IN"
	DefaultTargetLanguage = "hi"
)

// Language describes a language the translator can target
type Language struct {
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Locale string `json:"locale" yaml:"locale"`
}

// DefaultLanguages lists the languages offered by the language selector
var DefaultLanguages = []Language{
	{Code: "hi", Name: "Hindi", Locale: "hi-IN"},
	{Code: "bn", Name: "Bengali", Locale: "bn-IN"},
	{Code: "gu", Name: "Gujarati", Locale: "gu-IN"},
	{Code: "kn", Name: "Kannada", Locale: "kn-IN"},
	{Code: "ml", Name: "Malayalam", Locale: "ml-IN"},
	{Code: "mr", Name: "Marathi", Locale: "mr-IN"},
	{Code: "od", Name: "Odia", Locale: "od-IN"},
	{Code: "pa", Name: "Punjabi", Locale: "pa-IN"},
	{Code: "ta", Name: "Tamil", Locale: "ta-IN"},
	{Code: "te", Name: "Telugu", Locale: "te-IN"},
}

// ErrUnsupportedLanguage is returned when a language code is not in the catalog
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Catalog is the set of target languages known to the server
type Catalog struct {
	source    string
	languages []Language
	byCode    map[string]Language
}

// NewCatalog creates a catalog for the given source language.
// The source language itself is never a valid target.
func NewCatalog(source string, languages []Language) (*Catalog, error) {
	if source == "" {
		return nil, errors.New("source language is required")
	}
	if len(languages) == 0 {
		return nil, errors.New("at least one target language is required")
	}

	c := &Catalog{
		source: source,
		byCode: make(map[string]Language, len(languages)),
	}
	for _, lang := range languages {
		if lang.Code == "" {
			return nil, errors.New("language code is required")
		}
		if SameLanguage(lang.Code, source) {
			return nil, fmt.Errorf("target language %q equals source language %q", lang.Code, source)
		}
		if lang.Locale == "" {
			lang.Locale = Locale(lang.Code)
		}
		key := strings.ToLower(lang.Code)
		if _, dup := c.byCode[key]; dup {
			return nil, fmt.Errorf("duplicate language code %q", lang.Code)
		}
		c.byCode[key] = lang
		c.languages = append(c.languages, lang)
	}
	return c, nil
}

// Source returns the fixed source language code
func (c *Catalog) Source() string {
	return c.source
}

// Languages returns the supported target languages in display order
func (c *Catalog) Languages() []Language {
	out := make([]Language, len(c.languages))
	copy(out, c.languages)
	return out
}

// Lookup finds a target language by its code or locale
func (c *Catalog) Lookup(code string) (Language, error) {
	if lang, ok := c.byCode[strings.ToLower(code)]; ok {
		return lang, nil
	}
	for _, lang := range c.languages {
		if strings.EqualFold(lang.Locale, code) {
			return lang, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
}

// ValidateTarget checks that code is a supported target distinct from the source
func (c *Catalog) ValidateTarget(code string) error {
	if strings.TrimSpace(code) == "" {
		return errors.New("target language is required")
	}
	if SameLanguage(code, c.source) {
		return fmt.Errorf("%w: target %q must differ from source %q", ErrUnsupportedLanguage, code, c.source)
	}
	_, err := c.Lookup(code)
	return err
}

// Locale returns a region-qualified code, e.g. "hi" becomes "hi-IN".
// Codes that already carry a region are returned unchanged.
func Locale(code string) string {
	if code == "" || strings.Contains(code, "-") {
		return code
	}
	return strings.ToLower(code) + "-IN"
}

// BaseLanguage strips the region, e.g. "en-IN" becomes "en"
func BaseLanguage(code string) string {
	base, _, _ := strings.Cut(code, "-")
	return strings.ToLower(base)
}

// SameLanguage reports whether two codes name the same base language
func SameLanguage(a, b string) bool {
	return BaseLanguage(a) == BaseLanguage(b)
}

// LanguageName returns the English name of a code, or the code itself when unknown
func LanguageName(code string) string {
	base := BaseLanguage(code)
	if base == "en" {
		return "English"
	}
	for _, lang := range DefaultLanguages {
		if lang.Code == base {
			return lang.Name
		}
	}
	return code
}
