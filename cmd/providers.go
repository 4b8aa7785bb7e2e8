package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/adapters"
	"github.com/satriahrh/vaani/adapters/llm"
	mongoadapter "github.com/satriahrh/vaani/adapters/mongo"
	"github.com/satriahrh/vaani/adapters/openai"
	"github.com/satriahrh/vaani/adapters/s3"
	"github.com/satriahrh/vaani/adapters/sarvam"
	"github.com/satriahrh/vaani/adapters/stt"
	"github.com/satriahrh/vaani/adapters/tts"
	"github.com/satriahrh/vaani/domain/repositories"
	"github.com/satriahrh/vaani/internal/config"
)

const audioURLPrefix = "/api/v1/audio"

// providers builds the stage adapters, sharing one client per vendor
type providers struct {
	cfg    config.ProvidersConfig
	logger *zap.Logger

	sarvam  *sarvam.Client
	openai  *openai.Client
	closers []func() error
}

func newProviders(cfg config.ProvidersConfig, logger *zap.Logger) *providers {
	return &providers{cfg: cfg, logger: logger}
}

func (p *providers) sarvamClient() (*sarvam.Client, error) {
	if p.sarvam != nil {
		return p.sarvam, nil
	}
	client, err := sarvam.NewClient(sarvam.Config{
		APIKey:     p.cfg.Sarvam.APIKey,
		APIBaseURL: p.cfg.Sarvam.APIBaseURL,
		STTModel:   p.cfg.Sarvam.STTModel,
		MTModel:    p.cfg.Sarvam.MTModel,
		TTSModel:   p.cfg.Sarvam.TTSModel,
		Speaker:    p.cfg.Sarvam.Speaker,
		Timeout:    p.cfg.Sarvam.Timeout,
	}, p.logger)
	if err != nil {
		return nil, err
	}
	p.sarvam = client
	return client, nil
}

func (p *providers) openaiClient() (*openai.Client, error) {
	if p.openai != nil {
		return p.openai, nil
	}
	client, err := openai.NewClient(openai.Config{
		APIKey:             p.cfg.OpenAI.APIKey,
		BaseURL:            p.cfg.OpenAI.BaseURL,
		TranscriptionModel: p.cfg.OpenAI.TranscriptionModel,
		ChatModel:          p.cfg.OpenAI.ChatModel,
		SpeechModel:        p.cfg.OpenAI.SpeechModel,
		Voice:              p.cfg.OpenAI.Voice,
	}, p.logger)
	if err != nil {
		return nil, err
	}
	p.openai = client
	return client, nil
}

func (p *providers) speechToText(ctx context.Context) (repositories.SpeechToText, error) {
	switch p.cfg.STT {
	case config.ProviderSarvam:
		client, err := p.sarvamClient()
		if err != nil {
			return nil, err
		}
		return sarvam.NewSpeechToText(client), nil
	case config.ProviderGoogle:
		google, err := stt.NewGoogleSpeechToText(ctx, p.cfg.Google.CredentialsFile)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, google.Close)
		return google, nil
	case config.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, err
		}
		return openai.NewSpeechToText(client), nil
	case config.ProviderMock:
		return stt.NewMockSpeechToText(p.logger), nil
	}
	return nil, fmt.Errorf("unknown speech-to-text provider %q", p.cfg.STT)
}

func (p *providers) translator(ctx context.Context) (repositories.Translator, error) {
	switch p.cfg.Translate {
	case config.ProviderSarvam:
		client, err := p.sarvamClient()
		if err != nil {
			return nil, err
		}
		return sarvam.NewTranslator(client), nil
	case config.ProviderGemini:
		return llm.NewGeminiTranslator(ctx, llm.GeminiConfig{
			APIKey:          p.cfg.Gemini.APIKey,
			Model:           p.cfg.Gemini.Model,
			Temperature:     p.cfg.Gemini.Temperature,
			MaxOutputTokens: p.cfg.Gemini.MaxOutputTokens,
		}, p.logger)
	case config.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, err
		}
		return openai.NewTranslator(client), nil
	case config.ProviderMock:
		return llm.NewMockTranslator(p.logger), nil
	}
	return nil, fmt.Errorf("unknown translate provider %q", p.cfg.Translate)
}

func (p *providers) textToSpeech() (repositories.TextToSpeech, error) {
	switch p.cfg.TTS {
	case config.ProviderSarvam:
		client, err := p.sarvamClient()
		if err != nil {
			return nil, err
		}
		return sarvam.NewTextToSpeech(client), nil
	case config.ProviderElevenLabs:
		return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:       p.cfg.ElevenLabs.APIKey,
			APIBaseURL:   p.cfg.ElevenLabs.APIBaseURL,
			VoiceID:      p.cfg.ElevenLabs.VoiceID,
			ModelID:      p.cfg.ElevenLabs.ModelID,
			OutputFormat: p.cfg.ElevenLabs.OutputFormat,
			Stability:    p.cfg.ElevenLabs.Stability,
			Clarity:      p.cfg.ElevenLabs.Clarity,
			Timeout:      p.cfg.ElevenLabs.Timeout,
		}, p.logger)
	case config.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, err
		}
		return openai.NewTextToSpeech(client), nil
	case config.ProviderMock:
		return tts.NewMockTextToSpeech(p.logger), nil
	}
	return nil, fmt.Errorf("unknown text-to-speech provider %q", p.cfg.TTS)
}

func (p *providers) Close() {
	for _, closer := range p.closers {
		if err := closer(); err != nil {
			p.logger.Warn("Failed to close provider", zap.Error(err))
		}
	}
}

// audioStorage is the store plus the expirer the janitor sweeps
type audioStorage interface {
	repositories.AudioStore
	repositories.AudioExpirer
}

func newAudioStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (audioStorage, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return s3.NewAudioStore(ctx, s3.Config{
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			Region:        cfg.S3.Region,
			Secure:        cfg.S3.Secure,
			KeyPrefix:     cfg.S3.KeyPrefix,
			PresignExpiry: cfg.S3.PresignExpiry,
			URLPrefix:     audioURLPrefix,
			OrphanExpiry:  cfg.S3.OrphanExpiry,
		}, logger)
	case config.BackendMemory:
		return adapters.NewMemoryAudioStore(audioURLPrefix), nil
	}
	return nil, fmt.Errorf("unknown audio store %q", cfg.Backend)
}

// newHistory returns the repository and a close function; BackendNone yields nil
func newHistory(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (repositories.HistoryRepository, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Backend {
	case config.BackendNone:
		return nil, noop, nil
	case config.BackendMemory:
		return adapters.NewMemoryHistoryRepository(cfg.Capacity), noop, nil
	case config.BackendMongo:
		client, err := mongoadapter.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, noop, err
		}
		repo, err := mongoadapter.NewHistoryRepository(ctx, client.Database, cfg.Retention, logger)
		if err != nil {
			_ = client.Close(ctx)
			return nil, noop, err
		}
		return repo, client.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown history store %q", cfg.Backend)
}
