// Package config loads server configuration from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"time"

	"github.com/satriahrh/vaani/domain/entities"
)

// Provider names accepted for each pipeline stage
const (
	ProviderSarvam     = "sarvam"
	ProviderGoogle     = "google"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
	ProviderMock       = "mock"
)

// Backend names for audio and history storage
const (
	BackendMemory = "memory"
	BackendS3     = "s3"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// ValidProviders lists the provider names accepted per stage
var ValidProviders = map[string][]string{
	"stt":       {ProviderSarvam, ProviderGoogle, ProviderOpenAI, ProviderMock},
	"translate": {ProviderSarvam, ProviderGemini, ProviderOpenAI, ProviderMock},
	"tts":       {ProviderSarvam, ProviderElevenLabs, ProviderOpenAI, ProviderMock},
}

// Config is the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	History   HistoryConfig   `yaml:"history"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type PipelineConfig struct {
	SourceLanguage    string              `yaml:"source_language"`
	DefaultLanguage   string              `yaml:"default_language"`
	Languages         []entities.Language `yaml:"languages"`
	Timeout           time.Duration       `yaml:"timeout"`
	MaxRecordingBytes int                 `yaml:"max_recording_bytes"`
}

// ProvidersConfig selects one provider per stage and holds the settings of each
type ProvidersConfig struct {
	STT        string           `yaml:"stt"`
	Translate  string           `yaml:"translate"`
	TTS        string           `yaml:"tts"`
	Sarvam     SarvamConfig     `yaml:"sarvam"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Google     GoogleConfig     `yaml:"google"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

type SarvamConfig struct {
	APIKey     string        `yaml:"api_key"`
	APIBaseURL string        `yaml:"api_base_url"`
	STTModel   string        `yaml:"stt_model"`
	MTModel    string        `yaml:"mt_model"`
	TTSModel   string        `yaml:"tts_model"`
	Speaker    string        `yaml:"speaker"`
	Timeout    time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	TranscriptionModel string `yaml:"transcription_model"`
	ChatModel          string `yaml:"chat_model"`
	SpeechModel        string `yaml:"speech_model"`
	Voice              string `yaml:"voice"`
}

type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

type GoogleConfig struct {
	// CredentialsFile is optional; application default credentials are used when empty
	CredentialsFile string `yaml:"credentials_file"`
}

type ElevenLabsConfig struct {
	APIKey       string        `yaml:"api_key"`
	APIBaseURL   string        `yaml:"api_base_url"`
	VoiceID      string        `yaml:"voice_id"`
	ModelID      string        `yaml:"model_id"`
	OutputFormat string        `yaml:"output_format"`
	Stability    float64       `yaml:"stability"`
	Clarity      float64       `yaml:"clarity"`
	Timeout      time.Duration `yaml:"timeout"`
}

// StorageConfig selects where synthesized audio lives
type StorageConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	S3            S3Config      `yaml:"s3"`
}

type S3Config struct {
	Endpoint      string        `yaml:"endpoint"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	Secure        bool          `yaml:"secure"`
	KeyPrefix     string        `yaml:"key_prefix"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
	// OrphanExpiry removes session-owned audio left behind by a crashed
	// process; zero keeps it until released
	OrphanExpiry time.Duration `yaml:"orphan_expiry"`
}

// HistoryConfig selects where translation records are kept
type HistoryConfig struct {
	Backend       string        `yaml:"backend"`
	Capacity      int           `yaml:"capacity"`
	Retention     time.Duration `yaml:"retention"`
	MongoURI      string        `yaml:"mongo_uri"`
	MongoDatabase string        `yaml:"mongo_database"`
}

// Default returns the configuration used when nothing else is set.
// It runs entirely on mock providers and in-memory storage.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			SourceLanguage:    entities.DefaultSourceLanguage,
			DefaultLanguage:   entities.DefaultTargetLanguage,
			Languages:         entities.DefaultLanguages,
			Timeout:           60 * time.Second,
			MaxRecordingBytes: 10 << 20,
		},
		Providers: ProvidersConfig{
			STT:       ProviderMock,
			Translate: ProviderMock,
			TTS:       ProviderMock,
		},
		Storage: StorageConfig{
			Backend:       BackendMemory,
			TTL:           15 * time.Minute,
			SweepInterval: time.Minute,
			S3: S3Config{
				Secure:       true,
				KeyPrefix:    "audio/",
				OrphanExpiry: 48 * time.Hour,
			},
		},
		History: HistoryConfig{
			Backend:       BackendMemory,
			Capacity:      1000,
			Retention:     30 * 24 * time.Hour,
			MongoDatabase: "vaani",
		},
	}
}

// Uses reports whether any stage is served by provider
func (p ProvidersConfig) Uses(provider string) bool {
	return p.STT == provider || p.Translate == provider || p.TTS == provider
}
