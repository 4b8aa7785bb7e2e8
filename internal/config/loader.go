package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// Load reads .env when present, then builds the configuration from defaults,
// the YAML file named by CONFIG_FILE and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return LoadWith(os.LookupEnv)
}

// LoadWith is Load without the .env step, reading variables through lookup
func LoadWith(lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decodeYAML(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// envReader collects parse errors so every bad variable is reported at once
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	if v, ok := e.lookup(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	if v, ok := e.lookup(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) setFloat(key string, dst *float64) {
	if v, ok := e.lookup(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	env := &envReader{lookup: lookup}

	env.setString("PORT", &cfg.Server.Port)
	env.setString("LOG_LEVEL", &cfg.Server.LogLevel)

	env.setString("JWT_SECRET", &cfg.Auth.JWTSecret)
	env.setDuration("JWT_TTL", &cfg.Auth.TokenTTL)

	env.setString("SOURCE_LANGUAGE", &cfg.Pipeline.SourceLanguage)
	env.setString("DEFAULT_LANGUAGE", &cfg.Pipeline.DefaultLanguage)
	env.setDuration("PIPELINE_TIMEOUT", &cfg.Pipeline.Timeout)
	env.setInt("MAX_RECORDING_BYTES", &cfg.Pipeline.MaxRecordingBytes)

	p := &cfg.Providers
	env.setString("STT_PROVIDER", &p.STT)
	env.setString("TRANSLATE_PROVIDER", &p.Translate)
	env.setString("TTS_PROVIDER", &p.TTS)

	env.setString("SARVAM_API_KEY", &p.Sarvam.APIKey)
	env.setString("SARVAM_API_BASE_URL", &p.Sarvam.APIBaseURL)
	env.setString("SARVAM_STT_MODEL", &p.Sarvam.STTModel)
	env.setString("SARVAM_MT_MODEL", &p.Sarvam.MTModel)
	env.setString("SARVAM_TTS_MODEL", &p.Sarvam.TTSModel)
	env.setString("SARVAM_SPEAKER", &p.Sarvam.Speaker)

	env.setString("OPENAI_API_KEY", &p.OpenAI.APIKey)
	env.setString("OPENAI_BASE_URL", &p.OpenAI.BaseURL)
	env.setString("OPENAI_TRANSCRIPTION_MODEL", &p.OpenAI.TranscriptionModel)
	env.setString("OPENAI_CHAT_MODEL", &p.OpenAI.ChatModel)
	env.setString("OPENAI_SPEECH_MODEL", &p.OpenAI.SpeechModel)
	env.setString("OPENAI_VOICE", &p.OpenAI.Voice)

	env.setString("GEMINI_API_KEY", &p.Gemini.APIKey)
	env.setString("GEMINI_MODEL", &p.Gemini.Model)

	env.setString("GOOGLE_APPLICATION_CREDENTIALS", &p.Google.CredentialsFile)

	env.setString("ELEVEN_LABS_API_KEY", &p.ElevenLabs.APIKey)
	env.setString("ELEVEN_LABS_API_BASE_URL", &p.ElevenLabs.APIBaseURL)
	env.setString("ELEVEN_LABS_VOICE_ID", &p.ElevenLabs.VoiceID)
	env.setString("ELEVEN_LABS_MODEL_ID", &p.ElevenLabs.ModelID)
	env.setString("ELEVEN_LABS_OUTPUT_FORMAT", &p.ElevenLabs.OutputFormat)
	env.setFloat("ELEVEN_LABS_STABILITY", &p.ElevenLabs.Stability)
	env.setFloat("ELEVEN_LABS_CLARITY", &p.ElevenLabs.Clarity)

	env.setString("AUDIO_STORE", &cfg.Storage.Backend)
	env.setDuration("AUDIO_TTL", &cfg.Storage.TTL)
	env.setDuration("AUDIO_SWEEP_INTERVAL", &cfg.Storage.SweepInterval)
	env.setString("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	env.setString("S3_ACCESS_KEY", &cfg.Storage.S3.AccessKey)
	env.setString("S3_SECRET_KEY", &cfg.Storage.S3.SecretKey)
	env.setString("S3_BUCKET", &cfg.Storage.S3.Bucket)
	env.setString("S3_REGION", &cfg.Storage.S3.Region)
	env.setBool("S3_SECURE", &cfg.Storage.S3.Secure)
	env.setString("S3_KEY_PREFIX", &cfg.Storage.S3.KeyPrefix)
	env.setDuration("S3_PRESIGN_EXPIRY", &cfg.Storage.S3.PresignExpiry)
	env.setDuration("S3_ORPHAN_EXPIRY", &cfg.Storage.S3.OrphanExpiry)

	env.setString("HISTORY_STORE", &cfg.History.Backend)
	env.setInt("HISTORY_CAPACITY", &cfg.History.Capacity)
	env.setDuration("HISTORY_RETENTION", &cfg.History.Retention)
	env.setString("MONGODB_URI", &cfg.History.MongoURI)
	env.setString("MONGODB_DATABASE", &cfg.History.MongoDatabase)

	if len(env.errs) > 0 {
		return fmt.Errorf("config: environment: %w", errors.Join(env.errs...))
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (JWT_SECRET)"))
	}
	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}

	if cfg.Pipeline.SourceLanguage == "" {
		errs = append(errs, errors.New("pipeline.source_language is required"))
	}
	if len(cfg.Pipeline.Languages) == 0 {
		errs = append(errs, errors.New("pipeline.languages must not be empty"))
	}
	if cfg.Pipeline.Timeout < 0 {
		errs = append(errs, errors.New("pipeline.timeout must not be negative"))
	}
	if cfg.Pipeline.MaxRecordingBytes <= 0 {
		errs = append(errs, errors.New("pipeline.max_recording_bytes must be positive"))
	}

	p := cfg.Providers
	errs = append(errs, validateProvider("stt", p.STT), validateProvider("translate", p.Translate), validateProvider("tts", p.TTS))
	if p.Uses(ProviderSarvam) && p.Sarvam.APIKey == "" {
		errs = append(errs, errors.New("providers.sarvam.api_key is required (SARVAM_API_KEY)"))
	}
	if p.Uses(ProviderOpenAI) && p.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("providers.openai.api_key is required (OPENAI_API_KEY)"))
	}
	if p.Translate == ProviderGemini && p.Gemini.APIKey == "" {
		errs = append(errs, errors.New("providers.gemini.api_key is required (GEMINI_API_KEY)"))
	}
	if p.TTS == ProviderElevenLabs && p.ElevenLabs.APIKey == "" {
		errs = append(errs, errors.New("providers.elevenlabs.api_key is required (ELEVEN_LABS_API_KEY)"))
	}

	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendS3:
		if cfg.Storage.S3.Endpoint == "" || cfg.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3 endpoint and bucket are required (S3_ENDPOINT, S3_BUCKET)"))
		}
		if cfg.Storage.S3.OrphanExpiry < 0 {
			errs = append(errs, errors.New("storage.s3.orphan_expiry must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, s3", cfg.Storage.Backend))
	}
	if cfg.Storage.TTL <= 0 {
		errs = append(errs, errors.New("storage.ttl must be positive"))
	}

	switch cfg.History.Backend {
	case BackendMemory, BackendNone:
	case BackendMongo:
		if cfg.History.MongoURI == "" {
			errs = append(errs, errors.New("history.mongo_uri is required (MONGODB_URI)"))
		}
		if cfg.History.MongoDatabase == "" {
			errs = append(errs, errors.New("history.mongo_database is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.backend %q is invalid; valid values: memory, mongo, none", cfg.History.Backend))
	}

	return errors.Join(errs...)
}

func validateProvider(stage, name string) error {
	if slices.Contains(ValidProviders[stage], name) {
		return nil
	}
	return fmt.Errorf("providers.%s %q is invalid; valid values: %v", stage, name, ValidProviders[stage])
}
