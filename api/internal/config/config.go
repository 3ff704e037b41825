package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	TTSElevenLabs = "elevenlabs"
	TTSOpenAI     = "openai"
	TTSNone       = "none"
)

type Config struct {
	Port   string
	AppEnv string

	LLMProvider  string
	LLMBaseURL   string
	LLMModel     string
	LLMTimeout   time.Duration
	GroqAPIKey   string
	OpenAIAPIKey string
	GeminiAPIKey string
	GeminiModel  string

	TTSProvider      string
	TTSTimeout       time.Duration
	TTSMaxChars      int
	ElevenLabsAPIKey string
	ElevenLabsVoice  string
	ElevenLabsModel  string
	OpenAITTSModel   string
	OpenAITTSVoice   string

	DatabaseURL string
	PublicDir   string
	PromptDir   string

	MaxImageBytes         int
	RateLimitEvery        time.Duration
	RateLimitBurst        int
	MaxConcurrentAnalyses int

	TelegramToken string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: want positive integer, got %q", k, v)
	}
	return n, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: want positive duration, got %q", k, v)
	}
	return d, nil
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:   getEnv("PORT", "3000"),
		AppEnv: getEnv("APP_ENV", "development"),

		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", ProviderGroq)),
		LLMBaseURL:   getEnv("LLM_BASE_URL", ""),
		LLMModel:     getEnv("LLM_MODEL", ""),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		TTSProvider:      strings.ToLower(getEnv("TTS_PROVIDER", TTSElevenLabs)),
		ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoice:  getEnv("ELEVENLABS_VOICE_ID", "CpLFIATEbkaZdJr01erZ"),
		ElevenLabsModel:  getEnv("ELEVENLABS_MODEL", "eleven_turbo_v2_5"),
		OpenAITTSModel:   getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:   getEnv("OPENAI_TTS_VOICE", "alloy"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		PublicDir:   getEnv("PUBLIC_DIR", "public"),
		PromptDir:   getEnv("PROMPT_DIR", ""),

		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	var errs []error
	var err error
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.TTSTimeout, err = getDuration("TTS_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitEvery, err = getDuration("RATE_LIMIT_EVERY", 600*time.Millisecond); err != nil {
		errs = append(errs, err)
	}
	if cfg.TTSMaxChars, err = getInt("TTS_MAX_CHARS", 150); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxImageBytes, err = getInt("MAX_IMAGE_BYTES", 4*1024*1024); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxConcurrentAnalyses, err = getInt("MAX_CONCURRENT_ANALYSES", 8); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks that the selected providers have what they need.
// A missing model credential is fatal; a missing speech credential only
// disables speech.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return errors.New("missing required env GROQ_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("missing required env OPENAI_API_KEY")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("missing required env GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.TTSProvider {
	case TTSElevenLabs, TTSOpenAI, TTSNone:
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q", c.TTSProvider)
	}
	return nil
}

// ChatBaseURL is the OpenAI-compatible endpoint for the selected provider.
func (c *Config) ChatBaseURL() string {
	return c.ChatBaseURLFor(c.LLMProvider)
}

// ChatBaseURLFor returns the endpoint for provider. LLM_BASE_URL only
// overrides the selected provider.
func (c *Config) ChatBaseURLFor(provider string) string {
	if c.LLMBaseURL != "" && provider == c.LLMProvider {
		return strings.TrimRight(c.LLMBaseURL, "/")
	}
	if provider == ProviderOpenAI {
		return "https://api.openai.com/v1"
	}
	return "https://api.groq.com/openai/v1"
}

// Model is the analysis model name for the selected provider.
func (c *Config) Model() string {
	return c.ModelFor(c.LLMProvider)
}

// ModelFor returns the model for provider. LLM_MODEL only overrides the
// selected provider.
func (c *Config) ModelFor(provider string) string {
	if c.LLMModel != "" && provider == c.LLMProvider {
		return c.LLMModel
	}
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGemini:
		return c.GeminiModel
	default:
		return "meta-llama/llama-4-maverick-17b-128e-instruct"
	}
}

// SpeechEnabled reports whether the selected TTS provider has a credential.
func (c *Config) SpeechEnabled() bool {
	switch c.TTSProvider {
	case TTSElevenLabs:
		return c.ElevenLabsAPIKey != ""
	case TTSOpenAI:
		return c.OpenAIAPIKey != ""
	}
	return false
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
