package app

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/careerprep-backend/internal/data/db"
	"github.com/yungbote/careerprep-backend/internal/http/middleware"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/modules/auth"
	"github.com/yungbote/careerprep-backend/internal/modules/persist"
	"github.com/yungbote/careerprep-backend/internal/observability"
	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
	"github.com/yungbote/careerprep-backend/internal/platform/gemini"
	"github.com/yungbote/careerprep-backend/internal/platform/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultResumeTextMaxBytes = 64 << 10
	defaultMaxBodyBytes       = 15 << 20
)

type Config struct {
	Env             string
	LogMode         string
	ServiceName     string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string
	SecureCookie    bool

	LLMProvider        string
	FlowTimeout        time.Duration
	ResumeTextMaxBytes int
	SpeechEnabled      bool
	TTSEnabled         bool

	DB       db.Config
	Retry    llm.RetryPolicy
	OpenAI   openai.Config
	Gemini   gemini.Config
	Verifier auth.VerifierConfig
	Session  auth.SessionConfig
	Persist  persist.Config
	Otel     observability.OtelConfig
}

// LoadDotEnv reads .env into the process environment. A missing file is not
// an error and variables already set win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func LoadConfig() Config {
	env := envutil.String("APP_ENV", "development")
	cfg := Config{
		Env:             env,
		LogMode:         envutil.String("LOG_MODE", "development"),
		ServiceName:     envutil.String("OTEL_SERVICE_NAME", "careerprep-api"),
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080"),
		ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxBodyBytes:    envutil.Int64("HTTP_MAX_BODY_BYTES", defaultMaxBodyBytes),
		AllowedOrigins:  envutil.List("CORS_ALLOWED_ORIGINS", middleware.DefaultAllowedOrigins),
		SecureCookie:    envutil.Bool("SESSION_COOKIE_SECURE", env == "production"),

		FlowTimeout:        envutil.Duration("FLOW_TIMEOUT", 120*time.Second),
		ResumeTextMaxBytes: envutil.Int("RESUME_TEXT_MAX_BYTES", defaultResumeTextMaxBytes),
		SpeechEnabled:      envutil.Bool("GCP_SPEECH_ENABLED", false),
		TTSEnabled:         envutil.Bool("TTS_ENABLED", false),

		DB:       db.ConfigFromEnv(),
		Retry:    llm.RetryPolicyFromEnv(),
		OpenAI:   openai.ConfigFromEnv(),
		Gemini:   gemini.ConfigFromEnv(),
		Verifier: auth.VerifierConfigFromEnv(),
		Session:  auth.SessionConfigFromEnv(),
		Persist:  persist.ConfigFromEnv(),
		Otel:     observability.OtelConfigFromEnv(),
	}
	cfg.LLMProvider = providerFor(envutil.String("LLM_PROVIDER", ""), cfg.Gemini.APIKey)
	return cfg
}

// providerFor picks gemini when a Gemini key is configured and openai
// otherwise, unless LLM_PROVIDER names one.
func providerFor(explicit, geminiKey string) string {
	if p := strings.ToLower(strings.TrimSpace(explicit)); p != "" {
		return p
	}
	if strings.TrimSpace(geminiKey) != "" {
		return ProviderGemini
	}
	return ProviderOpenAI
}
