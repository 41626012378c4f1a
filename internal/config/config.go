package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds the application configuration.
type Config struct {
	Addr   string `env:"CLINICAL_SIM_ADDR" envDefault:":8080"`
	DBPath string `env:"CLINICAL_SIM_DB_PATH" envDefault:"clinical-sim.db"`

	LLMProvider   string        `env:"CLINICAL_SIM_LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	Model         string        `env:"CLINICAL_SIM_MODEL"`
	LLMTimeout    time.Duration `env:"CLINICAL_SIM_LLM_TIMEOUT" envDefault:"60s"`

	SimTemperature       float32 `env:"CLINICAL_SIM_SIM_TEMPERATURE" envDefault:"1"`
	TutorTemperature     float32 `env:"CLINICAL_SIM_TUTOR_TEMPERATURE" envDefault:"0.2"`
	ProcedureTemperature float32 `env:"CLINICAL_SIM_PROCEDURE_TEMPERATURE" envDefault:"1"`

	LogLevel string `env:"CLINICAL_SIM_LOG_LEVEL" envDefault:"info"`

	QuotaLimit  int           `env:"CLINICAL_SIM_QUOTA_LIMIT" envDefault:"45"`
	QuotaWindow time.Duration `env:"CLINICAL_SIM_QUOTA_WINDOW" envDefault:"720h"`
	CacheTTL    time.Duration `env:"CLINICAL_SIM_CACHE_TTL" envDefault:"720h"`
	Allowlist   bool          `env:"CLINICAL_SIM_ALLOWLIST" envDefault:"false"`

	RateLimit float64 `env:"CLINICAL_SIM_RATE_LIMIT" envDefault:"2"`
	RateBurst int     `env:"CLINICAL_SIM_RATE_BURST" envDefault:"10"`

	SaveDir string `env:"CLINICAL_SIM_SAVE_DIR" envDefault:"transcripts"`
}

// LoadConfig loads the configuration from environment variables and
// validates it.
func LoadConfig() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without validating the model provider, for
// commands that only touch the store.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	return &cfg, nil
}

// Validate checks that the selected provider can be reached.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.QuotaLimit <= 0 {
		return fmt.Errorf("quota limit must be positive, got %d", c.QuotaLimit)
	}
	if c.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive, got %d", c.RateBurst)
	}
	return nil
}

// ModelName returns the configured model or the provider default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.LLMProvider == ProviderGemini {
		return "gemini-2.5-flash"
	}
	return "gpt-5-nano"
}
