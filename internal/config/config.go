package config

import (
	"fmt"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode   `envconfig:"MODE" default:"local"`
	Port string `envconfig:"PORT" default:"8080"`

	GCPProjectID string `envconfig:"GCP_PROJECT"`
	GCPLocation  string `envconfig:"GCP_LOCATION" default:"us-central1"`
	ModelName    string `envconfig:"MODEL_NAME" default:"gemini-2.5-flash-lite"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"` // "memory", "sqlite" or "firestore"
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"data/farum.db"`

	// UseMockLLM defaults to true in local mode (see Load).
	UseMockLLM *bool `envconfig:"USE_MOCK_LLM"`

	SentimentBackend string `envconfig:"SENTIMENT_BACKEND" default:"local"` // "local" or "openai"
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel      string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	LanguageCode     string `envconfig:"LANGUAGE_CODE" default:"en"`

	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	ReaperSchedule     string        `envconfig:"REAPER_SCHEDULE" default:"@every 5m"`
	PersistWorkers     int           `envconfig:"PERSIST_WORKERS" default:"4"`

	AchievementsFile string `envconfig:"ACHIEVEMENTS_FILE"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// MockLLM reports whether the mock text generator should be used.
func (c *Config) MockLLM() bool {
	if c.UseMockLLM != nil {
		return *c.UseMockLLM
	}
	return c.Mode == ModeLocal
}

// Load reads a local .env file when present, then all FARUM_* env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("farum", &cfg); err != nil {
		return nil, fault.Wrap(err, fmsg.With("reading FARUM_* environment"))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func invalid(format string, args ...any) error {
	return fault.New(fmt.Sprintf("config: "+format, args...), ftag.With(ftag.InvalidArgument))
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeLocal, ModeGCP:
	default:
		return invalid("unknown FARUM_MODE %q", c.Mode)
	}

	// Minimal validation in GCP mode
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return invalid("FARUM_GCP_PROJECT must be set in gcp mode")
	}
	if !c.MockLLM() && c.GCPProjectID == "" {
		return invalid("FARUM_GCP_PROJECT is required for the Vertex LLM")
	}
	switch c.StorageBackend {
	case "memory", "sqlite", "firestore":
	default:
		return invalid("unknown FARUM_STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "firestore" && c.GCPProjectID == "" {
		return invalid("FARUM_GCP_PROJECT is required for firestore storage")
	}
	if c.SentimentBackend == "openai" && c.OpenAIAPIKey == "" {
		return invalid("FARUM_OPENAI_API_KEY is required for openai sentiment")
	}
	if c.PersistWorkers <= 0 {
		c.PersistWorkers = 1
	}

	return nil
}
