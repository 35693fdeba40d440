package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment once at startup.
type Config struct {
	OpenAI OpenAIConfig
	Server ServerConfig
	Chat   ChatConfig
	UI     UIConfig
	Log    LogConfig
}

type OpenAIConfig struct {
	APIKey      string        `env:"OPENAI_API_KEY"`
	APIKeyParam string        `env:"OPENAI_API_KEY_PARAM"`
	AssistantID string        `env:"ASSISTANT_ID,required,notEmpty"`
	BaseURL     string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Timeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"30s"`
}

type ServerConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
}

type ChatConfig struct {
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"500ms"`
	RunTimeout      time.Duration `env:"RUN_TIMEOUT" envDefault:"2m"`
	MaxMessageLen   int           `env:"MAX_MESSAGE_LENGTH" envDefault:"4000"`
	TimePrefixLabel string        `env:"TIME_PREFIX_LABEL" envDefault:"Current time"`
	EmotionModel    string        `env:"EMOTION_MODEL" envDefault:"gpt-4o-mini"`
}

type UIConfig struct {
	PageTitle      string `env:"PAGE_TITLE" envDefault:"Assistant Chat"`
	Heading        string `env:"APP_HEADING" envDefault:"Assistant"`
	AssistantName  string `env:"ASSISTANT_NAME" envDefault:"Assistant"`
	LoadingText    string `env:"LOADING_TEXT" envDefault:"Assistant is typing..."`
	Placeholder    string `env:"INPUT_PLACEHOLDER" envDefault:"Type a message..."`
	StylesheetPath string `env:"STYLESHEET_PATH"`
	LogoPath       string `env:"LOGO_PATH"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" && strings.TrimSpace(c.OpenAI.APIKeyParam) == "" {
		return errors.New("config: one of OPENAI_API_KEY or OPENAI_API_KEY_PARAM must be set")
	}
	if c.Chat.PollInterval <= 0 {
		return errors.New("config: POLL_INTERVAL must be positive")
	}
	if c.Chat.RunTimeout < 0 {
		return errors.New("config: RUN_TIMEOUT must not be negative")
	}
	if c.Chat.MaxMessageLen <= 0 {
		return errors.New("config: MAX_MESSAGE_LENGTH must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("config: unsupported LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}
