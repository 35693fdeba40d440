package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/handler"
	"assistant-chat/internal/config"
	"assistant-chat/internal/integrations/openai"
	"assistant-chat/internal/integrations/paramstore"
	"assistant-chat/internal/ui"
	"assistant-chat/internal/usecase"
)

// App is a fully wired process: one assistant thread, one conversation and
// the handler serving it.
type App struct {
	Handler  *handler.Handler
	ThreadID string
	Log      zerolog.Logger
}

// newParamGetter builds the SSM client only when the key lives there.
var newParamGetter = func(ctx context.Context) (openai.Getter, error) {
	return paramstore.NewFromEnvironment(ctx)
}

// NewLogger builds the root logger. Console format is meant for local runs.
func NewLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("app: parse log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Build validates the assistant, opens a fresh thread and wires the handler.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	apiKey, err := resolveAPIKey(ctx, cfg.OpenAI)
	if err != nil {
		return nil, err
	}
	client, err := openai.NewClient(apiKey,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.OpenAI.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create openai client: %w", err)
	}

	name, err := client.RetrieveAssistant(ctx, cfg.OpenAI.AssistantID)
	if err != nil {
		return nil, fmt.Errorf("app: retrieve assistant: %w", err)
	}
	threadID, err := client.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: create thread: %w", err)
	}
	log.Info().
		Str("assistant_id", cfg.OpenAI.AssistantID).
		Str("assistant_name", name).
		Str("thread_id", threadID).
		Msg("assistant thread ready")

	chat, err := usecase.NewChatService(client, usecase.NewConversation(), threadID, cfg.OpenAI.AssistantID, usecase.Options{
		PollInterval:    cfg.Chat.PollInterval,
		RunTimeout:      cfg.Chat.RunTimeout,
		MaxMessageLen:   cfg.Chat.MaxMessageLen,
		TimePrefixLabel: cfg.Chat.TimePrefixLabel,
		Logger:          log.With().Str("component", "chat").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}
	emotion, err := usecase.NewEmotionClassifier(client, cfg.Chat.EmotionModel)
	if err != nil {
		return nil, fmt.Errorf("app: create emotion classifier: %w", err)
	}

	assets, err := ui.LoadAssets(cfg.UI.StylesheetPath, cfg.UI.LogoPath)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	renderer, err := ui.NewRenderer(assets, ui.Options{
		PageTitle:     cfg.UI.PageTitle,
		Heading:       cfg.UI.Heading,
		AssistantName: cfg.UI.AssistantName,
		LoadingText:   cfg.UI.LoadingText,
		Placeholder:   cfg.UI.Placeholder,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	h, err := handler.NewHandler(chat, emotion, renderer, log.With().Str("component", "http").Logger())
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return &App{Handler: h, ThreadID: threadID, Log: log}, nil
}

func resolveAPIKey(ctx context.Context, cfg config.OpenAIConfig) (string, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}
	if strings.TrimSpace(cfg.APIKeyParam) == "" {
		return "", errors.New("app: no api key configured")
	}
	getter, err := newParamGetter(ctx)
	if err != nil {
		return "", fmt.Errorf("app: create paramstore client: %w", err)
	}
	key, err := openai.APIKeyFromParamStore(ctx, getter, cfg.APIKeyParam)
	if err != nil {
		return "", fmt.Errorf("app: %w", err)
	}
	return key, nil
}
