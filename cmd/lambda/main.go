package main

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"assistant-chat/internal/app"
	"assistant-chat/internal/config"
)

var (
	chatApp  *app.App
	initOnce sync.Once
	initErr  error
)

// initialize builds the app once per container, so each warm container keeps
// a single thread and conversation.
func initialize(ctx context.Context) error {
	initOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			initErr = err
			return
		}
		log, err := app.NewLogger(cfg.Log, os.Stderr)
		if err != nil {
			initErr = err
			return
		}
		chatApp, initErr = app.Build(ctx, cfg, log)
	})
	return initErr
}

func handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := initialize(ctx); err != nil {
		initLog := zerolog.New(os.Stderr)
		initLog.Error().Err(err).Msg("lambda init failed")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
			Body:       "service unavailable",
		}, nil
	}
	return chatApp.Handler.HandleAPIGateway(ctx, event)
}

func main() {
	lambda.Start(handle)
}
