package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assistant-chat/internal/domain"
)

const DefaultPollInterval = 500 * time.Millisecond

// RunRetriever re-fetches a run's current state.
type RunRetriever interface {
	RetrieveRun(ctx context.Context, threadID, runID string) (domain.Run, error)
}

// waitFunc blocks for d or until ctx is done.
type waitFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollRun waits interval between fetches until the run leaves queued or
// in_progress. A run that is already settled is returned without waiting.
// Polling stops with ctx's error when ctx is cancelled or its deadline passes.
func PollRun(ctx context.Context, runs RunRetriever, run domain.Run, interval time.Duration) (domain.Run, error) {
	return pollRun(ctx, runs, run, interval, sleepContext)
}

func pollRun(ctx context.Context, runs RunRetriever, run domain.Run, interval time.Duration, wait waitFunc) (domain.Run, error) {
	if runs == nil {
		return run, errors.New("usecase: run retriever must not be nil")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for run.Status.Pending() {
		if err := wait(ctx, interval); err != nil {
			return run, err
		}
		next, err := runs.RetrieveRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("usecase: retrieve run %s: %w", run.ID, err)
		}
		run = next
	}
	return run, nil
}
