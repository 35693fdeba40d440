package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assistant-chat/internal/domain"
)

// scriptedRuns returns the given statuses in order, repeating the last one.
type scriptedRuns struct {
	statuses []domain.RunStatus
	err      error
	calls    int
}

func (s *scriptedRuns) RetrieveRun(_ context.Context, threadID, runID string) (domain.Run, error) {
	if s.err != nil {
		return domain.Run{}, s.err
	}
	idx := s.calls
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	s.calls++
	return domain.Run{ID: runID, ThreadID: threadID, Status: s.statuses[idx]}, nil
}

type recordingWait struct {
	waits []time.Duration
}

func (r *recordingWait) wait(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func queuedRun() domain.Run {
	return domain.Run{ID: "run_1", ThreadID: "thread_1", Status: domain.RunStatusQueued}
}

func TestPollRun_QueuedOnceThenCompleted_WaitsOnce(t *testing.T) {
	runs := &scriptedRuns{statuses: []domain.RunStatus{domain.RunStatusCompleted}}
	rec := &recordingWait{}

	got, err := pollRun(context.Background(), runs, queuedRun(), 500*time.Millisecond, rec.wait)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusCompleted, got.Status)
	require.Equal(t, []time.Duration{500 * time.Millisecond}, rec.waits)
	require.Equal(t, 1, runs.calls)
}

func TestPollRun_WalksThroughPendingStates(t *testing.T) {
	runs := &scriptedRuns{statuses: []domain.RunStatus{
		domain.RunStatusQueued,
		domain.RunStatusInProgress,
		domain.RunStatusInProgress,
		domain.RunStatusFailed,
	}}
	rec := &recordingWait{}

	got, err := pollRun(context.Background(), runs, queuedRun(), time.Second, rec.wait)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusFailed, got.Status)
	require.Len(t, rec.waits, 4)
	require.Equal(t, 4, runs.calls)
}

func TestPollRun_AlreadySettled_NoWait(t *testing.T) {
	runs := &scriptedRuns{statuses: []domain.RunStatus{domain.RunStatusCompleted}}
	rec := &recordingWait{}
	run := queuedRun()
	run.Status = domain.RunStatusCompleted

	got, err := pollRun(context.Background(), runs, run, time.Second, rec.wait)
	require.NoError(t, err)
	require.Equal(t, run, got)
	require.Empty(t, rec.waits)
	require.Zero(t, runs.calls)
}

func TestPollRun_DefaultsInterval(t *testing.T) {
	runs := &scriptedRuns{statuses: []domain.RunStatus{domain.RunStatusCompleted}}
	rec := &recordingWait{}

	_, err := pollRun(context.Background(), runs, queuedRun(), 0, rec.wait)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{DefaultPollInterval}, rec.waits)
}

func TestPollRun_RetrieveError(t *testing.T) {
	runs := &scriptedRuns{err: errors.New("boom")}
	_, err := pollRun(context.Background(), runs, queuedRun(), time.Millisecond, (&recordingWait{}).wait)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Contains(t, err.Error(), "run_1")
}

func TestPollRun_NilRetriever(t *testing.T) {
	_, err := pollRun(context.Background(), nil, queuedRun(), time.Millisecond, (&recordingWait{}).wait)
	require.Error(t, err)
}

func TestPollRun_StopsOnContextDeadline(t *testing.T) {
	runs := &scriptedRuns{statuses: []domain.RunStatus{domain.RunStatusInProgress}}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := PollRun(ctx, runs, queuedRun(), 5*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Positive(t, runs.calls)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
