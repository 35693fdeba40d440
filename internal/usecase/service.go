package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
)

const (
	defaultMaxMessageLen = 4000
	cancelRunTimeout     = 5 * time.Second
)

// AssistantGateway is the hosted assistant API as seen by the chat flow.
type AssistantGateway interface {
	RunRetriever
	SendMessage(ctx context.Context, threadID, text string) (string, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (domain.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	ListMessagesAfter(ctx context.Context, threadID, afterMessageID string) ([]string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type Options struct {
	PollInterval    time.Duration
	RunTimeout      time.Duration
	MaxMessageLen   int
	TimePrefixLabel string
	Logger          zerolog.Logger
}

// ChatService drives one submission at a time through the remote thread:
// post message, create run, poll, collect reply, sanitize.
type ChatService struct {
	gateway      AssistantGateway
	conversation *Conversation
	threadID     string
	assistantID  string

	pollInterval  time.Duration
	runTimeout    time.Duration
	maxMessageLen int
	timeLabel     string
	log           zerolog.Logger
	wait          waitFunc

	submitMu sync.Mutex
}

type SubmitInput struct {
	Text string
	// InputKey, when set, must match the conversation's current input key.
	InputKey *int
}

type SubmitOutput struct {
	User  domain.Message
	Reply domain.Message
}

func NewChatService(gw AssistantGateway, conv *Conversation, threadID, assistantID string, opts Options) (*ChatService, error) {
	if gw == nil {
		return nil, errors.New("usecase: assistant gateway must not be nil")
	}
	if conv == nil {
		return nil, errors.New("usecase: conversation must not be nil")
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, errors.New("usecase: thread id must not be empty")
	}
	assistantID = strings.TrimSpace(assistantID)
	if assistantID == "" {
		return nil, errors.New("usecase: assistant id must not be empty")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RunTimeout < 0 {
		opts.RunTimeout = 0
	}
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = defaultMaxMessageLen
	}
	return &ChatService{
		gateway:       gw,
		conversation:  conv,
		threadID:      threadID,
		assistantID:   assistantID,
		pollInterval:  opts.PollInterval,
		runTimeout:    opts.RunTimeout,
		maxMessageLen: opts.MaxMessageLen,
		timeLabel:     strings.TrimSpace(opts.TimePrefixLabel),
		log:           opts.Logger,
		wait:          sleepContext,
	}, nil
}

func (s *ChatService) ThreadID() string { return s.threadID }

func (s *ChatService) Snapshot() ([]domain.Message, int) {
	return s.conversation.Snapshot()
}

// Submit sends one user message and appends both sides of the exchange to
// the conversation. Submissions are serialized; on failure the conversation
// is left as it was before the call.
func (s *ChatService) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return SubmitOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(text) > s.maxMessageLen {
		return SubmitOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	if in.InputKey != nil && *in.InputKey != s.conversation.InputKey() {
		return SubmitOutput{}, newError(ErrorConflict, "stale_input", nil)
	}

	sentAt := now()
	user := domain.Message{Role: domain.RoleUser, Content: text, Time: sentAt.Format(domain.TimeLayout)}
	mark := s.conversation.Len()
	s.conversation.append(user)

	reply, err := s.exchange(ctx, text, sentAt)
	if err != nil {
		s.conversation.truncate(mark)
		s.log.Error().Err(err).Str("thread_id", s.threadID).Msg("submission failed")
		return SubmitOutput{}, err
	}

	assistant := domain.Message{Role: domain.RoleAssistant, Content: reply, Time: now().Format(domain.TimeLayout)}
	s.conversation.append(assistant)
	s.conversation.advanceInputKey()
	return SubmitOutput{User: user, Reply: assistant}, nil
}

func (s *ChatService) exchange(ctx context.Context, text string, sentAt time.Time) (string, error) {
	messageID, err := s.gateway.SendMessage(ctx, s.threadID, s.timePrefix(sentAt)+text)
	if err != nil {
		return "", upstreamError("send_message", err)
	}

	run, err := s.gateway.CreateRun(ctx, s.threadID, s.assistantID)
	if err != nil {
		return "", upstreamError("create_run", err)
	}
	if run.ThreadID == "" {
		run.ThreadID = s.threadID
	}

	started := time.Now()
	run, err = s.awaitRun(ctx, run)
	if err != nil {
		return "", err
	}
	s.log.Info().
		Str("thread_id", s.threadID).
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Dur("elapsed", time.Since(started)).
		Msg("run settled")
	if run.Status != domain.RunStatusCompleted {
		return "", newError(ErrorUpstream, "run_"+string(run.Status), nil)
	}

	texts, err := s.gateway.ListMessagesAfter(ctx, s.threadID, messageID)
	if err != nil {
		return "", upstreamError("list_messages", err)
	}
	return StripCitations(strings.Join(texts, "")), nil
}

func (s *ChatService) awaitRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	pollCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.runTimeout > 0 {
		pollCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
	}
	defer cancel()

	settled, err := pollRun(pollCtx, s.gateway, run, s.pollInterval, s.wait)
	if err == nil {
		return settled, nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.cancelRun(ctx, run)
		return settled, newError(ErrorTimeout, "run_timeout", err)
	case errors.Is(err, context.Canceled):
		s.cancelRun(ctx, run)
		return settled, newError(ErrorTimeout, "run_abandoned", err)
	default:
		return settled, upstreamError("retrieve_run", err)
	}
}

// cancelRun asks the service to stop a run we are no longer waiting for.
// Failures are logged only.
func (s *ChatService) cancelRun(ctx context.Context, run domain.Run) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelRunTimeout)
	defer cancel()
	if err := s.gateway.CancelRun(cctx, s.threadID, run.ID); err != nil {
		s.log.Warn().Err(err).Str("thread_id", s.threadID).Str("run_id", run.ID).Msg("cancel run failed")
		return
	}
	s.log.Warn().Str("thread_id", s.threadID).Str("run_id", run.ID).Msg("run cancelled after polling stopped")
}

func (s *ChatService) timePrefix(t time.Time) string {
	if s.timeLabel == "" {
		return ""
	}
	return fmt.Sprintf("[%s: %s] ", s.timeLabel, t.Format(domain.TimeLayout))
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var now = time.Now
