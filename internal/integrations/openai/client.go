package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"assistant-chat/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	listPageSize   = 100
)

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Op         string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.Op, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is the assistant gateway: a thin wrapper around the hosted
// assistants, threads and runs API plus chat completions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	api        *goopenai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = normalizeBaseURL(c.baseURL)
	cfg.HTTPClient = c.httpClient
	c.api = goopenai.NewClientWithConfig(cfg)
	return c, nil
}

func normalizeBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// RetrieveAssistant confirms the assistant exists and returns its display name.
func (c *Client) RetrieveAssistant(ctx context.Context, assistantID string) (string, error) {
	assistantID = strings.TrimSpace(assistantID)
	if assistantID == "" {
		return "", errors.New("openai: assistant id must not be empty")
	}
	a, err := c.api.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return "", wrapError("retrieve assistant", err)
	}
	if a.Name == nil {
		return "", nil
	}
	return *a.Name, nil
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	th, err := c.api.CreateThread(ctx, goopenai.ThreadRequest{})
	if err != nil {
		return "", wrapError("create thread", err)
	}
	if th.ID == "" {
		return "", errors.New("openai: create thread: empty thread id")
	}
	return th.ID, nil
}

// SendMessage appends a user message to the thread and returns its id.
func (c *Client) SendMessage(ctx context.Context, threadID, text string) (string, error) {
	msg, err := c.api.CreateMessage(ctx, threadID, goopenai.MessageRequest{
		Role:    domain.RoleUser,
		Content: text,
	})
	if err != nil {
		return "", wrapError("create message", err)
	}
	return msg.ID, nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (domain.Run, error) {
	run, err := c.api.CreateRun(ctx, threadID, goopenai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return domain.Run{}, wrapError("create run", err)
	}
	return toRun(run, threadID), nil
}

func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (domain.Run, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return domain.Run{}, wrapError("retrieve run", err)
	}
	return toRun(run, threadID), nil
}

func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.api.CancelRun(ctx, threadID, runID); err != nil {
		return wrapError("cancel run", err)
	}
	return nil
}

// ListMessagesAfter returns the text segments of every assistant message
// created after afterMessageID, oldest first.
func (c *Client) ListMessagesAfter(ctx context.Context, threadID, afterMessageID string) ([]string, error) {
	limit := listPageSize
	order := "asc"
	after := afterMessageID

	var texts []string
	for {
		var afterPtr *string
		if after != "" {
			cursor := after
			afterPtr = &cursor
		}
		page, err := c.api.ListMessage(ctx, threadID, &limit, &order, afterPtr, nil, nil)
		if err != nil {
			return nil, wrapError("list messages", err)
		}
		for _, m := range page.Messages {
			if m.Role != domain.RoleAssistant {
				continue
			}
			for _, part := range m.Content {
				if part.Text != nil {
					texts = append(texts, part.Text.Value)
				}
			}
		}
		if !page.HasMore || len(page.Messages) == 0 {
			break
		}
		after = page.Messages[len(page.Messages)-1].ID
	}
	return texts, nil
}

// Chat runs a single chat completion and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	if req.Model == "" {
		return "", errors.New("openai: model must not be empty")
	}
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", wrapError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func toRun(r goopenai.Run, threadID string) domain.Run {
	out := domain.Run{ID: r.ID, ThreadID: r.ThreadID, Status: domain.RunStatus(r.Status)}
	if out.ThreadID == "" {
		out.ThreadID = threadID
	}
	return out
}

func wrapError(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Op: op, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Op: op, Body: body}
	}
	return fmt.Errorf("openai: %s: %w", op, err)
}

// APIKeyFromParamStore reads the API token stored as {"token": "..."} under
// the given SSM parameter name.
func APIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("openai: API token is empty")
	}
	return tp.Token, nil
}
