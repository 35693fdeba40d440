package domain

// ChatMessage is the provider-agnostic chat completion message shape used by
// the emotion classifier and the OpenAI integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}
