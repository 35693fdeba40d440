package usecase

import (
	"sync"

	"assistant-chat/internal/domain"
)

// Conversation is the process-lifetime message list plus the input counter
// that keys the page's text field. It is lost on restart.
type Conversation struct {
	mu       sync.RWMutex
	messages []domain.Message
	inputKey int
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Snapshot returns a copy of the messages and the current input key.
func (c *Conversation) Snapshot() ([]domain.Message, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out, c.inputKey
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func (c *Conversation) InputKey() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inputKey
}

func (c *Conversation) append(m domain.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}

// truncate drops everything after the first n messages.
func (c *Conversation) truncate(n int) {
	c.mu.Lock()
	if n >= 0 && n < len(c.messages) {
		c.messages = c.messages[:n:n]
	}
	c.mu.Unlock()
}

func (c *Conversation) advanceInputKey() {
	c.mu.Lock()
	c.inputKey++
	c.mu.Unlock()
}
