package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TimeLayout is the display format for message timestamps.
const TimeLayout = "2006-01-02 15:04"

// Message is a single entry of the in-memory conversation. Messages are never
// mutated after they are appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Time    string `json:"time,omitempty"`
}
