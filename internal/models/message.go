package models

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message captures one turn of the chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
