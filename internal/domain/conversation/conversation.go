// Package conversation defines the stored conversation model.
package conversation

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ToolsUsed []string  `json:"toolsUsed,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is an ordered exchange of messages owned by one user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the listing view of a conversation, without its messages.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Stats aggregates store-wide counters for monitoring endpoints.
type Stats struct {
	Users         int `json:"users"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
}

// TitleFor derives a conversation title from its first user message.
// Messages longer than max display runes are truncated with an
// ellipsis suffix; truncation never splits a rune.
func TitleFor(firstMessage string, max int) string {
	r := []rune(firstMessage)
	if len(r) <= max {
		return firstMessage
	}
	return string(r[:max]) + "..."
}
