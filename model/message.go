package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation transcript. Content is mutable
// only while Complete is false (the message is still streaming in); once
// finalized it never changes.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Complete  bool      `json:"complete"`
}

// NewMessage creates a finalized message with a fresh ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Complete:  true,
	}
}

// NewStreamingMessage creates an empty assistant message that will be
// extended by stream deltas until it is finalized.
func NewStreamingMessage() Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Complete:  false,
	}
}
