package session

import (
	"github.com/xhad/newton/internal/models"
	"github.com/xhad/newton/internal/types"
)

// Conversation is the ordered, append-only message log of one session.
type Conversation struct {
	messages []models.Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Append(msg models.Message) {
	c.messages = append(c.messages, msg)
}

// Clear drops every message.
func (c *Conversation) Clear() {
	c.messages = nil
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the log in insertion order.
func (c *Conversation) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Render(r types.Renderer) {
	for _, msg := range c.messages {
		r.Message(msg)
	}
}
