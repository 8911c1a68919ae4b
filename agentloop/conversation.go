package agentloop

import (
	"time"

	"github.com/martinemde/astra/llm"
)

// Message is a single entry in a run's conversation.
type Message struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered, append-only history of one run.
type Conversation struct {
	messages []Message
}

// NewConversation creates an empty Conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a message with the given role.
func (c *Conversation) Append(role llm.Role, content string) {
	c.messages = append(c.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// AppendUser adds a user-role message.
func (c *Conversation) AppendUser(content string) { c.Append(llm.RoleUser, content) }

// AppendModel adds a model-role message.
func (c *Conversation) AppendModel(content string) { c.Append(llm.RoleModel, content) }

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// ToLLM converts the history into gateway messages.
func (c *Conversation) ToLLM() []llm.Message {
	messages := make([]llm.Message, 0, len(c.messages))
	for _, m := range c.messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, llm.SystemMessage(m.Content))
		case llm.RoleModel:
			messages = append(messages, llm.ModelMessage(m.Content))
		default:
			messages = append(messages, llm.UserMessage(m.Content))
		}
	}
	return messages
}
