// Package models holds the wire types shared by the catalog assistant's
// HTTP surface, agent executor and model-serving passthrough.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ── Chat Messages ────────────────────────────────────────────

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of an incoming conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate rejects roles that clients are not allowed to send.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	case "":
		return fmt.Errorf("message role is required")
	default:
		return fmt.Errorf("unsupported message role %q", m.Role)
	}
}

// ValidateMessages validates every message and reports the first bad index.
func ValidateMessages(msgs []Message) error {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

// LastUserIndex returns the index of the last user message, or -1.
func LastUserIndex(msgs []Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// LastUserContent returns the content of the last user message.
func LastUserContent(msgs []Message) (string, bool) {
	i := LastUserIndex(msgs)
	if i < 0 {
		return "", false
	}
	return msgs[i].Content, true
}

// Preview truncates s to at most limit runes.
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// ── Chat Completion Envelope ─────────────────────────────────

const (
	// ObjectChatCompletion is the only object kind the envelope carries.
	ObjectChatCompletion = "chat.completion"

	FinishReasonStop = "stop"

	AgentResponseID = "agent-response"
	ErrorResponseID = "error-response"
	EmptyRequestID  = "empty-request"

	// PromptForInput is returned when a conversation has no user turn.
	PromptForInput = "Please provide a question or request."
)

// Envelope is the fixed chat-completion response shape returned to clients.
type Envelope struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Model   string   `json:"model"`
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
}

// Choice is a single completion candidate.
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the generated message of a choice.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting. Zero when unknown.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the first choice's content, or "".
func (e Envelope) Content() string {
	if len(e.Choices) == 0 {
		return ""
	}
	return e.Choices[0].Message.Content
}

func assistantEnvelope(model, id, content string) Envelope {
	return Envelope{
		Choices: []Choice{{
			Message:      ChoiceMessage{Role: string(RoleAssistant), Content: content},
			Index:        0,
			FinishReason: FinishReasonStop,
		}},
		Model:   model,
		ID:      id,
		Object:  ObjectChatCompletion,
		Created: time.Now().Unix(),
	}
}

// AnswerEnvelope wraps a final agent answer.
func AnswerEnvelope(model, content string) Envelope {
	return assistantEnvelope(model, AgentResponseID, content)
}

// ErrorEnvelope wraps an error description in the same shape as an answer.
func ErrorEnvelope(model, content string) Envelope {
	return assistantEnvelope(model, ErrorResponseID, content)
}

// PromptForInputEnvelope is returned without invoking the model when the
// conversation has no user message.
func PromptForInputEnvelope(model string) Envelope {
	return assistantEnvelope(model, EmptyRequestID, PromptForInput)
}

// ErrorMessage formats the agent-facing error text.
func ErrorMessage(err error) string {
	return "I encountered an error: " + strings.TrimSpace(err.Error())
}
