package models

import "fmt"

// Role is the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session's chat history.
type Turn struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

// Validate returns an error if the query is empty.
func (r *ChatRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidArgument)
	}
	return nil
}

// ChatResponse is the result of one conversation turn.
type ChatResponse struct {
	SessionID string   `json:"session_id"`
	Query     string   `json:"query"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
}

// HistoryResponse lists a session's stored turns.
type HistoryResponse struct {
	SessionID     string `json:"session_id"`
	TotalMessages int    `json:"total_messages"`
	Messages      []Turn `json:"messages"`
}
