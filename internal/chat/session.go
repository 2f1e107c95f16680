// Package chat implements job-description-grounded coaching conversations.
//
// A [Session] is created from a job description and accumulates alternating
// user and assistant turns. Every generative call re-sends the immutable job
// description together with the full history, so the backend never has to keep
// conversational state of its own. Sessions live in a [Store]; the in-memory
// implementation suits a single process, the PostgreSQL one adds TTL-based
// eviction for long-running deployments.
package chat

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a coaching conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one coaching conversation grounded in a job description.
// The job description is fixed at creation time; only History changes.
type Session struct {
	ID             string    `json:"id"`
	JobDescription string    `json:"jobDescription"`
	History        []Turn    `json:"history"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// clone returns a deep copy so callers cannot alias store-internal state.
func (s Session) clone() Session {
	out := s
	out.History = make([]Turn, len(s.History))
	copy(out.History, s.History)
	return out
}
