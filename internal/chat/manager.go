package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

// Input validation errors.
var (
	ErrEmptyJobDescription = errors.New("chat: job description must not be empty")
	ErrEmptyMessage        = errors.New("chat: message must not be empty")
)

// kickoffMessage elicits the opening greeting from the backend when a session
// starts. It is never stored in the history.
const kickoffMessage = "I have reviewed the Job Description and am ready to assist you. What would you like to discuss about it, or would you like to practice some questions related to it?"

// Manager coordinates coaching sessions: it creates them, serializes turn
// appends per session, and grounds every generative call in the session's job
// description plus its full history.
type Manager struct {
	store Store
	llm   llm.Provider

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewManager creates a Manager over the given store and backend.
func NewManager(store Store, p llm.Provider) *Manager {
	return &Manager{
		store: store,
		llm:   p,
		locks: make(map[string]*sessionLock),
	}
}

// sessionLock serializes turn appends for one session. refs counts holders
// and waiters so the map entry can be dropped once the last one releases;
// without that the map would grow with every session id ever seen, outliving
// the sessions the store evicts.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Start creates a new session for jobDescription. The backend produces an
// opening greeting which is stored as the session's sole assistant turn.
func (m *Manager) Start(ctx context.Context, jobDescription string) (Session, error) {
	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return Session{}, ErrEmptyJobDescription
	}

	resp, err := m.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemInstruction(jobDescription),
		Messages: []llm.Message{
			{Role: RoleUser, Content: kickoffMessage},
		},
	})
	if err != nil {
		return Session{}, fmt.Errorf("chat: start session: %w", err)
	}
	greeting := strings.TrimSpace(resp.Content)
	if greeting == "" {
		return Session{}, errors.New("chat: start session: backend returned an empty greeting")
	}

	now := time.Now().UTC()
	session := Session{
		ID:             uuid.NewString(),
		JobDescription: jobDescription,
		History:        []Turn{{Role: RoleAssistant, Content: greeting}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.Put(ctx, session); err != nil {
		return Session{}, fmt.Errorf("chat: start session: %w", err)
	}

	slog.Debug("chat session started", "session_id", session.ID)
	return session, nil
}

// Continue appends message as a user turn to the session, obtains the
// assistant's reply grounded in the job description and the full history, and
// persists both turns. The reply text is returned.
//
// Mutation is serialized per session; concurrent Continue calls for different
// sessions do not block each other.
func (m *Manager) Continue(ctx context.Context, id, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	lock := m.acquire(id)
	defer m.release(id, lock)

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	history := append(session.History, Turn{Role: RoleUser, Content: message})

	resp, err := m.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemInstruction(session.JobDescription),
		Messages:     toMessages(history),
	})
	if err != nil {
		return "", fmt.Errorf("chat: continue session %s: %w", id, err)
	}
	reply := strings.TrimSpace(resp.Content)

	session.History = append(history, Turn{Role: RoleAssistant, Content: reply})
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, session); err != nil {
		return "", fmt.Errorf("chat: continue session %s: %w", id, err)
	}

	return reply, nil
}

// acquire takes the per-session lock, registering interest first so release
// knows when the entry is no longer needed.
func (m *Manager) acquire(id string) *sessionLock {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return l
}

// release unlocks the per-session lock and removes its map entry when no other
// goroutine holds or waits on it.
func (m *Manager) release(id string, l *sessionLock) {
	l.mu.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
	m.mu.Unlock()
}

// toMessages converts session turns into backend messages, oldest first.
func toMessages(history []Turn) []llm.Message {
	msgs := make([]llm.Message, len(history))
	for i, t := range history {
		msgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}

// systemInstruction pins the assistant's persona to the job description.
func systemInstruction(jobDescription string) string {
	return fmt.Sprintf(`You are an expert Interview Coach specializing in Job Description analysis.
Your role is to act as an intelligent conversational partner, answering questions related to the provided Job Description.
If asked, help the user identify key skills, responsibilities, or potential interview questions directly from the JD.
If the user asks for practice, you can ask a question from the JD.
Always stay strictly within the context of the Job Description.
HERE IS THE JOB DESCRIPTION FOR YOUR CONTEXT:

%s`, jobDescription)
}
