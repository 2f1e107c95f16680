package chat

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by [Store.Get] and [Store.Delete] when no
// session exists under the given id, or when it has expired.
var ErrSessionNotFound = errors.New("chat: session not found")

// Store persists chat sessions by id.
//
// Put overwrites any existing session with the same ID. Implementations must
// be safe for concurrent use; turn-level serialization within one session is
// the caller's job.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, session Session) error
	Delete(ctx context.Context, id string) error
}
