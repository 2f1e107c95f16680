package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time assertion that PGStore satisfies the Store interface.
var _ Store = (*PGStore)(nil)

const ddlChatSessions = `
CREATE TABLE IF NOT EXISTS chat_sessions (
    id              TEXT         PRIMARY KEY,
    job_description TEXT         NOT NULL,
    history         JSONB        NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ  NOT NULL,
    updated_at      TIMESTAMPTZ  NOT NULL,
    expires_at      TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_expires_at
    ON chat_sessions (expires_at);
`

// DB is the database access [PGStore] needs. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore is a PostgreSQL-backed [Store]. Each Put refreshes the session's
// expiry to now+ttl, so active conversations stay alive while abandoned ones
// age out. Expired rows are invisible to Get immediately and physically
// removed by [PGStore.Sweep].
//
// All methods are safe for concurrent use.
type PGStore struct {
	db DB

	// pool is set only when the store owns its connections, so Close knows
	// what to release.
	pool *pgxpool.Pool

	// ttl holds the session lifetime in nanoseconds; atomic so config
	// reloads can adjust it without pausing writers.
	ttl atomic.Int64
}

// NewPGStore establishes a connection pool to the PostgreSQL database at dsn,
// ensures the chat_sessions table exists, and returns a ready store.
// ttl must be positive.
func NewPGStore(ctx context.Context, dsn string, ttl time.Duration) (*PGStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("chat store: ttl must be positive, got %v", ttl)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("chat store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("chat store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("chat store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlChatSessions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("chat store: migrate: %w", err)
	}

	s := newPGStore(pool, ttl)
	s.pool = pool
	return s, nil
}

// newPGStore wraps an existing database handle. The caller keeps ownership of
// the connection; [PGStore.Close] is a no-op for stores built this way.
func newPGStore(db DB, ttl time.Duration) *PGStore {
	s := &PGStore{db: db}
	s.ttl.Store(int64(ttl))
	return s
}

// SetTTL updates the session lifetime applied by subsequent Puts.
func (s *PGStore) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.ttl.Store(int64(ttl))
}

// Get implements [Store.Get]. Expired sessions are reported as not found even
// before the sweeper has removed them.
func (s *PGStore) Get(ctx context.Context, id string) (Session, error) {
	const q = `
		SELECT id, job_description, history, created_at, updated_at
		FROM   chat_sessions
		WHERE  id = $1
		  AND  expires_at > now()`

	var (
		sess    Session
		history []byte
	)
	err := s.db.QueryRow(ctx, q, id).Scan(
		&sess.ID,
		&sess.JobDescription,
		&history,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("chat store: get session: %w", err)
	}

	if err := json.Unmarshal(history, &sess.History); err != nil {
		return Session{}, fmt.Errorf("chat store: decode history: %w", err)
	}
	return sess, nil
}

// Put implements [Store.Put]. It upserts the session and pushes its expiry
// ttl into the future.
func (s *PGStore) Put(ctx context.Context, session Session) error {
	history, err := json.Marshal(session.History)
	if err != nil {
		return fmt.Errorf("chat store: encode history: %w", err)
	}

	const q = `
		INSERT INTO chat_sessions (id, job_description, history, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $5 + $6::bigint * interval '1 microsecond')
		ON CONFLICT (id) DO UPDATE SET
		    history    = EXCLUDED.history,
		    updated_at = EXCLUDED.updated_at,
		    expires_at = EXCLUDED.expires_at`

	_, err = s.db.Exec(ctx, q,
		session.ID,
		session.JobDescription,
		history,
		session.CreatedAt,
		session.UpdatedAt,
		time.Duration(s.ttl.Load()).Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("chat store: put session: %w", err)
	}
	return nil
}

// Delete implements [Store.Delete].
func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("chat store: delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Sweep removes all expired sessions and returns how many were deleted.
func (s *PGStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM chat_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("chat store: sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartSweeper runs [PGStore.Sweep] every interval until ctx is cancelled.
// It blocks and is intended to be started in its own goroutine.
func (s *PGStore) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				slog.Warn("chat session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("swept expired chat sessions", "count", n)
			}
		}
	}
}

// Close releases the connection pool when the store owns one.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
