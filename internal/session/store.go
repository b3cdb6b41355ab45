// Package session stores per-session conversation history for the agent.
//
// Two backends are provided: an in-process map with optional TTL eviction and a
// SQLite table. Both hand out copies, so callers may mutate what Get returns
// without affecting the stored history until they call Set.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/config"
)

// Store persists conversation history keyed by session id.
type Store interface {
	// Get returns the history of a session. ok is false when the session does
	// not exist or has expired.
	Get(ctx context.Context, id string) (msgs []openai.ChatCompletionMessage, ok bool, err error)
	// Set replaces the whole history of a session.
	Set(ctx context.Context, id string, msgs []openai.ChatCompletionMessage) error
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open builds the store selected by cfg.Backend ("memory" or "sqlite").
func Open(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "sqlite":
		return OpenSQLite(cfg.DBPath, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

func clone(msgs []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	if msgs == nil {
		return nil
	}
	out := make([]openai.ChatCompletionMessage, len(msgs))
	copy(out, msgs)
	return out
}

// janitorInterval picks how often expired sessions are swept.
func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	return interval
}
