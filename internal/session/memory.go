package session

import (
	"context"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/logger"
)

type memoryEntry struct {
	messages []openai.ChatCompletionMessage
	last     time.Time
}

// MemoryStore keeps sessions in process memory. With a positive TTL a session
// that has not been written for longer than the TTL is dropped.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. ttl <= 0 disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(janitorInterval(ttl))
	}
	return s
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.last) > s.ttl
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]openai.ChatCompletionMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		return nil, false, nil
	}
	return clone(e.messages), true, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, msgs []openai.ChatCompletionMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &memoryEntry{messages: clone(msgs), last: s.now()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Evict drops every expired session and returns how many were removed.
func (s *MemoryStore) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				logger.L.Debug("evicted expired sessions", "count", n)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
