package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    messages TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);`

// SQLiteStore keeps each session as one JSON-encoded row.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (and creates if needed) the database at path. ":memory:"
// gives a private in-memory database. ttl <= 0 disables eviction.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(10000)"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	logger.L.Info("sqlite session store initialized", "path", path)

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now, stop: make(chan struct{})}
	if ttl > 0 {
		go s.janitor(janitorInterval(ttl))
	}
	return s, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) ([]openai.ChatCompletionMessage, bool, error) {
	var (
		payload   string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT messages, updated_at FROM sessions WHERE session_id = ?;`, id).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %q: %w", id, err)
	}
	if s.ttl > 0 && s.now().Sub(time.Unix(0, updatedAt)) > s.ttl {
		return nil, false, nil
	}

	var msgs []openai.ChatCompletionMessage
	if err := json.Unmarshal([]byte(payload), &msgs); err != nil {
		return nil, false, fmt.Errorf("decode session %q: %w", id, err)
	}
	return msgs, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, id string, msgs []openai.ChatCompletionMessage) error {
	payload, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (session_id, messages, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at;`,
		id, string(payload), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("store session %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?;`, id); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	return nil
}

// Evict deletes every session older than the TTL.
func (s *SQLiteStore) Evict(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?;`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := s.Evict(context.Background())
			if err != nil {
				logger.L.Warn("session eviction failed", "error", err)
			} else if n > 0 {
				logger.L.Debug("evicted expired sessions", "count", n)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.db.Close()
}
