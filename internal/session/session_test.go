package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/config"
)

func sampleHistory() []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "system"},
		{Role: openai.ChatMessageRoleUser, Content: "aké je počasie?"},
		{Role: openai.ChatMessageRoleAssistant, ToolCalls: []openai.ToolCall{{
			ID:       "call_1",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: "get_weather", Arguments: `{"days":2}`},
		}}},
		{Role: openai.ChatMessageRoleTool, ToolCallID: "call_1", Content: `{"ok":true}`},
		{Role: openai.ChatMessageRoleAssistant, Content: "Bude slnečno."},
	}
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	want := sampleHistory()
	require.NoError(t, s.Set(ctx, "s1", want))

	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	// mutating the returned slice must not leak into the store
	got[0].Content = "changed"
	again, _, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "system", again[0].Content)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, ok, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStore_Contract(t *testing.T) {
	s, err := OpenSQLite(":memory:", 0)
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestMemoryStore_TTL(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", sampleHistory()))

	now = now.Add(59 * time.Minute)
	_, ok, _ := s.Get(ctx, "a")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = s.Get(ctx, "a")
	require.False(t, ok)

	require.Equal(t, 1, s.Evict())
	require.Equal(t, 0, s.Len())
}

func TestSQLiteStore_TTL(t *testing.T) {
	s, err := OpenSQLite(":memory:", time.Hour)
	require.NoError(t, err)
	defer s.Close()

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "old", sampleHistory()))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Set(ctx, "fresh", sampleHistory()))

	now = now.Add(45 * time.Minute)
	_, ok, err := s.Get(ctx, "old")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)

	n, err := s.Evict(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := t.TempDir() + "/history.db"
	ctx := context.Background()

	s, err := OpenSQLite(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "s", sampleHistory()))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 5)
	require.Equal(t, "call_1", got[3].ToolCallID)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(config.SessionConfig{Backend: "redis"})
	require.Error(t, err)
}

func TestLocker_SerializesSameSession(t *testing.T) {
	var (
		l       Locker
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "same")
			require.NoError(t, err)
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestLocker_HonoursContext(t *testing.T) {
	var l Locker
	unlock, err := l.Lock(context.Background(), "s")
	require.NoError(t, err)
	defer unlock()

	// a different session is independent
	other, err := l.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "s")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_DropsIdleEntries(t *testing.T) {
	var l Locker
	for _, id := range []string{"a", "b", "c"} {
		unlock, err := l.Lock(context.Background(), id)
		require.NoError(t, err)
		unlock()
	}
	require.Equal(t, 0, l.Len())

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, l.Len())

	done := make(chan struct{})
	go func() {
		defer close(done)
		next, err := l.Lock(context.Background(), "a")
		require.NoError(t, err)
		next()
	}()
	unlock()
	unlock()
	<-done
	require.Equal(t, 0, l.Len())
}
