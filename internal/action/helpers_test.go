package action

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/postsync/internal/kv"
	"github.com/roach88/postsync/internal/remote"
	"github.com/roach88/postsync/internal/session"
	"github.com/roach88/postsync/internal/testutil"
)

var t0 = time.Date(2024, 6, 1, 9, 30, 0, 123456789, time.UTC)

// call is one request seen by stubClient.
type call struct {
	method string
	path   string
	body   json.RawMessage
}

// stubClient answers every request with the next queued reply.
type stubClient struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

type reply struct {
	data string
	err  error
}

func (s *stubClient) queue(data string, err error) *stubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{data: data, err: err})
	return s
}

func (s *stubClient) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *stubClient) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return s.do("GET", path, nil)
}

func (s *stubClient) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return s.do("POST", path, body)
}

func (s *stubClient) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return s.do("PUT", path, body)
}

func (s *stubClient) do(method, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{method: method, path: path, body: raw})
	if len(s.replies) == 0 {
		panic("stubClient: no reply queued for " + method + " " + path)
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.data), nil
}

func transportFailure(status int, reason string) error {
	return &remote.TransportError{
		Code:   remote.ErrCodeTransportFailure,
		Method: "GET",
		URL:    "http://backend.test/posts.json",
		Status: status,
		Reason: reason,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openSession(t *testing.T, clk *testutil.FakeClock) (*session.Store, *kv.Store) {
	t.Helper()
	st, err := kv.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return session.NewStore(st, clk), st
}

// countingSession records calls and delegates nothing.
type countingSession struct {
	mu        sync.Mutex
	sets      int
	clears    int
	token     string
	expiresIn time.Duration
	setErr    error
	clearErr  error
}

func (c *countingSession) SetToken(_ context.Context, token string, expiresIn time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.token = token
	c.expiresIn = expiresIn
	return nil
}

func (c *countingSession) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	return c.clearErr
}

func (c *countingSession) Restore(context.Context) (bool, error) {
	return false, nil
}

func (c *countingSession) Remaining(time.Time) time.Duration {
	return 0
}

func (c *countingSession) Clears() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}
