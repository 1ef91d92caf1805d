package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

const sessionFrame = `{
	"session_id": "abc123",
	"grid": [-2, -2, 1, 0],
	"width": 2, "height": 2,
	"mine_count": 1, "unique": true,
	"dead": false, "won": false,
	"started_at": 1700000000
}`

// wsStub accepts one stream per session and answers every command with a
// canned session frame, recording the commands it received.
type wsStub struct {
	*httptest.Server

	mu   sync.Mutex
	cmds []string
}

func newWSStub(t *testing.T, frame string) *wsStub {
	s := &wsStub{}
	r := chi.NewRouter()
	r.Get("/game/{id}/connect", func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		for {
			_, data, err := conn.Read(req.Context())
			if err != nil {
				return
			}
			s.mu.Lock()
			s.cmds = append(s.cmds, string(data))
			s.mu.Unlock()
			if err := conn.Write(req.Context(), websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
	})
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *wsStub) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/v1/game/abc/connect",
		Endpoint("http://localhost:8000/v1", "abc"))
	assert.Equal(t, "wss://mines.example.com/game/abc/connect",
		Endpoint("https://mines.example.com", "abc"))
}

func TestCallsAlternateCommandAndReply(t *testing.T) {
	srv := newWSStub(t, sessionFrame)
	ctx := context.Background()

	c, err := Dial(ctx, srv.URL, "abc123", zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	calls := []struct {
		do   func() (*types.Session, error)
		want string
	}{
		{func() (*types.Session, error) { return c.Get(ctx) }, "g"},
		{func() (*types.Session, error) { return c.Open(ctx, 1, 2) }, "o 1 2"},
		{func() (*types.Session, error) { return c.Chord(ctx, 0, 1) }, "c 0 1"},
		{func() (*types.Session, error) { return c.Flag(ctx, 1, 1) }, "f 1 1"},
		{func() (*types.Session, error) { return c.Reveal(ctx) }, "r"},
	}
	for _, call := range calls {
		s, err := call.do()
		require.NoError(t, err)
		assert.Equal(t, "abc123", s.ID)
	}

	got := srv.received()
	require.Len(t, got, len(calls))
	for i, call := range calls {
		assert.Equal(t, call.want, got[i])
	}
}

func TestMalformedFrameRejected(t *testing.T) {
	srv := newWSStub(t, "not json")
	ctx := context.Background()

	c, err := Dial(ctx, srv.URL, "abc123", zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed server reply")
}

func TestServerDropClosesDone(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/game/{id}/connect", func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			return
		}
		// drop the connection without answering anything
		conn.Close(websocket.StatusGoingAway, "shutting down")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), srv.URL, "abc123", zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done was not closed after server drop")
	}
	require.Error(t, c.Err())

	_, err = c.Get(context.Background())
	require.Error(t, err)
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, srv.URL, "abc123", zap.NewNop())
	require.Error(t, err)
}
