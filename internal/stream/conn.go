package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

var ErrClosed = errors.New("stream closed")

// Conn is a single persistent connection to one game session. Calls are
// strictly alternating: one short textual command out, exactly one session
// frame back. There is no pipelining, so a frame arriving outside a call is
// itself a protocol violation.
type Conn struct {
	ws     *websocket.Conn
	frames chan []byte
	done   chan struct{}
	log    *zap.Logger

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// Endpoint translates an http(s) base URL into the ws(s) connect URL for a
// session.
func Endpoint(base, id string) string {
	u := base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/game/" + id + "/connect"
}

// Dial opens the session's stream. The context bounds the handshake only;
// the connection itself lives until Close or a server-side drop.
func Dial(ctx context.Context, base, id string, log *zap.Logger) (*Conn, error) {
	u := Endpoint(base, id)
	ws, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", u, err)
	}
	log.Debug("stream connected", zap.String("url", u))
	c := &Conn{
		ws:     ws,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
		log:    log,
	}
	go c.pump()
	return c, nil
}

// pump forwards every incoming frame to the single-slot frames channel and
// closes done when the connection drops for any reason.
func (c *Conn) pump() {
	defer close(c.done)
	for {
		typ, data, err := c.ws.Read(context.Background())
		if err != nil {
			c.setErr(err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		select {
		case c.frames <- data:
		default:
			c.setErr(fmt.Errorf("%w: unsolicited frame", types.ErrProtocol))
			_ = c.ws.Close(websocket.StatusProtocolError, "unsolicited frame")
			return
		}
	}
}

func (c *Conn) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Done is closed once the stream is down, whether by Close or by the server.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the stream went down. nil until Done is closed.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.setErr(ErrClosed)
		_ = c.ws.Close(websocket.StatusNormalClosure, "bye")
	})
	return nil
}

func (c *Conn) call(ctx context.Context, cmd string) (*types.Session, error) {
	c.log.Debug("stream send", zap.String("cmd", cmd))
	if err := c.ws.Write(ctx, websocket.MessageText, []byte(cmd)); err != nil {
		return nil, fmt.Errorf("stream write: %w", err)
	}
	select {
	case data := <-c.frames:
		return types.DecodeSession(data)
	case <-c.done:
		// the reply may have landed just before the drop
		select {
		case data := <-c.frames:
			return types.DecodeSession(data)
		default:
		}
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Get(ctx context.Context) (*types.Session, error) {
	return c.call(ctx, "g")
}

func (c *Conn) Open(ctx context.Context, x, y int) (*types.Session, error) {
	return c.call(ctx, fmt.Sprintf("o %d %d", x, y))
}

func (c *Conn) Chord(ctx context.Context, x, y int) (*types.Session, error) {
	return c.call(ctx, fmt.Sprintf("c %d %d", x, y))
}

func (c *Conn) Flag(ctx context.Context, x, y int) (*types.Session, error) {
	return c.call(ctx, fmt.Sprintf("f %d %d", x, y))
}

func (c *Conn) Reveal(ctx context.Context) (*types.Session, error) {
	return c.call(ctx, "r")
}
