package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

var ErrNoSuchSession = errors.New("no such session")

// Client talks to the minesweeper server over plain request/response HTTP.
// It covers session setup (probe, create, resume); Game binds it to one
// session id for in-play moves.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func NewClient(base string, log *zap.Logger) *Client {
	return &Client{base: base, http: http.DefaultClient, log: log}
}

// Ping probes {base}/status. Any 2xx means the server is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server is unavailable: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("server is down: status %d", res.StatusCode)
	}
	return nil
}

// NewGame creates a session, opening (x, y) as the first move. The server
// places mines after this call so the first open is never fatal.
func (c *Client) NewGame(ctx context.Context, p types.GameParams, x, y int) (*types.Session, error) {
	q := url.Values{}
	q.Set("width", strconv.Itoa(p.Width))
	q.Set("height", strconv.Itoa(p.Height))
	q.Set("mine_count", strconv.Itoa(p.MineCount))
	q.Set("unique", strconv.FormatBool(p.Unique))
	q.Set("x", strconv.Itoa(x))
	q.Set("y", strconv.Itoa(y))
	return c.do(ctx, http.MethodPost, "/game?"+q.Encode())
}

// Fetch retrieves the current snapshot for a known session id.
func (c *Client) Fetch(ctx context.Context, id string) (*types.Session, error) {
	return c.do(ctx, http.MethodGet, "/game/"+id)
}

// Game binds the client to a session id, yielding the per-move transport.
func (c *Client) Game(id string) *GameClient {
	return &GameClient{c: c, id: id}
}

// GameClient issues in-play moves for one session, one request/response
// exchange per move.
type GameClient struct {
	c  *Client
	id string
}

func (g *GameClient) Get(ctx context.Context) (*types.Session, error) {
	return g.c.do(ctx, http.MethodGet, "/game/"+g.id)
}

func (g *GameClient) Open(ctx context.Context, x, y int) (*types.Session, error) {
	return g.c.do(ctx, http.MethodPost, g.move("open", x, y))
}

func (g *GameClient) Chord(ctx context.Context, x, y int) (*types.Session, error) {
	return g.c.do(ctx, http.MethodPost, g.move("chord", x, y))
}

func (g *GameClient) Flag(ctx context.Context, x, y int) (*types.Session, error) {
	return g.c.do(ctx, http.MethodPost, g.move("flag", x, y))
}

func (g *GameClient) Reveal(ctx context.Context) (*types.Session, error) {
	return g.c.do(ctx, http.MethodPost, "/game/"+g.id+"/reveal")
}

func (g *GameClient) move(op string, x, y int) string {
	return fmt.Sprintf("/game/%s/%s?x=%d&y=%d", g.id, op, x, y)
}

// do issues one exchange and decodes the full Session reply. Malformed
// replies propagate as errors; there are no retries.
func (c *Client) do(ctx context.Context, method, path string) (*types.Session, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	c.log.Debug("request", zap.String("method", method), zap.String("path", path))
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNoSuchSession
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return nil, fmt.Errorf("server replied %d: %s", res.StatusCode, msg)
		}
		return nil, fmt.Errorf("server replied %d", res.StatusCode)
	}
	return types.DecodeSession(body)
}
