package game

import (
	"context"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

// Transport exchanges full session snapshots with the server, one snapshot
// per call. Both the request/response HTTP client and the persistent stream
// satisfy it; the game never knows which one it is driving.
type Transport interface {
	Get(ctx context.Context) (*types.Session, error)
	Open(ctx context.Context, x, y int) (*types.Session, error)
	Chord(ctx context.Context, x, y int) (*types.Session, error)
	Flag(ctx context.Context, x, y int) (*types.Session, error)
	Reveal(ctx context.Context) (*types.Session, error)
}

// Notifier is implemented by transports that can drop out from under the
// game, e.g. the stream. Done is closed on an unsolicited shutdown; Err
// explains it.
type Notifier interface {
	Done() <-chan struct{}
	Err() error
}

// StartFunc allocates a server-side session by opening the first cell and
// returns the transport to drive it with.
type StartFunc func(ctx context.Context, x, y int) (*types.Session, Transport, error)
