package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

// rejection is bad input the player can fix: wrong command, wrong arity,
// out-of-bounds coordinates and the like. Rejections are reported and the
// loop continues; any other error is fatal to the session.
type rejection struct{ reason string }

func (r rejection) Error() string { return r.reason }

func rejectf(format string, args ...any) error {
	return rejection{reason: fmt.Sprintf(format, args...)}
}

// IsReject reports whether err is a local command rejection rather than a
// transport or protocol failure.
func IsReject(err error) bool {
	var r rejection
	return errors.As(err, &r)
}

const helpText = ` Available commands:
    o [X] [Y]   : open (or chord) a square at X:Y
    f [X] [Y]   : flag (or unflag) a square at X:Y
    r           : concede and reveal the board
    h           : print this message`

// command pairs a handler with its exact argument count.
type command struct {
	nargs int
	run   func(ctx context.Context, g *Game, args []string) (*types.Session, error)
}

// preGame recognizes only the commands that make sense before a session
// exists; everything else has nothing to act on yet.
var preGame = map[string]command{
	"o": {nargs: 2, run: runStart},
	"h": {nargs: 0, run: runHelp},
}

var inGame = map[string]command{
	"o": {nargs: 2, run: runOpen},
	"f": {nargs: 2, run: runFlag},
	"r": {nargs: 0, run: runReveal},
	"h": {nargs: 0, run: runHelp},
}

func coords(args []string) (int, int, error) {
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		return 0, 0, rejection{reason: "args must be integer"}
	}
	return x, y, nil
}

func runHelp(_ context.Context, _ *Game, _ []string) (*types.Session, error) {
	return nil, rejection{reason: helpText}
}

func runStart(ctx context.Context, g *Game, args []string) (*types.Session, error) {
	x, y, err := coords(args)
	if err != nil {
		return nil, err
	}
	if !g.params.InBounds(x, y) {
		return nil, rejection{reason: "out of bounds"}
	}
	s, tr, err := g.start(ctx, x, y)
	if err != nil {
		return nil, err
	}
	g.tr = tr
	return s, nil
}

func runOpen(ctx context.Context, g *Game, args []string) (*types.Session, error) {
	x, y, err := coords(args)
	if err != nil {
		return nil, err
	}
	if !g.session.InBounds(x, y) {
		return nil, rejection{reason: "out of bounds"}
	}
	if g.session.CellAt(x, y) == types.CellClosed {
		return g.tr.Open(ctx, x, y)
	}
	// opening an already-revealed square means chording it
	return chord(ctx, g, x, y)
}

func chord(ctx context.Context, g *Game, x, y int) (*types.Session, error) {
	if c := g.session.CellAt(x, y); c < 0 || c > 8 {
		return nil, rejection{reason: "cannot chord closed square"}
	}
	return g.tr.Chord(ctx, x, y)
}

func runFlag(ctx context.Context, g *Game, args []string) (*types.Session, error) {
	x, y, err := coords(args)
	if err != nil {
		return nil, err
	}
	if !g.session.InBounds(x, y) {
		return nil, rejection{reason: "out of bounds"}
	}
	return g.tr.Flag(ctx, x, y)
}

func runReveal(ctx context.Context, g *Game, _ []string) (*types.Session, error) {
	return g.tr.Reveal(ctx)
}

// Dispatch validates one line of input against the table for the current
// phase and, when it survives the local checks, performs the move. It
// returns the fresh snapshot for commands that reached the server, nil for
// display-only commands, and a rejection for anything the player can fix.
// The owned snapshot is only replaced by a validated server reply, never
// partially updated.
func (g *Game) Dispatch(ctx context.Context, line string) (*types.Session, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	table := inGame
	if g.Phase() == PhasePreGame {
		table = preGame
	}
	cmd, ok := table[name]
	if !ok {
		if g.Phase() == PhasePreGame {
			return nil, rejection{reason: "use `o` to open any square to start the game"}
		}
		return nil, rejectf("`%s`: unknown command (<H+Enter> for help)", name)
	}
	if len(args) != cmd.nargs {
		return nil, rejectf("`%s`: expected %d args, got %d", name, cmd.nargs, len(args))
	}

	s, err := cmd.run(ctx, g, args)
	if err != nil {
		return nil, err
	}
	if s != nil {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		g.session = s
	}
	return s, nil
}
