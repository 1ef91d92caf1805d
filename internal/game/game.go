package game

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vancomm/minesweeper-cli/internal/render"
	"github.com/vancomm/minesweeper-cli/pkg/types"
)

// Phase is the derived state of the session machine.
type Phase string

const (
	PhasePreGame Phase = "pregame"
	PhaseActive  Phase = "active"
	PhaseWon     Phase = "won"
	PhaseLost    Phase = "lost"
)

// Config wires a Game together. Exactly one of Start (new game) or
// Session+Transport (resumed game) must be set.
type Config struct {
	Params    types.GameParams
	Start     StartFunc      // pre-game: allocates the session server-side
	Session   *types.Session // non-nil when resuming
	Transport Transport      // non-nil when resuming
	Out       io.Writer
	Color     bool
	Log       *zap.Logger
}

// Game owns the session snapshot and drives it through the phases. Nothing
// else may mutate the snapshot; it is replaced wholesale by server replies.
type Game struct {
	params  types.GameParams
	start   StartFunc
	tr      Transport
	session *types.Session
	out     io.Writer
	color   bool
	log     *zap.Logger
}

func New(cfg Config) *Game {
	g := &Game{
		params:  cfg.Params,
		start:   cfg.Start,
		tr:      cfg.Transport,
		session: cfg.Session,
		out:     cfg.Out,
		color:   cfg.Color,
		log:     cfg.Log,
	}
	if g.out == nil {
		g.out = os.Stdout
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	return g
}

// Phase derives the machine state from the current snapshot. Snapshots are
// validated before they are stored, so an ended session has exactly one
// verdict flag set.
func (g *Game) Phase() Phase {
	switch {
	case g.session == nil:
		return PhasePreGame
	case !g.session.Ended():
		return PhaseActive
	case g.session.Won:
		return PhaseWon
	default:
		return PhaseLost
	}
}

// Session exposes the current snapshot; nil before the first open.
func (g *Game) Session() *types.Session { return g.session }

func (g *Game) minesRemaining() int {
	if g.session == nil {
		return g.params.MineCount
	}
	return g.session.MinesRemaining()
}

// doneCh exposes the transport's shutdown signal when it has one. A nil
// channel blocks forever, which is exactly right for the HTTP transport.
func (g *Game) doneCh() <-chan struct{} {
	if n, ok := g.tr.(Notifier); ok {
		return n.Done()
	}
	return nil
}

func (g *Game) streamErr() error {
	if n, ok := g.tr.(Notifier); ok && n.Err() != nil {
		return fmt.Errorf("stream closed unexpectedly: %w", n.Err())
	}
	return fmt.Errorf("stream closed unexpectedly")
}

// printResume reminds the player how to get back into a live game.
func (g *Game) printResume() {
	if g.session != nil && !g.session.Ended() {
		fmt.Fprintf(g.out, "\ruse session id to continue: %s\n", g.session.ID)
	}
}

// Loop runs the interactive session until the game ends, input runs out, or
// the context is cancelled. Input lines are read on their own goroutine so
// an unexpected stream closure is noticed even while the player is idle.
// The returned error is nil for any player-driven exit and non-nil for
// transport or protocol failures.
func (g *Game) Loop(ctx context.Context, input io.Reader) error {
	// cancelled on return so the input goroutine never stays blocked on a
	// send after the game has ended
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(input)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		close(lines)
	}()

	fmt.Fprintln(g.out, "<Ctrl+C> to exit, <H+Enter> for help")
	if g.session != nil {
		fmt.Fprintf(g.out, "session id: %s\n", g.session.ID)
		fmt.Fprintln(g.out, render.Grid(g.session.Grid, g.session.Width, g.color))
	} else {
		fmt.Fprintln(g.out, "open any square to start the game")
		fmt.Fprintln(g.out, render.Closed(g.params, g.color))
	}

	for phase := g.Phase(); phase == PhasePreGame || phase == PhaseActive; phase = g.Phase() {
		fmt.Fprintf(g.out, "(%d) > ", g.minesRemaining())

		var line string
		select {
		case <-ctx.Done():
			g.printResume()
			fmt.Fprintln(g.out, "goodbye")
			return nil
		case <-g.doneCh():
			err := g.streamErr()
			g.printResume()
			return err
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(g.out)
				g.printResume()
				fmt.Fprintln(g.out, "goodbye")
				return nil
			}
			line = l
		}

		wasPreGame := phase == PhasePreGame
		s, err := g.Dispatch(ctx, line)
		switch {
		case IsReject(err):
			fmt.Fprintln(g.out, err)
		case err != nil:
			g.printResume()
			return err
		case s != nil:
			if wasPreGame {
				fmt.Fprintf(g.out, "session id: %s\n", s.ID)
			}
			fmt.Fprintln(g.out, render.Grid(s.Grid, s.Width, g.color))
		}
	}

	switch g.Phase() {
	case PhaseWon:
		fmt.Fprintf(g.out, "You won! Your time: %s\n", g.session.Playtime())
	case PhaseLost:
		fmt.Fprintln(g.out, "You lost!")
	}
	return nil
}
