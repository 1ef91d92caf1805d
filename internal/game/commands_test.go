package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

// stubTransport records which operations were invoked and replies from a
// per-operation table.
type stubTransport struct {
	calls []string
	next  map[string]*types.Session
	err   error
}

func (s *stubTransport) reply(op string) (*types.Session, error) {
	s.calls = append(s.calls, op)
	if s.err != nil {
		return nil, s.err
	}
	return s.next[op], nil
}

func (s *stubTransport) Get(context.Context) (*types.Session, error)  { return s.reply("get") }
func (s *stubTransport) Reveal(context.Context) (*types.Session, error) {
	return s.reply("reveal")
}
func (s *stubTransport) Open(_ context.Context, _, _ int) (*types.Session, error) {
	return s.reply("open")
}
func (s *stubTransport) Chord(_ context.Context, _, _ int) (*types.Session, error) {
	return s.reply("chord")
}
func (s *stubTransport) Flag(_ context.Context, _, _ int) (*types.Session, error) {
	return s.reply("flag")
}

func i64(n int64) *int64 { return &n }

// liveSession is a 5x5 board with (1,1) revealed as a 1 and everything else
// closed.
func liveSession() *types.Session {
	grid := make([]int, 25)
	for i := range grid {
		grid[i] = types.CellClosed
	}
	grid[1*5+1] = 1
	return &types.Session{
		ID: "abc123", Grid: grid, Width: 5, Height: 5,
		MineCount: 3, Unique: true, StartedAt: 100,
	}
}

func activeGame(tr Transport) *Game {
	s := liveSession()
	return New(Config{
		Params:    types.GameParams{Width: 5, Height: 5, MineCount: 3, Unique: true},
		Session:   s,
		Transport: tr,
	})
}

func TestOpenOnRevealedCellChords(t *testing.T) {
	tr := &stubTransport{next: map[string]*types.Session{"chord": liveSession()}}
	g := activeGame(tr)

	_, err := g.Dispatch(context.Background(), "o 1 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"chord"}, tr.calls)
}

func TestOpenOnClosedCellOpens(t *testing.T) {
	tr := &stubTransport{next: map[string]*types.Session{"open": liveSession()}}
	g := activeGame(tr)

	_, err := g.Dispatch(context.Background(), "o 2 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, tr.calls)
}

func TestRejectionsNeverReachTransport(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"unknown command", "x 1 1"},
		{"wrong arity low", "o 1"},
		{"wrong arity high", "o 1 2 3"},
		{"non-integer coords", "o a b"},
		{"x out of bounds", "o 5 0"},
		{"y out of bounds", "f 0 5"},
		{"negative coord", "o -1 0"},
		{"chord via open on flagged cell", "o 3 3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &stubTransport{}
			g := activeGame(tr)
			g.session.Grid[3*5+3] = types.CellFlag

			_, err := g.Dispatch(context.Background(), tc.line)
			require.Error(t, err)
			assert.True(t, IsReject(err), "want a rejection, got %v", err)
			assert.Empty(t, tr.calls, "rejection must not incur a round trip")
		})
	}
}

func TestChordOnFlaggedCellMessage(t *testing.T) {
	tr := &stubTransport{}
	g := activeGame(tr)
	g.session.Grid[2*5+2] = types.CellFlag

	_, err := g.Dispatch(context.Background(), "o 2 2")
	require.EqualError(t, err, "cannot chord closed square")
	assert.Empty(t, tr.calls)
}

func TestPreGameInputNudgesTowardOpen(t *testing.T) {
	g := New(Config{
		Params: types.GameParams{Width: 5, Height: 5, MineCount: 3},
		Start: func(context.Context, int, int) (*types.Session, Transport, error) {
			t.Fatal("start must not run for a rejected command")
			return nil, nil, nil
		},
	})

	for _, line := range []string{"f 1 1", "r", "x 1 1"} {
		_, err := g.Dispatch(context.Background(), line)
		require.Error(t, err, "input %q", line)
		assert.True(t, IsReject(err))
		assert.Contains(t, err.Error(), "use `o` to open any square to start the game")
	}
}

func TestPreGameOpenStartsSession(t *testing.T) {
	tr := &stubTransport{}
	started := 0
	g := New(Config{
		Params: types.GameParams{Width: 5, Height: 5, MineCount: 3},
		Start: func(_ context.Context, x, y int) (*types.Session, Transport, error) {
			started++
			assert.Equal(t, 0, x)
			assert.Equal(t, 4, y)
			return liveSession(), tr, nil
		},
	})
	require.Equal(t, PhasePreGame, g.Phase())

	s, err := g.Dispatch(context.Background(), "o 0 4")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, started)
	assert.Equal(t, "abc123", s.ID)
	assert.Equal(t, PhaseActive, g.Phase())
}

func TestPreGameOpenOutOfBounds(t *testing.T) {
	g := New(Config{
		Params: types.GameParams{Width: 5, Height: 5, MineCount: 3},
		Start: func(context.Context, int, int) (*types.Session, Transport, error) {
			t.Fatal("start must not run out of bounds")
			return nil, nil, nil
		},
	})

	_, err := g.Dispatch(context.Background(), "o 0 17")
	require.Error(t, err)
	assert.True(t, IsReject(err))
}

func TestHelpIsARejection(t *testing.T) {
	g := activeGame(&stubTransport{})
	_, err := g.Dispatch(context.Background(), "h")
	require.Error(t, err)
	assert.True(t, IsReject(err))
	assert.Contains(t, err.Error(), "Available commands")
}

func TestRevealConcedes(t *testing.T) {
	ended := liveSession()
	ended.Dead = true
	ended.EndedAt = i64(160)
	tr := &stubTransport{next: map[string]*types.Session{"reveal": ended}}
	g := activeGame(tr)

	_, err := g.Dispatch(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"reveal"}, tr.calls)
	assert.Equal(t, PhaseLost, g.Phase())
}

func TestEndedWithoutVerdictIsFatal(t *testing.T) {
	bad := liveSession()
	bad.EndedAt = i64(160) // neither won nor dead
	tr := &stubTransport{next: map[string]*types.Session{"open": bad}}
	g := activeGame(tr)

	_, err := g.Dispatch(context.Background(), "o 2 2")
	require.ErrorIs(t, err, types.ErrProtocol)
	assert.False(t, IsReject(err), "protocol violations are fatal, not rejections")
	// the poisoned snapshot was not stored
	assert.Equal(t, PhaseActive, g.Phase())
}

func TestUppercaseCommandsAccepted(t *testing.T) {
	tr := &stubTransport{next: map[string]*types.Session{"open": liveSession()}}
	g := activeGame(tr)

	_, err := g.Dispatch(context.Background(), "O 2 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, tr.calls)
}
