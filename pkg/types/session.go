package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrProtocol marks a server reply that breaks the wire contract. Once this
// happens the two sides have desynchronized and no safe continuation exists,
// so callers must treat it as fatal.
var ErrProtocol = errors.New("protocol violation")

// Cell codes as reported by the server. Codes 64-67 only appear once the
// game has ended.
const (
	CellQuestion   = -3 // marked questionable
	CellClosed     = -2 // unopened, unmarked
	CellFlag       = -1 // flagged
	CellFlagAlt    = 32 // flag, alternate encoding used by some server variants
	CellMine       = 64 // mine, correctly flagged
	CellMineBoom   = 65 // the mine that was triggered
	CellFalseFlag  = 66 // incorrectly flagged non-mine
	CellMineMissed = 67 // unflagged mine
)

// GameParams are the immutable parameters a new game is created with.
// Unique is passed through to the server opaquely.
type GameParams struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	MineCount int  `json:"mine_count"`
	Unique    bool `json:"unique"`
}

func (p GameParams) InBounds(x, y int) bool {
	return 0 <= x && x < p.Width && 0 <= y && y < p.Height
}

// ParseSeed parses a "width:height:mine_count[:unique]" seed. The unique
// part defaults to true when omitted.
func ParseSeed(seed string) (GameParams, error) {
	parts := strings.Split(seed, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return GameParams{}, errors.New("seed may contain 3 or 4 parts")
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return GameParams{}, errors.New("seed parts must be digits")
		}
		nums[i] = n
	}
	if nums[0] < 1 || nums[1] < 1 {
		return GameParams{}, errors.New("width and height must be positive")
	}
	p := GameParams{Width: nums[0], Height: nums[1], MineCount: nums[2], Unique: true}
	if len(nums) == 4 {
		p.Unique = nums[3] != 0
	}
	return p, nil
}

// Session is the server's authoritative snapshot of one game. The client
// never mutates it; every accepted move replaces it wholesale with the
// server's reply.
type Session struct {
	ID        string `json:"session_id"`
	Grid      []int  `json:"grid"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MineCount int    `json:"mine_count"`
	Unique    bool   `json:"unique"`
	Dead      bool   `json:"dead"`
	Won       bool   `json:"won"`
	StartedAt int64  `json:"started_at"`
	EndedAt   *int64 `json:"ended_at,omitempty"`
}

// Ended reports whether the game is over. EndedAt presence is the
// authoritative signal; the Won/Dead flags only classify the outcome.
func (s *Session) Ended() bool { return s.EndedAt != nil }

func (s *Session) InBounds(x, y int) bool {
	return 0 <= x && x < s.Width && 0 <= y && y < s.Height
}

// CellAt returns the code at (x, y). Coordinates must be in bounds.
func (s *Session) CellAt(x, y int) int { return s.Grid[y*s.Width+x] }

// MinesRemaining is derived, never stored: total mines minus placed flags.
func (s *Session) MinesRemaining() int {
	n := s.MineCount
	for _, c := range s.Grid {
		if c == CellFlag {
			n--
		}
	}
	return n
}

// Playtime is the elapsed game time, frozen at EndedAt for finished games.
func (s *Session) Playtime() time.Duration {
	end := time.Now().Unix()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return time.Duration(end-s.StartedAt) * time.Second
}

// Validate checks the structural invariants every snapshot must hold:
// a non-empty id, a grid of exactly width*height cells, and a verdict flag
// set iff the game has ended (exactly one of won/dead when it has).
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty session id", ErrProtocol)
	}
	if s.Width < 1 || s.Height < 1 {
		return fmt.Errorf("%w: non-positive board dimensions %dx%d", ErrProtocol, s.Width, s.Height)
	}
	if len(s.Grid) != s.Width*s.Height {
		return fmt.Errorf("%w: grid has %d cells, want %d*%d=%d",
			ErrProtocol, len(s.Grid), s.Width, s.Height, s.Width*s.Height)
	}
	if s.EndedAt != nil && s.Won == s.Dead {
		return fmt.Errorf("%w: game ended but won=%v dead=%v", ErrProtocol, s.Won, s.Dead)
	}
	if s.EndedAt == nil && (s.Won || s.Dead) {
		return fmt.Errorf("%w: verdict on a live game (won=%v dead=%v)", ErrProtocol, s.Won, s.Dead)
	}
	return nil
}

// DecodeSession parses and validates a server reply. Both transports run
// every incoming snapshot through this before handing it to the game.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed server reply: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
