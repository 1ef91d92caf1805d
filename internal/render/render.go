package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper-cli/pkg/types"
)

const (
	reset = "\x1b[0m"
	dim   = "\x1b[2m"
	cyan  = "\x1b[36m"
	green = "\x1b[32m"
	red   = "\x1b[31m"
	blue  = "\x1b[34m"
	grey  = "\x1b[90m"
	white = "\x1b[37m"
	bgRed = "\x1b[41m"
)

// glyph maps a cell code to its single-character glyph. Total over all ints:
// codes the table does not know come out as "%" instead of failing.
func glyph(code int) string {
	switch code {
	case types.CellQuestion:
		return "?"
	case types.CellClosed:
		return "#"
	case types.CellFlag:
		return "F"
	case types.CellFlagAlt:
		return "!"
	case 0:
		return "."
	case 1, 2, 3, 4, 5, 6, 7, 8:
		return strconv.Itoa(code)
	case types.CellMine, types.CellMineBoom:
		return "*"
	case types.CellFalseFlag:
		return "X"
	case types.CellMineMissed:
		return "x"
	default:
		return "%"
	}
}

func cell(code int, color bool) string {
	g := glyph(code)
	if !color {
		return g
	}
	switch code {
	case 1:
		return cyan + g + reset
	case 2:
		return green + g + reset
	case 3:
		return red + g + reset
	case 4, 8:
		return dim + blue + g + reset
	case 5:
		return dim + red + g + reset
	case 6:
		return dim + green + g + reset
	case 7:
		return dim + grey + g + reset
	case types.CellMineBoom:
		return white + bgRed + g + reset
	default:
		return g
	}
}

// Grid renders a flat cell-code slice as rows of width cells under a column
// ruler. Indices are padded to ceil(log10(width)) characters so they stay
// aligned for any grid size. len(grid) must be a multiple of width; a ragged
// trailing remainder is not rendered (Session.Validate rejects such grids
// before they get here).
func Grid(grid []int, width int, color bool) string {
	colwidth := int(math.Ceil(math.Log10(float64(width))))
	if colwidth < 1 {
		colwidth = 1
	}
	pad := strings.Repeat(" ", colwidth-1)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", colwidth+1))
	if color {
		b.WriteString(dim)
	}
	for col := 0; col < width; col++ {
		if col > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%*d", colwidth, col)
	}
	if color {
		b.WriteString(reset)
	}

	rows := len(grid) / width
	for row := 0; row < rows; row++ {
		b.WriteByte('\n')
		if color {
			b.WriteString(dim)
		}
		fmt.Fprintf(&b, "%*d", colwidth, row)
		if color {
			b.WriteString(reset)
		}
		b.WriteByte(' ')
		for col := 0; col < width; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(pad)
			b.WriteString(cell(grid[row*width+col], color))
		}
	}
	return b.String()
}

// Closed renders the synthetic all-closed board shown before a game exists.
func Closed(p types.GameParams, color bool) string {
	grid := make([]int, p.Width*p.Height)
	for i := range grid {
		grid[i] = types.CellClosed
	}
	return Grid(grid, p.Width, color)
}
