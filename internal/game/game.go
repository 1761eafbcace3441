// Package game implements the 3x3 Tic-Tac-Toe board state machine: move
// parsing, move application, winner and draw detection, and rendering of
// the board for transmission to players.
package game

import (
	"errors"
	"strings"
	"sync"
)

// Role distinguishes the two sides of a game. First moves first and plays X.
type Role uint8

const (
	NoRole Role = iota
	First
	Second
)

// Piece returns the board character for the role.
func (r Role) Piece() byte {
	switch r {
	case First:
		return 'X'
	case Second:
		return 'O'
	default:
		return ' '
	}
}

func (r Role) String() string {
	switch r {
	case First:
		return "first"
	case Second:
		return "second"
	default:
		return "none"
	}
}

// Other returns the opposing role.
func (r Role) Other() Role {
	switch r {
	case First:
		return Second
	case Second:
		return First
	default:
		return NoRole
	}
}

var (
	// ErrInvalidMove reports move text that cannot be parsed, or a piece
	// that disagrees with the mover's role.
	ErrInvalidMove = errors.New("invalid move")
	// ErrIllegalMove reports a parseable move that is not legal in the
	// current game state.
	ErrIllegalMove = errors.New("illegal move")
	// ErrGameOver reports an operation on a game that has already ended.
	ErrGameOver = errors.New("game is over")
)

// Move is a single placement: a cell 1..9 (1 = top-left, 9 = bottom-right)
// and the piece being placed.
type Move struct {
	Cell  int
	Piece Role
}

// Game is a 3x3 board. All methods are safe for concurrent use.
type Game struct {
	mu     sync.Mutex
	board  [9]Role
	turn   Role
	over   bool
	winner Role
}

// New creates a game with an empty board and First to move.
func New() *Game {
	return &Game{turn: First}
}

// winning index triples: three rows, three columns, two diagonals.
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// ParseMove interprets text as a move made by role. The accepted forms are
// a bare cell digit ("5"), or a cell digit followed by a separator and a
// piece letter ("5X", "5->O", "5 x"). A bare cell takes the mover's own
// piece; an explicit piece must agree with the mover's role unless role is
// NoRole.
func ParseMove(role Role, text string) (Move, error) {
	s := strings.TrimSpace(text)
	if len(s) == 0 {
		return Move{}, ErrInvalidMove
	}
	cell := int(s[0] - '0')
	if cell < 1 || cell > 9 {
		return Move{}, ErrInvalidMove
	}

	piece := NoRole
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case 'x', 'X':
			piece = First
		case 'o', 'O':
			piece = Second
		}
		if piece != NoRole {
			break
		}
	}
	if piece == NoRole {
		if len(s) > 1 || role == NoRole {
			return Move{}, ErrInvalidMove
		}
		piece = role
	}
	if role != NoRole && piece != role {
		return Move{}, ErrInvalidMove
	}
	return Move{Cell: cell, Piece: piece}, nil
}

// UnparseMove renders a move in a form that ParseMove accepts.
func (m Move) UnparseMove() string {
	return string([]byte{byte('0' + m.Cell), '-', '>', m.Piece.Piece()})
}

// ApplyMove places the move on the board. It fails with ErrIllegalMove if
// the game is over, the cell is occupied, or the piece is not on the move.
// After a successful placement the turn flips and the terminal state is
// recomputed.
func (g *Game) ApplyMove(m Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over || g.board[m.Cell-1] != NoRole || g.turn != m.Piece {
		return ErrIllegalMove
	}
	g.board[m.Cell-1] = m.Piece
	g.turn = g.turn.Other()

	for _, ln := range lines {
		p := g.board[ln[0]]
		if p != NoRole && p == g.board[ln[1]] && p == g.board[ln[2]] {
			g.over = true
			g.winner = p
			return nil
		}
	}
	full := true
	for _, c := range g.board {
		if c == NoRole {
			full = false
			break
		}
	}
	if full {
		g.over = true
		g.winner = NoRole
	}
	return nil
}

// Resign ends the game in favor of role's opponent. It is an error if the
// game has already terminated.
func (g *Game) Resign(role Role) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return ErrGameOver
	}
	g.over = true
	g.winner = role.Other()
	return nil
}

// Over reports whether the game has terminated.
func (g *Game) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

// Winner returns the winning role, or NoRole if the game is drawn or still
// in progress.
func (g *Game) Winner() Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// Turn returns the role currently on the move.
func (g *Game) Turn() Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// UnparseState renders the board as five newline-terminated lines: cell
// rows with '|' separators, alternating with "-----" rules. Empty cells
// render as spaces.
func (g *Game) UnparseState() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			b.WriteString("-----\n")
		}
		for col := 0; col < 3; col++ {
			if col > 0 {
				b.WriteByte('|')
			}
			b.WriteByte(g.board[row*3+col].Piece())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
