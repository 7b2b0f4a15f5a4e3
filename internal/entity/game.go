package entity

import "slices"

// Cell is a single square of the board.
type Cell string

const (
	EmptyCell Cell = ""
	PlayerX   Cell = "X"
	PlayerO   Cell = "O"
)

const (
	StatusInProgress = "in_progress"
	StatusWin        = "win"
	StatusDraw       = "draw"
)

const BoardSize = 9

// WinCombos lists the rows, columns and diagonals in priority order.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is indexed row-major: row = index/3, col = index%3.
type Board [BoardSize]Cell

// Outcome is derived from a board and never stored.
type Outcome struct {
	Status string  `json:"status"`
	Winner Cell    `json:"winner,omitempty"`
	Line   *[3]int `json:"line,omitempty"`
}

func (that Outcome) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that Outcome) IsWin() bool {
	return that.Status == StatusWin
}

func (that Outcome) IsDraw() bool {
	return that.Status == StatusDraw
}

// Game holds the move history and the step currently on display.
type Game struct {
	ID          string  `json:"id"`
	History     []Board `json:"history"`
	CurrentStep int     `json:"current_step"`
}

func NewGame(id string) *Game {
	return &Game{
		ID:          id,
		History:     []Board{{}},
		CurrentStep: 0,
	}
}

// Evaluate returns the first uniform line in WinCombos order, a draw for a
// full board, and in-progress otherwise.
func Evaluate(board Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			line := combo
			return Outcome{Status: StatusWin, Winner: a, Line: &line}
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range board {
		if cell == EmptyCell {
			return Outcome{Status: StatusInProgress}
		}
	}

	return Outcome{Status: StatusDraw}
}

// MarkForStep returns the mark that moves from the position at step.
func MarkForStep(step int) Cell {
	if step%2 == 0 {
		return PlayerX
	}
	return PlayerO
}

func (that *Game) CurrentBoard() Board {
	return that.History[that.CurrentStep]
}

func (that *Game) Turn() Cell {
	return MarkForStep(that.CurrentStep)
}

func (that *Game) Outcome() Outcome {
	return Evaluate(that.CurrentBoard())
}

// Clone returns a deep copy so callers can derive new states without
// touching the receiver.
func (that *Game) Clone() *Game {
	return &Game{
		ID:          that.ID,
		History:     slices.Clone(that.History),
		CurrentStep: that.CurrentStep,
	}
}

// IsValid reports whether the game can be played from: a non-empty history
// starting with an empty board and a current step inside it.
func (that *Game) IsValid() bool {
	if len(that.History) == 0 || that.History[0] != (Board{}) {
		return false
	}

	return that.CurrentStep >= 0 && that.CurrentStep < len(that.History)
}
