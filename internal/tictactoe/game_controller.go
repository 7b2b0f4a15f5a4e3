package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

const (
	labelGameStart = "Go to game start"
	labelMove      = "Go to move #%d"
)

// MakeTurn places the mark of the player to move on cell and returns the new
// game. The input game is never modified; on error it is returned as is.
func MakeTurn(game *entity.Game, cell int) (*entity.Game, error) {
	if err := validateMove(game, cell); err != nil {
		return game, fmt.Errorf("invalid turn: %w", err)
	}

	board := game.CurrentBoard()
	board[cell] = game.Turn()

	// moves made after a jump drop every later entry
	history := make([]entity.Board, game.CurrentStep+1, game.CurrentStep+2)
	copy(history, game.History[:game.CurrentStep+1])
	history = append(history, board)

	return &entity.Game{
		ID:          game.ID,
		History:     history,
		CurrentStep: len(history) - 1,
	}, nil
}

// JumpTo moves the current step to any recorded history entry.
func JumpTo(game *entity.Game, step int) (*entity.Game, error) {
	if step < 0 || step >= len(game.History) {
		return game, fmt.Errorf("%w: step %d of %d", apperror.ErrStepOutOfRange, step, len(game.History))
	}

	next := game.Clone()
	next.CurrentStep = step

	return next, nil
}

// validateMove - checks if the move is valid.
func validateMove(game *entity.Game, cell int) error {
	if !game.Outcome().IsInProgress() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if game.CurrentBoard()[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// Moves lists every history entry the player can jump to.
func Moves(game *entity.Game) []entity.Move {
	moves := make([]entity.Move, 0, len(game.History))
	for step := range game.History {
		label := labelGameStart
		if step > 0 {
			label = fmt.Sprintf(labelMove, step)
		}

		moves = append(moves, entity.Move{
			Step:    step,
			Label:   label,
			Current: step == game.CurrentStep,
		})
	}

	return moves
}

// Describe builds the view rendered by the presentation layers.
func Describe(game *entity.Game) entity.View {
	outcome := game.Outcome()

	view := entity.View{
		ID:          game.ID,
		Board:       game.CurrentBoard(),
		Outcome:     outcome,
		CurrentStep: game.CurrentStep,
		Moves:       Moves(game),
	}

	switch {
	case outcome.IsWin():
		view.Status = "Winner: " + string(outcome.Winner)
	case outcome.IsDraw():
		view.Status = "Winner: Draw"
	default:
		view.NextPlayer = game.Turn()
		view.Status = "Next player: " + string(view.NextPlayer)
	}

	return view
}
