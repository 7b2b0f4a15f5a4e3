package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

var ErrCorruptedGame = errors.New("stored game is corrupted")

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	Update(ctx context.Context, id string, apply repository.UpdateFunc) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

// GameManager turns presentation intents into engine calls and keeps the
// resulting state in the repository.
type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo: gameRepo,
	}
}

// NewGame starts a game from the empty board.
func (that *GameManager) NewGame(ctx context.Context) (entity.View, error) {
	return that.RestartGame(ctx, uuid.NewString())
}

// RestartGame stores an empty board under id, replacing any game kept there.
func (that *GameManager) RestartGame(ctx context.Context, id string) (entity.View, error) {
	game := entity.NewGame(id)

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return entity.View{}, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Debug("game created", "gameID", game.ID)

	return tictactoe.Describe(game), nil
}

// GetGame returns the current view of a game.
func (that *GameManager) GetGame(ctx context.Context, id string) (entity.View, error) {
	game, err := that.getGameByID(ctx, id)
	if err != nil {
		return entity.View{}, err
	}

	return tictactoe.Describe(game), nil
}

// ClickCell plays cell for the player to move. Rejected moves leave the game
// unchanged and are not reported as errors.
func (that *GameManager) ClickCell(ctx context.Context, id string, cell int) (entity.View, error) {
	log := that.logger.With("method", "ClickCell", "gameID", id, "cell", cell)

	view, err := that.applyIntent(ctx, id, func(game *entity.Game) (*entity.Game, error) {
		return tictactoe.MakeTurn(game, cell)
	})
	if err != nil {
		var rejected *rejectedIntentError
		if errors.As(err, &rejected) {
			log.Debug("move rejected", "reason", rejected.err)
			return rejected.view, nil
		}

		return entity.View{}, fmt.Errorf("failed to make turn: %w", err)
	}

	if !view.Outcome.IsInProgress() {
		log.Info("game concluded", "status", view.Status)
	}

	return view, nil
}

// JumpTo shows the board recorded at step. Steps outside the history leave
// the game unchanged.
func (that *GameManager) JumpTo(ctx context.Context, id string, step int) (entity.View, error) {
	log := that.logger.With("method", "JumpTo", "gameID", id, "step", step)

	view, err := that.applyIntent(ctx, id, func(game *entity.Game) (*entity.Game, error) {
		return tictactoe.JumpTo(game, step)
	})
	if err != nil {
		var rejected *rejectedIntentError
		if errors.As(err, &rejected) {
			log.Warn("jump rejected", "reason", rejected.err)
			return rejected.view, nil
		}

		return entity.View{}, fmt.Errorf("failed to jump to step: %w", err)
	}

	return view, nil
}

// DeleteGame drops a game, e.g. when its session ends.
func (that *GameManager) DeleteGame(ctx context.Context, id string) error {
	if err := that.gameRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

// rejectedIntentError aborts a repository update and carries the view of the
// game the intent was rejected on.
type rejectedIntentError struct {
	err  error
	view entity.View
}

func (that *rejectedIntentError) Error() string {
	return that.err.Error()
}

func (that *rejectedIntentError) Unwrap() error {
	return that.err
}

// applyIntent runs one engine step as a single repository update, so intents
// on the same game are processed one at a time.
func (that *GameManager) applyIntent(
	ctx context.Context, id string, step func(game *entity.Game) (*entity.Game, error),
) (entity.View, error) {
	next, err := that.gameRepo.Update(ctx, id, func(game *entity.Game) (*entity.Game, error) {
		if !game.IsValid() {
			return nil, fmt.Errorf("%w: game id %s", ErrCorruptedGame, id)
		}

		next, err := step(game)
		if err != nil {
			if isRejectedIntent(err) {
				return nil, &rejectedIntentError{err: err, view: tictactoe.Describe(game)}
			}

			return nil, err
		}

		return next, nil
	})
	if err != nil {
		return entity.View{}, err
	}

	return tictactoe.Describe(next), nil
}

func isRejectedIntent(err error) bool {
	return errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrCellOccupied) ||
		errors.Is(err, apperror.ErrInvalidCell) ||
		errors.Is(err, apperror.ErrStepOutOfRange)
}

func (that *GameManager) getGameByID(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if !game.IsValid() {
		return nil, fmt.Errorf("%w: game id %s", ErrCorruptedGame, id)
	}

	return game, nil
}

// IsNotFound reports whether err means the game does not exist (or expired).
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrGameNotFound)
}
