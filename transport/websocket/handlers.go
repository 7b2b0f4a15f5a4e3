package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

var (
	ErrNoActiveGame = errors.New("no active game")
	ErrMissingCell  = errors.New("cell is required")
	ErrMissingStep  = errors.New("step is required")
)

// handleNewGame - starts a fresh game for the session, replacing the previous one.
func (that *Server) handleNewGame(ctx context.Context, c *client, msg *Message) error {
	view, err := that.uGame.RestartGame(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	c.gameID = view.ID

	return that.reply(ctx, c, msg.Action, view)
}

func (that *Server) handleGameState(ctx context.Context, c *client, msg *Message) error {
	if c.gameID == "" {
		return that.replyError(ctx, c, msg.Action, ErrNoActiveGame)
	}

	view, err := that.uGame.GetGame(ctx, c.gameID)
	if err != nil {
		if usecase.IsNotFound(err) {
			return that.dropExpiredGame(ctx, c, msg.Action)
		}

		return fmt.Errorf("failed to get game: %w", err)
	}

	return that.reply(ctx, c, msg.Action, view)
}

// handleCellClick - forwards onCellClick to the game.
func (that *Server) handleCellClick(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodeRequest(msg)
	if err != nil {
		return err
	}

	if c.gameID == "" {
		return that.replyError(ctx, c, msg.Action, ErrNoActiveGame)
	}

	if payload.Cell == nil {
		return that.replyError(ctx, c, msg.Action, ErrMissingCell)
	}

	view, err := that.uGame.ClickCell(ctx, c.gameID, *payload.Cell)
	if err != nil {
		if usecase.IsNotFound(err) {
			return that.dropExpiredGame(ctx, c, msg.Action)
		}

		return fmt.Errorf("failed to click cell: %w", err)
	}

	return that.reply(ctx, c, msg.Action, view)
}

// handleHistoryJump - forwards onHistoryClick to the game.
func (that *Server) handleHistoryJump(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodeRequest(msg)
	if err != nil {
		return err
	}

	if c.gameID == "" {
		return that.replyError(ctx, c, msg.Action, ErrNoActiveGame)
	}

	if payload.Step == nil {
		return that.replyError(ctx, c, msg.Action, ErrMissingStep)
	}

	view, err := that.uGame.JumpTo(ctx, c.gameID, *payload.Step)
	if err != nil {
		if usecase.IsNotFound(err) {
			return that.dropExpiredGame(ctx, c, msg.Action)
		}

		return fmt.Errorf("failed to jump to step: %w", err)
	}

	return that.reply(ctx, c, msg.Action, view)
}

// dropExpiredGame - the session's game expired while the connection was open.
func (that *Server) dropExpiredGame(ctx context.Context, c *client, action string) error {
	that.logger.Debug("session game expired", "gameID", c.gameID)
	c.gameID = ""

	return that.replyError(ctx, c, action, ErrNoActiveGame)
}

func (that *Server) reply(ctx context.Context, c *client, action string, view entity.View) error {
	c.send(ctx, newMessage(action, ResponsePayload{Game: &view}))
	return nil
}

func (that *Server) replyError(ctx context.Context, c *client, action string, err error) error {
	c.send(ctx, newMessage(action, ResponsePayload{Error: err.Error()}))
	return nil
}
