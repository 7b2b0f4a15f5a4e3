// Package terminal renders the game in a terminal: a 3x3 board, the status
// line and the history list used for time travel.
package terminal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

const boardSide = 3

const helpText = "enter: play / jump   tab: board <-> history   n: new game   q: quit"

type uGame interface {
	NewGame(ctx context.Context) (entity.View, error)
	ClickCell(ctx context.Context, id string, cell int) (entity.View, error)
	JumpTo(ctx context.Context, id string, step int) (entity.View, error)
	DeleteGame(ctx context.Context, id string) error
}

type UI struct {
	ctx    context.Context
	logger *slog.Logger
	uGame  uGame

	app     *tview.Application
	board   *tview.Table
	history *tview.List
	status  *tview.TextView

	view entity.View
}

// New builds the widgets and starts the first game.
func New(ctx context.Context, logger *slog.Logger, uGame uGame) (*UI, error) {
	ui := &UI{
		ctx:    ctx,
		logger: logger.With("component", "terminal"),
		uGame:  uGame,

		app:     tview.NewApplication(),
		board:   tview.NewTable(),
		history: tview.NewList(),
		status:  tview.NewTextView(),
	}

	ui.board.
		SetBorders(true).
		SetSelectable(true, true).
		SetSelectedFunc(func(row, column int) {
			ui.onCellClick(row*boardSide + column)
		})
	ui.board.SetBorder(true).SetTitle(" Tic Tac Toe ")

	ui.history.
		ShowSecondaryText(false).
		SetSelectedFunc(func(index int, _, _ string, _ rune) {
			ui.onHistoryClick(index)
		})
	ui.history.SetBorder(true).SetTitle(" Game History ")

	ui.status.SetTextAlign(tview.AlignCenter)

	help := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText(helpText)

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.status, 1, 0, false).
		AddItem(ui.board, boardSide*2+3, 0, true)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(left, 0, 2, true).
			AddItem(ui.history, 0, 1, false), 0, 1, true).
		AddItem(help, 1, 0, false)

	ui.app.SetRoot(layout, true).SetInputCapture(ui.handleKey)

	if err := ui.newGame(); err != nil {
		return nil, err
	}

	return ui, nil
}

// Run blocks until the player quits or ctx is done.
func (that *UI) Run() error {
	go func() {
		<-that.ctx.Done()
		that.app.Stop()
	}()

	if err := that.app.Run(); err != nil {
		return fmt.Errorf("terminal ui failed: %w", err)
	}

	if err := that.uGame.DeleteGame(context.WithoutCancel(that.ctx), that.view.ID); err != nil {
		that.logger.Warn("failed to delete game", "gameID", that.view.ID, "error", err)
	}

	return nil
}

func (that *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyTab || event.Key() == tcell.KeyBacktab:
		if that.board.HasFocus() {
			that.app.SetFocus(that.history)
		} else {
			that.app.SetFocus(that.board)
		}
		return nil
	case event.Rune() == 'n':
		if err := that.newGame(); err != nil {
			that.logger.Error("failed to start new game", "error", err)
		}
		return nil
	case event.Rune() == 'q' || event.Key() == tcell.KeyEscape:
		that.app.Stop()
		return nil
	}

	return event
}

func (that *UI) newGame() error {
	previous := that.view.ID

	view, err := that.uGame.NewGame(that.ctx)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	if previous != "" {
		if err = that.uGame.DeleteGame(that.ctx, previous); err != nil {
			that.logger.Warn("failed to delete previous game", "gameID", previous, "error", err)
		}
	}

	that.render(view)

	return nil
}

func (that *UI) onCellClick(cell int) {
	view, err := that.uGame.ClickCell(that.ctx, that.view.ID, cell)
	if err != nil {
		that.logger.Error("failed to click cell", "cell", cell, "error", err)
		return
	}

	that.render(view)
}

func (that *UI) onHistoryClick(step int) {
	view, err := that.uGame.JumpTo(that.ctx, that.view.ID, step)
	if err != nil {
		that.logger.Error("failed to jump", "step", step, "error", err)
		return
	}

	that.render(view)
}

func (that *UI) render(view entity.View) {
	that.view = view

	that.status.SetText(view.Status)

	for i, cell := range view.Board {
		that.board.SetCell(i/boardSide, i%boardSide, boardCell(view, i, cell))
	}

	that.history.Clear()
	for _, move := range view.Moves {
		that.history.AddItem(move.Label, "", 0, nil)
	}
	that.history.SetCurrentItem(view.CurrentStep)
}

func boardCell(view entity.View, idx int, cell entity.Cell) *tview.TableCell {
	text := string(cell)
	if cell == entity.EmptyCell {
		text = " "
	}

	tableCell := tview.NewTableCell(" " + text + " ").
		SetAlign(tview.AlignCenter).
		SetExpansion(1)

	if view.IsWinningCell(idx) {
		tableCell.SetTextColor(tcell.ColorDarkGreen).SetBackgroundColor(tcell.ColorLightGreen)
	}

	return tableCell
}
