package terminal

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

func newTestUI(t *testing.T) (*UI, repository.GameRepository) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := repository.NewMemoryGameRepository(0)

	ui, err := New(context.Background(), logger, usecase.NewGameManager(logger, repo))
	require.NoError(t, err)

	return ui, repo
}

func cellText(ui *UI, idx int) string {
	return strings.TrimSpace(ui.board.GetCell(idx/boardSide, idx%boardSide).Text)
}

func TestUI_NewGame(t *testing.T) {
	// When: the UI starts
	ui, _ := newTestUI(t)

	// Then: an empty board with X to move and a single history entry
	assert.Equal(t, "Next player: X", ui.status.GetText(true))
	for i := 0; i < 9; i++ {
		assert.Empty(t, cellText(ui, i))
	}

	require.Equal(t, 1, ui.history.GetItemCount())
	label, _ := ui.history.GetItemText(0)
	assert.Equal(t, "Go to game start", label)
}

func TestUI_CellClicks(t *testing.T) {
	ui, _ := newTestUI(t)

	// When: X wins on the top row
	for _, cell := range []int{0, 4, 1, 5, 2} {
		ui.onCellClick(cell)
	}

	// Then: the board, status and history reflect the win
	assert.Equal(t, "X", cellText(ui, 0))
	assert.Equal(t, "O", cellText(ui, 4))
	assert.Equal(t, "Winner: X", ui.status.GetText(true))
	assert.Equal(t, 6, ui.history.GetItemCount())
	assert.Equal(t, 5, ui.history.GetCurrentItem())

	// Then: the winning line is highlighted
	assert.Equal(t, tcell.ColorLightGreen, ui.board.GetCell(0, 0).BackgroundColor)

	// When: clicking after the win
	ui.onCellClick(8)

	// Then: nothing changes
	assert.Empty(t, cellText(ui, 8))
	assert.Equal(t, 6, ui.history.GetItemCount())
}

func TestUI_HistoryClick(t *testing.T) {
	ui, _ := newTestUI(t)
	for _, cell := range []int{0, 4, 1, 5, 2} {
		ui.onCellClick(cell)
	}

	// When: jumping to step 2
	ui.onHistoryClick(2)

	// Then: the board at step 2 is shown and the history is kept
	assert.Equal(t, "Next player: X", ui.status.GetText(true))
	assert.Empty(t, cellText(ui, 1))
	assert.Equal(t, 6, ui.history.GetItemCount())
	assert.Equal(t, 2, ui.history.GetCurrentItem())

	// When: playing from there
	ui.onCellClick(8)

	// Then: later entries are dropped
	assert.Equal(t, 4, ui.history.GetItemCount())
	label, _ := ui.history.GetItemText(3)
	assert.Equal(t, "Go to move #3", label)
}

func TestUI_NewGameKey(t *testing.T) {
	ui, repo := newTestUI(t)
	ui.onCellClick(4)
	previous := ui.view.ID

	// When: the player presses n
	event := ui.handleKey(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))

	// Then: a fresh game replaces the previous one
	assert.Nil(t, event)
	assert.NotEqual(t, previous, ui.view.ID)
	assert.Empty(t, cellText(ui, 4))

	_, err := repo.GetByID(context.Background(), previous)
	require.ErrorIs(t, err, repository.ErrGameNotFound)
}

func TestUI_TabSwitchesFocus(t *testing.T) {
	ui, _ := newTestUI(t)
	require.True(t, ui.board.HasFocus())

	ui.handleKey(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	assert.True(t, ui.history.HasFocus())

	ui.handleKey(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	assert.True(t, ui.board.HasFocus())
}
