package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, repository.NewMemoryGameRepository(0))

	srv := httptest.NewServer(New(logger, manager).Router())
	t.Cleanup(srv.Close)

	return srv
}

func post(t *testing.T, url string) (int, entity.View) {
	t.Helper()

	resp, err := http.Post(url, "application/json", nil) //nolint: noctx // test helper
	require.NoError(t, err)
	defer resp.Body.Close()

	var view entity.View
	if resp.StatusCode < http.StatusBadRequest {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	}

	return resp.StatusCode, view
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ping") //nolint: noctx // test
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestGamesAPI(t *testing.T) {
	srv := newTestServer(t)

	// Given: a new game
	status, created := post(t, srv.URL+"/games/")
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	gameURL := srv.URL + "/games/" + created.ID

	// When: X wins on the top row
	for _, cell := range []string{"0", "4", "1", "5", "2"} {
		status, _ = post(t, gameURL+"/cells/"+cell)
		require.Equal(t, http.StatusOK, status)
	}

	// Then: the game reports the winner
	resp, err := http.Get(gameURL) //nolint: noctx // test
	require.NoError(t, err)
	defer resp.Body.Close()

	var view entity.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "Winner: X", view.Status)
	require.NotNil(t, view.Outcome.Line)
	assert.Equal(t, [3]int{0, 1, 2}, *view.Outcome.Line)

	// When: jumping back to step 2 and playing cell 8
	status, view = post(t, gameURL+"/history/2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Next player: X", view.Status)

	status, view = post(t, gameURL+"/cells/8")
	require.Equal(t, http.StatusOK, status)

	// Then: later moves are discarded
	assert.Len(t, view.Moves, 4)
	assert.Equal(t, entity.PlayerX, view.Board[8])
}

func TestGamesAPI_Errors(t *testing.T) {
	srv := newTestServer(t)

	t.Run("Unknown game", func(t *testing.T) {
		status, _ := post(t, srv.URL+"/games/missing/cells/0")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("Cell is not a number", func(t *testing.T) {
		_, created := post(t, srv.URL+"/games/")

		status, _ := post(t, srv.URL+"/games/"+created.ID+"/cells/center")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("Rejected move returns the unchanged game", func(t *testing.T) {
		_, created := post(t, srv.URL+"/games/")

		status, view := post(t, srv.URL+"/games/"+created.ID+"/cells/42")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, created, view)
	})
}
