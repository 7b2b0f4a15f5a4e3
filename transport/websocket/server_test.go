package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

type testServer struct {
	url  string
	repo repository.GameRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := repository.NewMemoryGameRepository(0)
	manager := usecase.NewGameManager(logger, repo)

	srv := httptest.NewServer(New(logger, manager).Handler(ctx))
	t.Cleanup(srv.Close)

	return &testServer{
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		repo: repo,
	}
}

// connect opens a connection, resuming session when it is not empty, and
// returns the session the server assigned.
func (that *testServer) connect(t *testing.T, session string) (*testConn, string) {
	t.Helper()

	header := http.Header{}
	if session != "" {
		header.Set("Cookie", (&http.Cookie{Name: sessionCookie, Value: session}).String())
	}

	conn, resp, err := websocket.DefaultDialer.Dial(that.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)

	return &testConn{t: t, conn: conn}, cookies[0].Value
}

func dial(t *testing.T) (*testConn, repository.GameRepository) {
	t.Helper()

	srv := newTestServer(t)
	client, _ := srv.connect(t, "")

	return client, srv.repo
}

func (that *testConn) call(action string, payload any) (string, ResponsePayload) {
	that.t.Helper()

	msg := Message{Action: action}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	require.NoError(that.t, that.conn.WriteJSON(msg))

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var response Message
	require.NoError(that.t, that.conn.ReadJSON(&response))

	var body ResponsePayload
	require.NoError(that.t, json.Unmarshal(response.Payload, &body))

	return response.Action, body
}

func intPtr(v int) *int {
	return &v
}

func TestServer_PlayAndTimeTravel(t *testing.T) {
	client, _ := dial(t)

	// Given: a new game
	action, resp := client.call(actionGameNew, nil)
	require.Equal(t, actionGameNew, action)
	require.NotNil(t, resp.Game)
	assert.Equal(t, "Next player: X", resp.Game.Status)

	// When: X wins on the top row
	for _, cell := range []int{0, 4, 1, 5, 2} {
		action, resp = client.call(actionCellClick, RequestPayload{Cell: intPtr(cell)})
		require.Equal(t, actionCellClick, action)
		require.Empty(t, resp.Error)
	}

	// Then: the winner is announced
	assert.Equal(t, "Winner: X", resp.Game.Status)

	// When: a click after the win
	_, resp = client.call(actionCellClick, RequestPayload{Cell: intPtr(8)})

	// Then: nothing changes
	assert.Equal(t, "Winner: X", resp.Game.Status)
	assert.Len(t, resp.Game.Moves, 6)

	// When: jumping back to step 2 and playing cell 8
	_, resp = client.call(actionHistoryJump, RequestPayload{Step: intPtr(2)})
	assert.Equal(t, "Next player: X", resp.Game.Status)

	_, resp = client.call(actionCellClick, RequestPayload{Cell: intPtr(8)})

	// Then: later moves are discarded
	assert.Len(t, resp.Game.Moves, 4)
	assert.Equal(t, entity.PlayerX, resp.Game.Board[8])

	// Then: game:state returns the same view
	_, state := client.call(actionGameState, nil)
	assert.Equal(t, resp.Game, state.Game)
}

func TestServer_Errors(t *testing.T) {
	t.Run("Click without a game", func(t *testing.T) {
		client, _ := dial(t)

		action, resp := client.call(actionCellClick, RequestPayload{Cell: intPtr(0)})

		assert.Equal(t, actionCellClick, action)
		assert.Equal(t, ErrNoActiveGame.Error(), resp.Error)
		assert.Nil(t, resp.Game)
	})

	t.Run("Click without a cell", func(t *testing.T) {
		client, _ := dial(t)
		client.call(actionGameNew, nil)

		_, resp := client.call(actionCellClick, nil)

		assert.Equal(t, ErrMissingCell.Error(), resp.Error)
	})

	t.Run("Jump without a step", func(t *testing.T) {
		client, _ := dial(t)
		client.call(actionGameNew, nil)

		_, resp := client.call(actionHistoryJump, RequestPayload{})

		assert.Equal(t, ErrMissingStep.Error(), resp.Error)
	})

	t.Run("Unknown action", func(t *testing.T) {
		client, _ := dial(t)

		action, resp := client.call("game:join", nil)

		assert.Equal(t, actionError, action)
		assert.Equal(t, "unknown action", resp.Error)
	})
}

func TestServer_NewGameReplacesPrevious(t *testing.T) {
	client, repo := dial(t)

	// Given: a game in progress
	_, first := client.call(actionGameNew, nil)
	client.call(actionCellClick, RequestPayload{Cell: intPtr(4)})

	// When: another game is started
	_, second := client.call(actionGameNew, nil)

	// Then: the session's game starts over under the same id
	assert.Equal(t, first.Game.ID, second.Game.ID)
	assert.Equal(t, entity.Board{}, second.Game.Board)

	stored, err := repo.GetByID(context.Background(), second.Game.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)
}

func TestServer_ReconnectResumesSessionGame(t *testing.T) {
	srv := newTestServer(t)

	// Given: a session that played a move and disconnected
	client, session := srv.connect(t, "")
	client.call(actionGameNew, nil)
	_, played := client.call(actionCellClick, RequestPayload{Cell: intPtr(4)})
	require.NoError(t, client.conn.Close())

	// When: the browser reconnects with its session cookie
	resumed, resumedSession := srv.connect(t, session)

	// Then: the same session and its game are back
	assert.Equal(t, session, resumedSession)

	_, state := resumed.call(actionGameState, nil)
	require.Empty(t, state.Error)
	assert.Equal(t, played.Game, state.Game)
}

func TestServer_UnknownSessionStartsFresh(t *testing.T) {
	srv := newTestServer(t)

	// When: a cookie that is not a session id is sent
	client, session := srv.connect(t, "not-a-session")

	// Then: a new session without a game is issued
	assert.NotEqual(t, "not-a-session", session)

	_, state := client.call(actionGameState, nil)
	assert.Equal(t, ErrNoActiveGame.Error(), state.Error)
}

func TestServer_ExpiredGameIsDropped(t *testing.T) {
	client, repo := dial(t)

	// Given: the session's game expired while connected
	_, created := client.call(actionGameNew, nil)
	require.NoError(t, repo.DeleteByID(context.Background(), created.Game.ID))

	// When: a cell is clicked
	_, resp := client.call(actionCellClick, RequestPayload{Cell: intPtr(0)})

	// Then: the client is told to start a new game
	assert.Equal(t, ErrNoActiveGame.Error(), resp.Error)
}
