package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

const (
	sessionCookie   = "user_session"
	shutdownTimeout = 5 * time.Second
	idlePingPeriod  = 30 * time.Second
	sendBufferSize  = 16
	writeWait       = 10 * time.Second
)

type uGame interface {
	RestartGame(ctx context.Context, id string) (entity.View, error)
	GetGame(ctx context.Context, id string) (entity.View, error)
	ClickCell(ctx context.Context, id string, cell int) (entity.View, error)
	JumpTo(ctx context.Context, id string, step int) (entity.View, error)
}

type handlerFunc func(ctx context.Context, client *client, message *Message) error

type Server struct {
	logger   *slog.Logger
	uGame    uGame
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, uGame uGame) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		uGame:  uGame,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionGameState] = server.handleGameState
	server.handlers[actionCellClick] = server.handleCellClick
	server.handlers[actionHistoryJump] = server.handleHistoryJump

	return server
}

// Handler - returns the /ws endpoint. Connections end when ctx is done.
func (that *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that.Handler(ctx))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// serveWS - upgrades the connection and processes its messages one by one.
func (that *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromCookie(r)
	log := that.logger.With("method", "serveWS", "session", sessionID)

	header := http.Header{}
	header.Add("Set-Cookie", (&http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/ws",
		HttpOnly: true,
	}).String())

	conn, err := that.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newClient(conn, sessionID)
	that.restoreGame(connCtx, c, log)

	go func() {
		if err := c.writePump(connCtx, cancel); err != nil {
			log.Debug("writer stopped", "error", err)
		}
	}()

	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	log.Info("WebSocket connection established")

	// the session's game outlives the connection until it expires
	that.handleMessages(connCtx, c, log)

	log.Info("WebSocket connection closed")
}

// restoreGame - picks up the game of a returning session.
func (that *Server) restoreGame(ctx context.Context, c *client, log *slog.Logger) {
	if _, err := that.uGame.GetGame(ctx, c.sessionID); err != nil {
		if !usecase.IsNotFound(err) {
			log.Warn("failed to restore session game", "error", err)
		}
		return
	}

	c.gameID = c.sessionID
	log.Debug("session game restored")
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, c *client, log *slog.Logger) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			c.send(ctx, newMessage(actionError, ResponsePayload{Error: "invalid message"}))
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			c.send(ctx, newMessage(actionError, ResponsePayload{Error: "unknown action"}))
			continue
		}

		if err = handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
			c.send(ctx, newMessage(message.Action, ResponsePayload{Error: "failed to process request"}))
		}
	}
}

// sessionFromCookie - returns the user session, or a new one.
func sessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return uuid.NewString()
	}

	if _, err = uuid.Parse(cookie.Value); err != nil {
		return uuid.NewString()
	}

	return cookie.Value
}
