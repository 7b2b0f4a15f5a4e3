package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connection of a browser session. The session's game is
// stored under sessionID; gameID is set once that game exists and is only
// touched by the read loop.
type client struct {
	conn      *websocket.Conn
	out       chan []byte
	sessionID string
	gameID    string
}

func newClient(conn *websocket.Conn, sessionID string) *client {
	return &client{
		conn:      conn,
		out:       make(chan []byte, sendBufferSize),
		sessionID: sessionID,
	}
}

func (that *client) send(ctx context.Context, data []byte) {
	select {
	case that.out <- data:
	case <-ctx.Done():
	}
}

// writePump - runs the writer until it fails or ctx is done. Its exit cancels
// the connection, so the read loop never blocks on a dead writer.
func (that *client) writePump(ctx context.Context, cancel context.CancelFunc) error {
	defer cancel()
	defer that.conn.Close()

	return that.writeWithHeartbeat(ctx)
}

// writeWithHeartbeat - writes queued messages and pings an idle connection.
func (that *client) writeWithHeartbeat(ctx context.Context) error {
	ticker := time.NewTicker(idlePingPeriod)
	defer ticker.Stop()

	lastWrite := time.Now()
	ping := mustMarshal(Message{Action: actionPing})

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-that.out:
			if err := that.write(msg); err != nil {
				return fmt.Errorf("failed to write message: %w", err)
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < idlePingPeriod {
				continue
			}
			if err := that.write(ping); err != nil {
				return fmt.Errorf("failed to write ping: %w", err)
			}
			lastWrite = time.Now()
		}
	}
}

func (that *client) write(msg []byte) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.conn.WriteMessage(websocket.TextMessage, msg)
}
