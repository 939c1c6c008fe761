package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type uGame interface {
	AnnounceIdentity(ctx context.Context, connID, handle string) (*entity.Identity, error)
	RequestMatch(connID string) (string, error)
	AcceptMatch(connID, roomID string) error
	SubmitMove(ctx context.Context, connID, roomID string, position int) error
	Disconnect(ctx context.Context, connID string)
}

type Server struct {
	logger   *slog.Logger
	hub      *Hub
	uGame    uGame
	timing   config.WebSocket
	upgrader websocket.Upgrader

	// sessions counts connection handlers that have not finished their disconnect.
	sessions sync.WaitGroup

	handlers map[string]func(ctx context.Context, c *client, message *Message) error
}

func New(logger *slog.Logger, hub *Hub, uGame uGame, timing config.WebSocket) *Server {
	server := &Server{
		logger: logger.With("component", "ws_server"),
		hub:    hub,
		uGame:  uGame,
		timing: timing,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers[ActionAnnounceIdentity] = server.handleAnnounceIdentity
	server.handlers[ActionRequestMatch] = server.handleRequestMatch
	server.handlers[ActionAcceptMatch] = server.handleAcceptMatch
	server.handlers[ActionSubmitMove] = server.handleSubmitMove

	return server
}

// Handler - returns the http handler serving /ws. Connections live until the
// peer leaves or ctx is done.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
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

	// hijacked connections are not tracked by Shutdown
	that.hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return that.awaitSessions(shutdownCtx)
}

// awaitSessions waits until every connection handler has run its disconnect,
// so forfeits settle before the stores close.
func (that *Server) awaitSessions(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		that.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain connections: %w", ctx.Err())
	}
}

// upgradeToWebSocket - upgrades the connection and serves it until it closes.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	// counted before the hijack so Shutdown cannot miss it
	that.sessions.Add(1)
	defer that.sessions.Done()

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn, that.timing)
	if !that.hub.register(c) {
		log.Info("refused connection, server is shutting down")
		return
	}

	log.Info("WebSocket connection established", "connection", c.id)

	go func() {
		if err := c.writePump(); err != nil {
			log.Debug("write loop ended", "connection", c.id, "error", err)
		}
	}()

	err = c.readPump(func(data []byte) {
		that.handleMessage(ctx, c, data)
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		log.Warn("connection dropped", "connection", c.id, "error", err)
	}

	that.hub.unregister(c)
	_ = conn.Close()

	that.uGame.Disconnect(context.WithoutCancel(ctx), c.id)

	log.Info("WebSocket connection closed", "connection", c.id)
}

// handleMessage - decodes one inbound frame and routes it by action.
func (that *Server) handleMessage(ctx context.Context, c *client, data []byte) {
	log := that.logger.With("method", "handleMessage", "connection", c.id)

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Warn("failed to unmarshal message", "error", err)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action", "action", message.Action)
		return
	}

	if err := handler(ctx, c, &message); err != nil {
		log.Debug("error processing message", "action", message.Action, "error", err)
	}
}
