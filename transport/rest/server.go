package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	timeout         = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type uGame interface {
	OnlineUsers() []entity.RosterEntry
	GetMatch(ctx context.Context, roomID string) (*entity.MatchRecord, error)
}

type Server struct {
	logger *slog.Logger
	uGame  uGame
}

func New(logger *slog.Logger, uGame uGame) *Server {
	return &Server{
		logger: logger.With("component", "http_server"),
		uGame:  uGame,
	}
}

// Router - builds the routes served over plain HTTP.
func (that *Server) Router() http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, _ *http.Request, v any) {
		that.logger.Error("handler panicked", "panic", v)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	mux.GET("/ping", that.pingHandler)
	mux.GET("/api/online-users", that.onlineUsersHandler)
	mux.GET("/api/matches/:id", that.matchHandler)

	return mux
}

// Start - starts HTTP server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
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

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func (that *Server) onlineUsersHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	users := that.uGame.OnlineUsers()
	if users == nil {
		users = []entity.RosterEntry{}
	}

	that.writeJSON(w, http.StatusOK, users)
}

func (that *Server) matchHandler(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	log := that.logger.With("method", "matchHandler")

	record, err := that.uGame.GetMatch(r.Context(), p.ByName("id"))
	if errors.Is(err, apperror.ErrMatchNotFound) {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get match", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, record)
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
