package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type stores struct {
	identities repository.IdentityRepository
	matches    repository.MatchRepository
	close      func()
}

// RunApp - runs the application until ctx is done or a SIGINT/SIGTERM arrives.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := openStores(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer st.close()

	hub := websocket.NewHub(logger)
	fanout := service.NewFanout(logger, hub)
	registry := service.NewRegistry(logger, fanout, time.Now)
	directory := service.NewDirectory()
	matchmaker := service.NewMatchmaker(logger, registry, directory, fanout, time.Now)
	settlement := service.NewSettlement(logger, st.identities, st.matches, conf.Store.SettlementTimeout, time.Now)
	gameplay := service.NewGameplay(logger, directory, fanout, settlement)

	gameManager := usecase.NewGameManager(logger, st.identities, st.matches, registry, matchmaker, gameplay, fanout, usecase.Options{
		AutoProvision:  !conf.Matchmaking.KnownIdentitiesOnly,
		PendingRoomTTL: conf.Matchmaking.PendingRoomTTL,
		SweepInterval:  conf.Matchmaking.SweepInterval,
	})

	go gameManager.Run(ctx)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		httpErrCh <- rest.New(logger, gameManager).Start(ctx, conf.HTTPPort)
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsErrCh <- websocket.New(logger, hub, gameManager, conf.WebSocket).Start(ctx, conf.SocketPort)
	}()

	var runErr error

	select {
	case err = <-httpErrCh:
		httpErrCh = nil
		if err != nil {
			runErr = fmt.Errorf("HTTP server error: %w", err)
		}
	case err = <-wsErrCh:
		wsErrCh = nil
		if err != nil {
			runErr = fmt.Errorf("WebSocket server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	cancel()

	// both servers drain before the stores close
	for _, ch := range []chan error{httpErrCh, wsErrCh} {
		if ch == nil {
			continue
		}
		if err = <-ch; err != nil {
			log.Error("server stopped with error", "error", err)
		}
	}

	return runErr
}

func openStores(ctx context.Context, logger *slog.Logger, conf *config.Config) (*stores, error) {
	log := logger.With("method", "openStores", "driver", conf.Store.Driver)

	switch conf.Store.Driver {
	case config.StoreMemory:
		memory := repository.NewMemoryStore()
		log.Warn("using in-memory store, records are lost on restart")

		return &stores{identities: memory, matches: memory, close: func() {}}, nil

	case config.StoreRedis:
		addr := conf.Redis.GetRedisAddr()
		if addr == "" {
			return nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
			Addr:     addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return &stores{
			identities: repository.NewIdentityRepository(redisStorage.Connection),
			matches:    repository.NewMatchRepository(redisStorage.Connection),
			close: func() {
				if err := redisStorage.Close(); err != nil {
					log.Error("could not close redis storage", "error", err)
				}
			},
		}, nil

	case config.StorePostgres:
		if err := storage.Migrate(conf.Postgres.DSN, logger); err != nil {
			return nil, fmt.Errorf("could not migrate postgres: %w", err)
		}

		pgStorage, err := storage.NewPostgresStorage(ctx, conf.Postgres.DSN, conf.Postgres.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("could not connect to postgres storage: %w", err)
		}

		return &stores{
			identities: repository.NewPostgresIdentityRepository(pgStorage.Pool),
			matches:    repository.NewPostgresMatchRepository(pgStorage.Pool),
			close: func() {
				_ = pgStorage.Close()
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownStoreDriver, conf.Store.Driver)
}
