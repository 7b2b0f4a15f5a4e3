package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/config"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-timetravel/transport/rest"
	"github.com/rocketscienceinc/tictactoe-timetravel/transport/terminal"
	"github.com/rocketscienceinc/tictactoe-timetravel/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis host is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gameRepo, closeRepo, err := newGameRepository(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeRepo(); err != nil {
			log.Error("could not close game storage", "error", err)
		}
	}()

	gameManager := usecase.NewGameManager(logger, gameRepo)

	switch conf.Mode {
	case config.ModeServer:
		return runServers(ctx, log, logger, conf, gameManager)
	default:
		ui, err := terminal.New(ctx, logger, gameManager)
		if err != nil {
			return fmt.Errorf("could not start terminal ui: %w", err)
		}

		log.Info("Starting terminal UI")

		return ui.Run()
	}
}

func newGameRepository(ctx context.Context, conf *config.Config) (repository.GameRepository, func() error, error) {
	if conf.Storage != config.StorageRedis {
		return repository.NewMemoryGameRepository(conf.SessionTTL), func() error { return nil }, nil
	}

	if conf.Redis.Host == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisAddrString := conf.Redis.GetRedisAddr()

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return repository.NewGameRepository(redisStorage, conf.SessionTTL), redisStorage.Close, nil
}

func runServers(ctx context.Context, log, logger *slog.Logger, conf *config.Config, gameManager *usecase.GameManager) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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
		wsErrCh <- websocket.New(logger, gameManager).Start(ctx, conf.SocketPort)
	}()

	return waitServers(ctx, cancel, log, httpErrCh, wsErrCh)
}

// waitServers - returns once both servers have stopped. The first failure, or
// ctx being done, stops the other one.
func waitServers(ctx context.Context, cancel context.CancelFunc, log *slog.Logger, httpErrCh, wsErrCh <-chan error) error {
	var (
		err              error
		httpDone, wsDone bool
	)

	select {
	case err = <-httpErrCh:
		httpDone = true
		if err != nil {
			err = fmt.Errorf("HTTP server error: %w", err)
		}
	case err = <-wsErrCh:
		wsDone = true
		if err != nil {
			err = fmt.Errorf("WebSocket server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	cancel()

	if !httpDone {
		logShutdownError(log, <-httpErrCh)
	}

	if !wsDone {
		logShutdownError(log, <-wsErrCh)
	}

	return err
}

func logShutdownError(log *slog.Logger, err error) {
	if err != nil {
		log.Error("server shutdown error", "error", err)
	}
}

// OpenLogOutput - terminal mode owns stdout, so logs go to a file there.
func OpenLogOutput(conf *config.Config) (*os.File, error) {
	if conf.Mode != config.ModeTerminal {
		return os.Stdout, nil
	}

	file, err := os.OpenFile(conf.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	return file, nil
}
