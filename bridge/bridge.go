// Package bridge hosts the wallet's background service: an asynq worker that
// completes deferred account upgrades and an HTTP API in front of it.
package bridge

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/log"
	"github.com/hibiken/asynq"

	"github.com/sonr-io/passkey/bridge/server"
	"github.com/sonr-io/passkey/client/account"
	"github.com/sonr-io/passkey/client/rpc"
)

// Wallet is the client surface the service drives. *client.SDK implements
// it.
type Wallet interface {
	RetryUpgrade(ctx context.Context, tag string) (*account.Account, error)
	BundleStatus(ctx context.Context, id string) (*rpc.CallsStatus, error)
	IsConnected(ctx context.Context) bool
}

// Service encapsulates the bridge setup and lifecycle
type Service struct {
	config       *Config
	client       *asynq.Client
	httpServer   *server.Server
	queueManager *QueueManager
	logger       log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sigCh  chan os.Signal
}

// NewService creates a service with all components initialized. Nothing
// connects to Redis until Start.
func NewService(config *Config, wallet Wallet, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: config.RedisAddr})
	httpServer := server.NewServer(&server.Config{
		HTTPAddr:       config.HTTPAddr,
		HealthInterval: config.HealthInterval,
	}, server.Dependencies{
		Queue:   client,
		Relay:   wallet,
		Bundles: wallet,
		Logger:  logger,
	})

	return &Service{
		config:       config,
		client:       client,
		httpServer:   httpServer,
		queueManager: NewQueueManager(config, wallet, logger),
		logger:       logger.With(log.ModuleKey, "bridge"),
		ctx:          ctx,
		cancel:       cancel,
		sigCh:        make(chan os.Signal, 1),
	}
}

// Start runs the HTTP server and the task worker until a shutdown signal
// arrives or either component fails.
func (s *Service) Start() error {
	signal.Notify(s.sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.sigCh)

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.httpServer.Start(s.ctx)
	}()
	go func() {
		errCh <- s.queueManager.Run()
	}()

	select {
	case <-s.sigCh:
		s.logger.Info("received shutdown signal")
		return nil
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			s.logger.Error("component failed", "error", err)
		}
		return err
	}
}

// Shutdown gracefully stops all service components
func (s *Service) Shutdown() {
	s.logger.Info("shutting down bridge")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
	}

	if s.queueManager != nil {
		s.queueManager.Shutdown()
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Debug("asynq client close", "error", err)
		}
	}

	s.cancel()
	s.logger.Info("bridge stopped")
}
