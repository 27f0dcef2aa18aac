// Package client provides a high-level interface to a passkey-controlled
// smart account: upgrade, bundle submission and token trades.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sonr-io/passkey/client/account"
	"github.com/sonr-io/passkey/client/auth"
	"github.com/sonr-io/passkey/client/config"
	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/rpc"
	"github.com/sonr-io/passkey/client/store"
	"github.com/sonr-io/passkey/client/trade"
	"github.com/sonr-io/passkey/client/tx"
)

// Store persists account records and bootstrap key secrets.
type Store interface {
	store.KeyValueStore
	store.SecretStore
}

// Config holds SDK configuration.
type Config struct {
	// Client configuration, including the network preset.
	Client *config.ClientConfig

	// Authenticator is the platform passkey API.
	Authenticator auth.Authenticator

	// Store overrides the SQLite store at Client.StorePath.
	Store Store

	// Routes builds swaps from route ids. Trades are unavailable without it.
	Routes trade.RouteBuilder

	// HTTPClient is used for order status queries.
	HTTPClient *http.Client

	Logger log.Logger
}

// DefaultConfig returns SDK configuration for testnet.
func DefaultConfig(authenticator auth.Authenticator) *Config {
	return &Config{
		Client:        config.TestnetConfig(),
		Authenticator: authenticator,
	}
}

// LocalConfig returns SDK configuration for local development.
func LocalConfig(authenticator auth.Authenticator) *Config {
	return &Config{
		Client:        config.LocalConfig(),
		Authenticator: authenticator,
	}
}

// SDK represents the main entry point of the wallet client.
type SDK struct {
	config   *Config
	network  config.NetworkConfig
	gateway  *rpc.Gateway
	passkeys *auth.Manager
	store    Store
	secrets  store.SecretStore
	closers  []func() error

	accounts *account.Coordinator
	bundles  *tx.Coordinator
	gas      *tx.GasEstimator
	trades   *trade.Orchestrator
	logger   log.Logger
}

// New creates a new SDK instance with the given configuration.
func New(ctx context.Context, cfg *Config) (*SDK, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, fmt.Errorf("client configuration is required")
	}
	if cfg.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if err := cfg.Client.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	network := cfg.Client.Network

	timeout := network.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	gateway, err := rpc.Dial(dialCtx, network.RPC, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}
	s := &SDK{
		config:  cfg,
		network: network,
		gateway: gateway,
		logger:  logger.With(log.ModuleKey, "client"),
	}
	s.closers = append(s.closers, func() error { gateway.Close(); return nil })

	s.store = cfg.Store
	if s.store == nil {
		db, err := store.OpenSQLite(cfg.Client.StorePath)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		s.store = db
		s.closers = append(s.closers, db.Close)
	}

	s.secrets = s.store
	if passphrase := cfg.Client.StorePassphrase; passphrase != "" {
		sealed, err := store.NewSealedSecrets(s.store, passphrase, nil)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to seal store: %w", err)
		}
		s.secrets = sealed
	}

	s.passkeys = auth.NewManager(cfg.Authenticator, auth.Options{
		RPID:   network.RPID,
		Origin: network.Origin,
		LowS:   network.LowS,
		Logger: logger,
	})
	s.accounts = account.NewCoordinator(account.Options{
		Network:  network,
		Relay:    gateway,
		Passkeys: s.passkeys,
		Records:  s.store,
		Secrets:  s.secrets,
		Logger:   logger,
	})
	s.bundles = tx.NewCoordinator(gateway, network, logger)
	s.gas = tx.NewGasEstimator(gateway.EthClient())

	if cfg.Routes != nil {
		s.trades = trade.NewOrchestrator(trade.Options{
			Network:    network,
			Allowances: trade.NewERC20Reader(gateway.EthClient()),
			Simulator:  s.gas,
			Routes:     cfg.Routes,
			Receipts:   gateway.EthClient(),
			Orders:     trade.NewHTTPOrderStatus(network.OrderStatusURL, cfg.HTTPClient),
			Bundler:    s.bundles,
			Logger:     logger,
		})
	}

	s.logger.Info("wallet client ready", "chain", network.ChainID, "relay", network.RPC, "origin", network.Origin)
	return s, nil
}

// NewWithNetwork creates a new SDK instance for a named network preset.
func NewWithNetwork(ctx context.Context, network string, authenticator auth.Authenticator) (*SDK, error) {
	preset, ok := config.GetNetworkByName(network)
	if !ok {
		return nil, fmt.Errorf("unknown network: %s", network)
	}
	cfg := DefaultConfig(authenticator)
	cfg.Client.Network = preset
	return New(ctx, cfg)
}

// CreateAccount registers a passkey and upgrades a fresh account under tag.
// A relay failure yields a usable EOA account; see account.Coordinator.
func (s *SDK) CreateAccount(ctx context.Context, tag string) (*account.Account, error) {
	return s.accounts.Upgrade(ctx, tag)
}

// RetryUpgrade completes the upgrade of an account left as an EOA.
func (s *SDK) RetryUpgrade(ctx context.Context, tag string) (*account.Account, error) {
	return s.accounts.RetryUpgrade(ctx, tag)
}

// Account loads the persisted account record for tag.
func (s *SDK) Account(ctx context.Context, tag string) (*account.Account, error) {
	return s.accounts.Load(ctx, tag)
}

// SendCalls submits calls from the account under tag and waits for the
// bundle to settle. A failed bundle is returned with ErrBundleFailed.
func (s *SDK) SendCalls(ctx context.Context, tag string, calls []rpc.Call, feeToken *common.Address) (*tx.Bundle, error) {
	session, err := s.accounts.Session(ctx, tag)
	if err != nil {
		return nil, err
	}
	if closer, ok := session.Signer.(interface{ Close() }); ok {
		defer closer.Close()
	}

	bundle, err := s.bundles.Submit(ctx, session, calls, feeToken)
	if err != nil {
		return nil, err
	}
	bundle, err = s.bundles.Wait(ctx, bundle.ID)
	if err != nil {
		return bundle, err
	}
	return bundle, bundle.Err()
}

// Trade executes route for the account under tag.
func (s *SDK) Trade(ctx context.Context, tag string, route trade.Route) (*trade.Result, error) {
	if s.trades == nil {
		return nil, fmt.Errorf("trades need a route builder")
	}
	session, err := s.accounts.Session(ctx, tag)
	if err != nil {
		return nil, trade.NewTradeError("", err)
	}
	if closer, ok := session.Signer.(interface{ Close() }); ok {
		defer closer.Close()
	}
	return s.trades.Execute(ctx, session, route)
}

// BundleStatus reports the relay's view of a submitted bundle.
func (s *SDK) BundleStatus(ctx context.Context, id string) (*rpc.CallsStatus, error) {
	return s.gateway.GetCallsStatus(ctx, id)
}

// Accounts returns the account coordinator.
func (s *SDK) Accounts() *account.Coordinator {
	return s.accounts
}

// Bundles returns the bundle coordinator.
func (s *SDK) Bundles() *tx.Coordinator {
	return s.bundles
}

// Gateway returns the relay gateway.
func (s *SDK) Gateway() *rpc.Gateway {
	return s.gateway
}

// Network returns the active network configuration.
func (s *SDK) Network() config.NetworkConfig {
	return s.network
}

// Config returns the SDK configuration.
func (s *SDK) Config() *Config {
	return s.config
}

// IsConnected checks that the relay answers eth_chainId with the configured
// chain.
func (s *SDK) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id, err := s.gateway.EthClient().ChainID(ctx)
	if err != nil {
		s.logger.Debug("relay unreachable", "error", errors.Classify(err))
		return false
	}
	return id.Uint64() == s.network.ChainID
}

// Close releases the relay connection and the store.
func (s *SDK) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// Version returns the SDK version.
func Version() string {
	return "v0.1.0"
}
