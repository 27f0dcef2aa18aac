// Package config provides network configuration and connection settings for the wallet client.
package config

import (
	"fmt"
	"net/url"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/ethereum/go-ethereum/common"
)

// NetworkConfig defines the configuration for one chain and its relay service.
type NetworkConfig struct {
	// Network identification
	ChainID   uint64 `json:"chain_id" mapstructure:"chain_id"`
	Name      string `json:"name" mapstructure:"name"`
	NetworkID string `json:"network_id" mapstructure:"network_id"`

	// Endpoints
	RPC            string `json:"rpc_endpoint" mapstructure:"rpc_endpoint"`                   // Relay JSON-RPC endpoint
	OrderStatusURL string `json:"order_status_url,omitempty" mapstructure:"order_status_url"` // Off-chain matching backend

	// WebAuthn relying party. The origin is embedded verbatim in every
	// clientDataJSON and must match what the deployed verifier expects.
	RPID   string `json:"rp_id" mapstructure:"rp_id"`
	Origin string `json:"origin" mapstructure:"origin"`

	// Account configuration
	DefaultDelegation string `json:"default_delegation" mapstructure:"default_delegation"` // Used when capabilities omit one
	FeeToken          string `json:"fee_token,omitempty" mapstructure:"fee_token"`
	LowS              bool   `json:"low_s" mapstructure:"low_s"` // Normalize passkey signatures to low-s

	// Confirmation polling
	ConfirmationAttempts int           `json:"confirmation_attempts" mapstructure:"confirmation_attempts"`
	PollInterval         time.Duration `json:"poll_interval" mapstructure:"poll_interval"`

	// Trade execution
	ApprovalSettleDelay time.Duration `json:"approval_settle_delay" mapstructure:"approval_settle_delay"`
	OrderStatusAttempts int           `json:"order_status_attempts" mapstructure:"order_status_attempts"`
	OrderPollInterval   time.Duration `json:"order_poll_interval" mapstructure:"order_poll_interval"`

	// Connection settings
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
	MaxRetries     int           `json:"max_retries" mapstructure:"max_retries"`
	RetryDelay     time.Duration `json:"retry_delay" mapstructure:"retry_delay"`
}

// ClientConfig defines the overall configuration for the wallet client.
type ClientConfig struct {
	// Network configuration
	Network NetworkConfig `json:"network" mapstructure:"network"`

	// Logging configuration
	LogLevel  string `json:"log_level,omitempty" mapstructure:"log_level"`   // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty" mapstructure:"log_format"` // json, text

	// Storage configuration
	StorePath string `json:"store_path,omitempty" mapstructure:"store_path"` // SQLite file, empty for in-memory

	// StorePassphrase seals bootstrap key secrets at rest when set.
	StorePassphrase string `json:"-" mapstructure:"store_passphrase"`

	// Bridge service
	ListenAddr string `json:"listen_addr,omitempty" mapstructure:"listen_addr"`
	RedisAddr  string `json:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// DefaultConfig returns a default client configuration using the testnet.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Network:    TestnetNetwork(),
		LogLevel:   "info",
		LogFormat:  "text",
		ListenAddr: ":8080",
		RedisAddr:  "127.0.0.1:6379",
	}
}

// TestnetConfig returns a client configuration for the testnet.
func TestnetConfig() *ClientConfig {
	config := DefaultConfig()
	config.Network = TestnetNetwork()
	return config
}

// LocalConfig returns a client configuration for local development.
func LocalConfig() *ClientConfig {
	config := DefaultConfig()
	config.Network = LocalNetwork()
	config.LogLevel = "debug"
	return config
}

// TestnetNetwork returns the network configuration for Base Sepolia.
func TestnetNetwork() NetworkConfig {
	return NetworkConfig{
		ChainID:   84532,
		Name:      "Sonr Testnet",
		NetworkID: "testnet",

		RPC:            "https://relay.testnet.sonr.io",
		OrderStatusURL: "https://orders.testnet.sonr.io",

		RPID:   "wallet.testnet.sonr.io",
		Origin: "https://wallet.testnet.sonr.io",

		DefaultDelegation: "0x00000000b1a8a0f0fd4e2a0d6b5e3bff6c4fb3d4",
		LowS:              true,

		ConfirmationAttempts: 60,
		PollInterval:         2 * time.Second,

		ApprovalSettleDelay: 4 * time.Second,
		OrderStatusAttempts: 30,
		OrderPollInterval:   2 * time.Second,

		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// LocalNetwork returns the network configuration for a local anvil node and
// relay.
func LocalNetwork() NetworkConfig {
	return NetworkConfig{
		ChainID:   31337,
		Name:      "Sonr Local",
		NetworkID: "local",

		RPC: "http://localhost:9119",

		RPID:   "localhost",
		Origin: "http://localhost:5173",

		DefaultDelegation: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
		LowS:              true,

		ConfirmationAttempts: 20,
		PollInterval:         500 * time.Millisecond,

		ApprovalSettleDelay: 0,
		OrderStatusAttempts: 10,
		OrderPollInterval:   500 * time.Millisecond,

		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
	}
}

// DevnetNetwork returns the staging network configuration. It shares the
// testnet chain but signs for the staging origin.
func DevnetNetwork() NetworkConfig {
	network := TestnetNetwork()
	network.Name = "Sonr Devnet"
	network.NetworkID = "devnet"
	network.RPC = "https://relay.devnet.sonr.io"
	network.OrderStatusURL = "https://orders.devnet.sonr.io"
	network.RPID = "wallet.devnet.sonr.io"
	network.Origin = "https://wallet.devnet.sonr.io"
	return network
}

// MainnetNetwork returns the network configuration for Base mainnet.
func MainnetNetwork() NetworkConfig {
	return NetworkConfig{
		ChainID:   8453,
		Name:      "Sonr Mainnet",
		NetworkID: "mainnet",

		RPC:            "https://relay.sonr.io",
		OrderStatusURL: "https://orders.sonr.io",

		RPID:   "wallet.sonr.io",
		Origin: "https://wallet.sonr.io",

		DefaultDelegation: "0x00000000b1a8a0f0fd4e2a0d6b5e3bff6c4fb3d4",
		LowS:              true,

		ConfirmationAttempts: 60,
		PollInterval:         2 * time.Second,

		ApprovalSettleDelay: 2 * time.Second,
		OrderStatusAttempts: 30,
		OrderPollInterval:   2 * time.Second,

		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
	}
}

// networkSchema validates the string and integer members of NetworkConfig.
// Durations and the chain id are checked in Validate.
var networkSchema = z.Struct(z.Shape{
	"name":      z.String().Optional(),
	"networkID": z.String().Optional(),
	"RPC": z.String().
		Required(z.Message("RPC endpoint is required")).
		TestFunc(validateURL, z.Message("RPC endpoint must be an http(s) URL")),
	"orderStatusURL": z.String().
		Optional().
		TestFunc(validateURL, z.Message("order status URL must be an http(s) URL")),
	"RPID": z.String().Required(z.Message("RP ID is required")),
	"origin": z.String().
		Required(z.Message("origin is required")).
		TestFunc(validateURL, z.Message("origin must be an http(s) URL")),
	"defaultDelegation": z.String().
		Required(z.Message("default delegation is required")).
		TestFunc(validateAddress, z.Message("default delegation must be a hex address")),
	"feeToken": z.String().
		Optional().
		TestFunc(validateAddress, z.Message("fee token must be a hex address")),
	"confirmationAttempts": z.Int().Required().GT(0, z.Message("confirmation attempts must be positive")),
	"orderStatusAttempts":  z.Int().GTE(0, z.Message("order status attempts cannot be negative")),
	"maxRetries":           z.Int().GTE(0, z.Message("max retries cannot be negative")),
})

var clientSchema = z.Struct(z.Shape{
	"logLevel": z.String().Optional().OneOf(
		[]string{"debug", "info", "warn", "error"},
		z.Message("invalid log level"),
	),
	"logFormat": z.String().Optional().OneOf(
		[]string{"json", "text"},
		z.Message("invalid log format"),
	),
})

func validateURL(value *string, ctx z.Ctx) bool {
	if value == nil || *value == "" {
		return true
	}
	u, err := url.Parse(*value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validateAddress(value *string, ctx z.Ctx) bool {
	if value == nil || *value == "" {
		return true
	}
	return common.IsHexAddress(*value)
}

// Validate checks if the network configuration is valid.
func (nc *NetworkConfig) Validate() error {
	if nc.ChainID == 0 {
		return fmt.Errorf("chain ID is required")
	}

	if errs := networkSchema.Validate(nc); errs != nil {
		return fmt.Errorf("network %q validation failed: %v", nc.NetworkID, errs)
	}

	if nc.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if nc.OrderStatusAttempts > 0 && nc.OrderPollInterval <= 0 {
		return fmt.Errorf("order poll interval must be positive")
	}

	if nc.ApprovalSettleDelay < 0 {
		return fmt.Errorf("approval settle delay cannot be negative")
	}

	if nc.RequestTimeout <= 0 {
		nc.RequestTimeout = 30 * time.Second // Default value
	}

	if nc.RetryDelay <= 0 {
		nc.RetryDelay = 1 * time.Second // Default value
	}

	return nil
}

// Validate checks if the client configuration is valid.
func (cc *ClientConfig) Validate() error {
	if err := cc.Network.Validate(); err != nil {
		return fmt.Errorf("network config validation failed: %w", err)
	}

	if errs := clientSchema.Validate(cc); errs != nil {
		return fmt.Errorf("client config validation failed: %v", errs)
	}

	return nil
}

// Delegation returns the configured default delegation contract.
func (nc *NetworkConfig) Delegation() common.Address {
	return common.HexToAddress(nc.DefaultDelegation)
}

// FeeTokenAddress returns the fee token, or nil to pay in the native asset.
func (nc *NetworkConfig) FeeTokenAddress() *common.Address {
	if nc.FeeToken == "" {
		return nil
	}
	addr := common.HexToAddress(nc.FeeToken)
	return &addr
}

// IsTestnet returns true if the network is a test network.
func (nc *NetworkConfig) IsTestnet() bool {
	return nc.NetworkID == "testnet" || nc.NetworkID == "devnet" || nc.NetworkID == "local"
}

// IsMainnet returns true if the network is the main network.
func (nc *NetworkConfig) IsMainnet() bool {
	return nc.NetworkID == "mainnet"
}

// GetNetworkByChainID returns a pre-configured network by chain ID. The
// testnet preset wins over devnet for the shared chain.
func GetNetworkByChainID(chainID uint64) (NetworkConfig, bool) {
	networks := map[uint64]NetworkConfig{
		8453:  MainnetNetwork(),
		84532: TestnetNetwork(),
		31337: LocalNetwork(),
	}

	network, exists := networks[chainID]
	return network, exists
}

// GetNetworkByName returns a pre-configured network by its network ID.
func GetNetworkByName(name string) (NetworkConfig, bool) {
	networks := map[string]func() NetworkConfig{
		"mainnet": MainnetNetwork,
		"testnet": TestnetNetwork,
		"devnet":  DevnetNetwork,
		"local":   LocalNetwork,
	}

	preset, exists := networks[name]
	if !exists {
		return NetworkConfig{}, false
	}
	return preset(), true
}
