package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PASSKEY_NETWORK_ORIGIN.
const EnvPrefix = "PASSKEY"

// Load builds a ClientConfig from the named network preset, then an optional
// config file, then PASSKEY_* environment variables, in increasing priority.
func Load(v *viper.Viper, path, network string) (*ClientConfig, error) {
	if v == nil {
		v = viper.New()
	}

	cfg := DefaultConfig()
	if network != "" {
		preset, ok := GetNetworkByName(network)
		if !ok {
			return nil, fmt.Errorf("unknown network %q", network)
		}
		cfg.Network = preset
	}
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *ClientConfig) {
	n := cfg.Network
	defaults := map[string]any{
		"log_level":        cfg.LogLevel,
		"log_format":       cfg.LogFormat,
		"store_path":       cfg.StorePath,
		"store_passphrase": cfg.StorePassphrase,
		"listen_addr":      cfg.ListenAddr,
		"redis_addr":       cfg.RedisAddr,

		"network.chain_id":              n.ChainID,
		"network.name":                  n.Name,
		"network.network_id":            n.NetworkID,
		"network.rpc_endpoint":          n.RPC,
		"network.order_status_url":      n.OrderStatusURL,
		"network.rp_id":                 n.RPID,
		"network.origin":                n.Origin,
		"network.default_delegation":    n.DefaultDelegation,
		"network.fee_token":             n.FeeToken,
		"network.low_s":                 n.LowS,
		"network.confirmation_attempts": n.ConfirmationAttempts,
		"network.poll_interval":         n.PollInterval,
		"network.approval_settle_delay": n.ApprovalSettleDelay,
		"network.order_status_attempts": n.OrderStatusAttempts,
		"network.order_poll_interval":   n.OrderPollInterval,
		"network.request_timeout":       n.RequestTimeout,
		"network.max_retries":           n.MaxRetries,
		"network.retry_delay":           n.RetryDelay,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
