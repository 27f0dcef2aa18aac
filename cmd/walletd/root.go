package main

import (
	"io"
	"os"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sonr-io/passkey/client/config"
)

const (
	flagConfig   = "config"
	flagNetwork  = "network"
	flagLogLevel = "log-level"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	network    string
	viper      *viper.Viper
}

// NewRootCmd builds the walletd command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "walletd",
		Short:         "Passkey smart account wallet tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, flagConfig, "", "Path to a config file (yaml, toml or json)")
	flags.StringVar(&opts.network, flagNetwork, "", "Network preset: mainnet, testnet, devnet or local")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn or error")
	if err := opts.viper.BindPFlag("log_level", flags.Lookup(flagLogLevel)); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		attestationCmd(),
		signatureCmd(),
		serveCmd(opts),
	)
	return rootCmd
}

// loadConfig resolves the preset, config file, environment and flags.
func (o *rootOptions) loadConfig() (*config.ClientConfig, error) {
	return config.Load(o.viper, o.configPath, o.network)
}

// newLogger builds the process logger from the configured level and format.
func newLogger(w io.Writer, cfg *config.ClientConfig) (log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	filter, err := log.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	opts := []log.Option{log.FilterOption(filter)}
	if cfg.LogFormat == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(w, opts...), nil
}
