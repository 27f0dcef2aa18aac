package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonr-io/passkey/bridge"
	"github.com/sonr-io/passkey/client"
	"github.com/sonr-io/passkey/client/auth"
	"github.com/sonr-io/passkey/client/errors"
)

// headlessAuthenticator backs the service, which completes upgrades with
// retained bootstrap keys and never runs a passkey ceremony.
type headlessAuthenticator struct{}

var _ auth.Authenticator = headlessAuthenticator{}

func (headlessAuthenticator) MakeCredential(context.Context, auth.CreationOptions) (*auth.AttestationResponse, error) {
	return nil, fmt.Errorf("no platform authenticator in service mode: %w", errors.ErrUserCancelledAuthentication)
}

func (headlessAuthenticator) GetAssertion(context.Context, auth.AssertionOptions) (*auth.AssertionResponse, error) {
	return nil, fmt.Errorf("no platform authenticator in service mode: %w", errors.ErrUserCancelledAuthentication)
}

func serveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upgrade-retry worker and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}

			sdk, err := client.New(cmd.Context(), &client.Config{
				Client:        cfg,
				Authenticator: headlessAuthenticator{},
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			defer sdk.Close()

			service := bridge.NewService(bridge.NewConfig(cfg), sdk, logger)
			defer service.Shutdown()

			logger.Info("walletd serving", "network", cfg.Network.NetworkID, "listen", cfg.ListenAddr, "redis", cfg.RedisAddr)
			return service.Start()
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "HTTP listen address")
	flags.String("redis", "", "Redis address for the task queue")
	for key, flag := range map[string]string{"listen_addr": "listen", "redis_addr": "redis"} {
		if err := opts.viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}
