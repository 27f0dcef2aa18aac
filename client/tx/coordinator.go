// Package tx prepares, signs, submits and tracks call bundles through the
// relay service.
package tx

import (
	"context"
	stderrors "errors"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/client/account"
	"github.com/sonr-io/passkey/client/config"
	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/rpc"
)

// Relay is the subset of the relay gateway that moves bundles.
type Relay interface {
	PrepareCalls(ctx context.Context, req rpc.PrepareCallsRequest) (*rpc.PrepareCallsResponse, error)
	SendPreparedCalls(ctx context.Context, req rpc.SendPreparedCallsRequest) (string, error)
	GetCallsStatus(ctx context.Context, id string) (*rpc.CallsStatus, error)
}

var _ Relay = (*rpc.Gateway)(nil)

// RetryConfig defines retry behavior for failed submissions.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns sensible defaults for retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Coordinator drives bundles from quote to a terminal status.
type Coordinator struct {
	relay        Relay
	feeToken     *common.Address
	maxAttempts  int
	pollInterval time.Duration
	retryConfig  RetryConfig
	logger       log.Logger
}

// NewCoordinator creates a coordinator for network.
func NewCoordinator(relay Relay, network config.NetworkConfig, logger log.Logger) *Coordinator {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	retry := DefaultRetryConfig()
	if network.MaxRetries > 0 {
		retry.MaxRetries = network.MaxRetries
	}
	if network.RetryDelay > 0 {
		retry.InitialDelay = network.RetryDelay
	}

	return &Coordinator{
		relay:        relay,
		feeToken:     network.FeeTokenAddress(),
		maxAttempts:  network.ConfirmationAttempts,
		pollInterval: network.PollInterval,
		retryConfig:  retry,
		logger:       logger.With(log.ModuleKey, "tx"),
	}
}

// WithRetryConfig sets the retry configuration.
func (c *Coordinator) WithRetryConfig(config RetryConfig) *Coordinator {
	c.retryConfig = config
	return c
}

// Prepare quotes calls for the session account. A nil feeToken selects the
// network default.
func (c *Coordinator) Prepare(ctx context.Context, session *account.Session, calls []rpc.Call, feeToken *common.Address) (*PreparedCall, error) {
	if len(calls) == 0 {
		return nil, sdkerrors.Wrap(errors.ErrInvalidBundleState, "no calls to prepare")
	}
	if feeToken == nil {
		feeToken = c.feeToken
	}

	resp, err := c.relay.PrepareCalls(ctx, rpc.PrepareCallsRequest{
		Account:      session.Address(),
		Calls:        calls,
		ChainID:      hexutil.Uint64(session.ChainID()),
		Capabilities: rpc.CallCapabilities{FeeToken: feeToken},
	})
	if err != nil {
		return nil, err
	}

	prepared := &PreparedCall{
		Account:     session.Address(),
		ChainID:     session.ChainID(),
		Calls:       calls,
		Digest:      resp.Digest,
		Context:     resp.Context,
		GasEstimate: uint64(resp.GasEstimate),
		Phase:       PhasePrepared,
	}
	if resp.FeeAmount != nil {
		prepared.FeeAmount = resp.FeeAmount.ToInt()
	}
	c.logger.Debug("bundle prepared", "account", prepared.Account, "calls", len(calls), "digest", prepared.Digest)
	return prepared, nil
}

// Sign signs the prepared digest with the session signer.
func (c *Coordinator) Sign(ctx context.Context, session *account.Session, prepared *PreparedCall) error {
	if prepared.Phase != PhasePrepared {
		return sdkerrors.Wrapf(errors.ErrInvalidBundleState, "sign in phase %s", prepared.Phase)
	}

	sig, err := session.Signer.SignDigest(ctx, prepared.Digest)
	if err != nil {
		return err
	}
	prepared.Signature = sig
	prepared.Phase = PhaseSigned
	c.logger.Debug("bundle signed", "digest", prepared.Digest)
	return nil
}

// Send submits a signed bundle. Transport failures are retried with backoff;
// errors returned by the relay itself are not.
func (c *Coordinator) Send(ctx context.Context, prepared *PreparedCall) (*Bundle, error) {
	if prepared.Phase != PhaseSigned {
		return nil, sdkerrors.Wrapf(errors.ErrInvalidBundleState, "send in phase %s", prepared.Phase)
	}

	req := rpc.SendPreparedCallsRequest{Context: prepared.Context, Signature: prepared.Signature}
	delay := c.retryConfig.InitialDelay

	var lastErr error
	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		id, err := c.relay.SendPreparedCalls(ctx, req)
		if err == nil {
			prepared.Phase = PhaseSent
			c.logger.Info("bundle sent", "id", id, "attempt", attempt+1)
			return NewBundle(id), nil
		}

		lastErr = err
		if attempt == c.retryConfig.MaxRetries || !isRetryableError(err) {
			break
		}

		c.logger.Warn("send failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * c.retryConfig.BackoffFactor)
			if delay > c.retryConfig.MaxDelay {
				delay = c.retryConfig.MaxDelay
			}
		}
	}

	c.logger.Error("send failed", "error", lastErr)
	return nil, lastErr
}

// Submit prepares, signs and sends calls in one step.
func (c *Coordinator) Submit(ctx context.Context, session *account.Session, calls []rpc.Call, feeToken *common.Address) (*Bundle, error) {
	prepared, err := c.Prepare(ctx, session, calls, feeToken)
	if err != nil {
		return nil, err
	}
	if err := c.Sign(ctx, session, prepared); err != nil {
		return nil, err
	}
	return c.Send(ctx, prepared)
}

// Poll fetches the current status of a bundle once.
func (c *Coordinator) Poll(ctx context.Context, bundleID string) (*rpc.CallsStatus, error) {
	return c.relay.GetCallsStatus(ctx, bundleID)
}

// Wait is WaitForConfirmation with the network's attempt count and interval.
func (c *Coordinator) Wait(ctx context.Context, bundleID string) (*Bundle, error) {
	return c.WaitForConfirmation(ctx, bundleID, c.maxAttempts, c.pollInterval)
}

// WaitForConfirmation polls bundleID every interval until it reaches a
// terminal status, which is returned without error whether it succeeded or
// failed. After maxAttempts non-terminal polls it returns the pending bundle
// with ErrConfirmationTimeout. Cancelling ctx returns the pending bundle with
// no error.
func (c *Coordinator) WaitForConfirmation(ctx context.Context, bundleID string, maxAttempts int, interval time.Duration) (*Bundle, error) {
	bundle := NewBundle(bundleID)
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		status, err := c.Poll(ctx, bundleID)
		switch {
		case err == nil:
			if err := bundle.Apply(status); err != nil {
				return bundle, err
			}
			if bundle.Terminal() {
				c.logger.Info("bundle settled", "id", bundleID, "status", bundle.Status, "attempts", attempt)
				return bundle, nil
			}
			bundle.Phase = PhasePending
		case ctx.Err() != nil:
			return bundle, nil
		default:
			c.logger.Warn("poll failed", "id", bundleID, "attempt", attempt, "error", err)
		}

		if attempt >= maxAttempts {
			return bundle, sdkerrors.Wrapf(errors.ErrConfirmationTimeout, "bundle %s after %d attempts", bundleID, attempt)
		}

		select {
		case <-ctx.Done():
			c.logger.Debug("confirmation wait cancelled", "id", bundleID)
			return bundle, nil
		case <-ticker.C:
		}
	}
}

// isRetryableError reports whether a submission may succeed on retry.
func isRetryableError(err error) bool {
	return stderrors.Is(err, rpc.ErrTransport)
}
