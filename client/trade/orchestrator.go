package trade

import (
	"context"
	stderrors "errors"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/sonr-io/passkey/client/account"
	"github.com/sonr-io/passkey/client/config"
	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/rpc"
	"github.com/sonr-io/passkey/client/tx"
)

// AllowanceReader reads ERC-20 allowances.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error)
}

// Simulator estimates the gas of a call, failing when it would revert.
type Simulator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (*tx.GasEstimate, error)
}

// RouteBuilder turns a quoted route id into an executable swap.
type RouteBuilder interface {
	BuildSwap(ctx context.Context, routeID string, account common.Address) (*SwapTx, error)
}

// ReceiptReader fetches transaction receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// OrderStatusSource reports off-chain order settlement.
type OrderStatusSource interface {
	OrderStatus(ctx context.Context, requestHash string) (*OrderStatus, error)
}

// Bundler submits bundles and waits for them.
type Bundler interface {
	Submit(ctx context.Context, session *account.Session, calls []rpc.Call, feeToken *common.Address) (*tx.Bundle, error)
	Wait(ctx context.Context, bundleID string) (*tx.Bundle, error)
}

var (
	_ Simulator = (*tx.GasEstimator)(nil)
	_ Bundler   = (*tx.Coordinator)(nil)
)

// Options wires an Orchestrator.
type Options struct {
	Network    config.NetworkConfig
	Allowances AllowanceReader
	Simulator  Simulator
	Routes     RouteBuilder
	Receipts   ReceiptReader
	Orders     OrderStatusSource
	Bundler    Bundler
	Logger     log.Logger
}

// Orchestrator executes swaps one step at a time.
type Orchestrator struct {
	allowances AllowanceReader
	simulator  Simulator
	routes     RouteBuilder
	receipts   ReceiptReader
	orders     OrderStatusSource
	bundler    Bundler

	settleDelay       time.Duration
	orderAttempts     int
	orderPollInterval time.Duration
	logger            log.Logger
}

// NewOrchestrator returns an orchestrator using the settle delay and order
// polling of opts.Network.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Orchestrator{
		allowances:        opts.Allowances,
		simulator:         opts.Simulator,
		routes:            opts.Routes,
		receipts:          opts.Receipts,
		orders:            opts.Orders,
		bundler:           opts.Bundler,
		settleDelay:       opts.Network.ApprovalSettleDelay,
		orderAttempts:     opts.Network.OrderStatusAttempts,
		orderPollInterval: opts.Network.OrderPollInterval,
		logger:            logger.With(log.ModuleKey, "trade"),
	}
}

// Execute sells route.FromAmount of route.FromToken along route. Failures
// are returned as *TradeError together with the partial result.
func (o *Orchestrator) Execute(ctx context.Context, session *account.Session, route Route) (*Result, error) {
	res := &Result{AttemptID: uuid.NewString()}
	logger := o.logger.With("attempt", res.AttemptID, "route", route.RouteID)

	if err := o.execute(ctx, logger, session, route, res); err != nil {
		te := NewTradeError(res.AttemptID, err)
		logger.Error("trade failed", "kind", te.Kind, "retryable", te.Retryable, "error", err)
		return res, te
	}
	logger.Info("trade finished", "status", res.Status())
	return res, nil
}

func (o *Orchestrator) execute(ctx context.Context, logger log.Logger, session *account.Session, route Route, res *Result) error {
	if route.FromAmount == nil {
		return sdkerrors.Wrap(errors.ErrSimulationFailed, "route has no amount")
	}

	if err := o.ensureAllowance(ctx, logger, session, route, res); err != nil {
		return err
	}

	swap, err := o.routes.BuildSwap(ctx, route.RouteID, session.Address())
	if err != nil {
		return err
	}

	if err := o.simulate(ctx, logger, session, swap, res); err != nil {
		return err
	}

	bundle, err := o.bundler.Submit(ctx, session, []rpc.Call{swap.Call(res.GasLimit)}, nil)
	if err != nil {
		return err
	}
	res.Swap = &MonitoredTransaction{BundleID: bundle.ID, Kind: KindSwap, Status: StatusPending}

	if err := o.track(ctx, logger, res.Swap); err != nil {
		return err
	}
	if res.Swap.Status == StatusFailed {
		return sdkerrors.Wrapf(errors.ErrTransactionReverted, "swap %s", res.Swap.Hash)
	}
	if res.Swap.Status != StatusConfirmed || swap.RequestHash == "" {
		return nil
	}

	return o.awaitOrder(ctx, logger, swap.RequestHash, res)
}

// ensureAllowance approves the spender when the current allowance is short,
// then re-reads it after the settle delay.
func (o *Orchestrator) ensureAllowance(ctx context.Context, logger log.Logger, session *account.Session, route Route, res *Result) error {
	if route.IsNative() || route.ApprovalSpender == nil {
		return nil
	}
	owner, spender := session.Address(), *route.ApprovalSpender

	allowance, err := o.allowances.Allowance(ctx, route.FromToken, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(route.FromAmount) >= 0 {
		logger.Debug("allowance sufficient", "allowance", allowance.Dec(), "required", route.FromAmount.Dec())
		return nil
	}

	amount := route.ApprovalAmount
	if amount == nil || amount.Lt(route.FromAmount) {
		amount = route.FromAmount
	}
	data, err := ApproveCalldata(spender, amount)
	if err != nil {
		return err
	}

	logger.Info("approving spender", "token", route.FromToken, "spender", spender, "amount", amount.Dec())
	bundle, err := o.bundler.Submit(ctx, session, []rpc.Call{{To: route.FromToken, Data: data}}, nil)
	if err != nil {
		return err
	}
	res.Approval = &MonitoredTransaction{BundleID: bundle.ID, Kind: KindApproval, Status: StatusPending}

	if err := o.track(ctx, logger, res.Approval); err != nil {
		return err
	}
	switch {
	case res.Approval.Status == StatusFailed:
		return sdkerrors.Wrapf(errors.ErrTransactionReverted, "approval %s", res.Approval.Hash)
	case res.Approval.RelayStatus == rpc.StatusSuccess:
		// the relay's success is the confirmation; a lagging receipt only
		// means the revert check could not run
		if res.Approval.Status == StatusPending {
			logger.Warn("approval receipt unavailable, relay reported success", "bundle", res.Approval.BundleID)
			res.Approval.Status = StatusConfirmed
		}
	default:
		if err := ctx.Err(); err != nil {
			return err
		}
		return sdkerrors.Wrapf(errors.ErrConfirmationTimeout, "approval bundle %s", res.Approval.BundleID)
	}

	if o.settleDelay > 0 {
		logger.Debug("waiting for approval to settle", "delay", o.settleDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.settleDelay):
		}
	}

	allowance, err = o.allowances.Allowance(ctx, route.FromToken, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Lt(route.FromAmount) {
		return sdkerrors.Wrapf(errors.ErrApprovalPropagationFailed, "allowance %s < %s", allowance.Dec(), route.FromAmount.Dec())
	}
	return nil
}

// simulate picks the gas limit sent with the swap. Failures that prove the
// swap would revert abort the trade; estimation-only failures fall back to a
// valid provider limit.
func (o *Orchestrator) simulate(ctx context.Context, logger log.Logger, session *account.Session, swap *SwapTx, res *Result) error {
	msg := ethereum.CallMsg{From: session.Address(), To: &swap.To, Data: swap.Data}
	if swap.Value != nil {
		msg.Value = swap.Value.ToBig()
	}

	estimate, err := o.simulator.EstimateGas(ctx, msg)
	if err == nil {
		res.GasLimit = estimate.GasLimit
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if fatal := fatalSimulation(err); fatal != nil {
		return fatal
	}

	if invalid := tx.ValidateGasLimit(swap.GasLimit); invalid != nil {
		return sdkerrors.Wrapf(invalid, "provider gas limit after failed simulation: %v", err)
	}

	logger.Warn("simulation failed, using provider gas limit", "gas", swap.GasLimit, "error", err)
	res.GasLimit = swap.GasLimit
	res.Warnings = append(res.Warnings, "simulation failed: "+err.Error())
	return nil
}

// track waits for the bundle of mt and reads its receipt. An unknown outcome
// leaves mt pending with the relay's view in RelayStatus.
func (o *Orchestrator) track(ctx context.Context, logger log.Logger, mt *MonitoredTransaction) error {
	bundle, err := o.bundler.Wait(ctx, mt.BundleID)
	if bundle != nil && bundle.TransactionHash != nil {
		mt.Hash = *bundle.TransactionHash
	}
	if err != nil {
		if stderrors.Is(err, errors.ErrConfirmationTimeout) {
			logger.Warn("bundle still pending", "kind", mt.Kind, "bundle", mt.BundleID)
			return nil
		}
		return err
	}

	mt.RelayStatus = bundle.Status
	switch bundle.Status {
	case rpc.StatusFailed:
		mt.Status = StatusFailed
		return nil
	case rpc.StatusSuccess:
	default:
		return nil
	}
	if mt.Hash == (common.Hash{}) {
		mt.Status = StatusConfirmed
		return nil
	}

	receipt, err := o.receipts.TransactionReceipt(ctx, mt.Hash)
	if err != nil {
		logger.Warn("receipt unavailable", "kind", mt.Kind, "hash", mt.Hash, "error", err)
		return nil
	}
	if receipt.Status == types.ReceiptStatusFailed {
		mt.Status = StatusFailed
		return nil
	}
	mt.Status = StatusConfirmed
	mt.Confirmations = 1
	if receipt.BlockNumber != nil {
		mt.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return nil
}

// awaitOrder polls the matching backend until the order is terminal.
func (o *Orchestrator) awaitOrder(ctx context.Context, logger log.Logger, requestHash string, res *Result) error {
	res.Order = &OrderStatus{RequestHash: requestHash, Status: rpc.StatusPending}

	attempts := max(o.orderAttempts, 1)
	interval := o.orderPollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		status, err := o.orders.OrderStatus(ctx, requestHash)
		switch {
		case err == nil:
			res.Order = status
			if status.Status == rpc.StatusFailed {
				return sdkerrors.Wrapf(errors.ErrTransactionReverted, "order %s", requestHash)
			}
			if status.Status.Terminal() {
				logger.Info("order settled", "request", requestHash, "attempts", attempt)
				return nil
			}
		case ctx.Err() != nil:
			return nil
		default:
			logger.Warn("order status failed", "request", requestHash, "attempt", attempt, "error", err)
		}

		if attempt >= attempts {
			return sdkerrors.Wrapf(errors.ErrOrderTimeout, "order %s after %d attempts", requestHash, attempt)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
