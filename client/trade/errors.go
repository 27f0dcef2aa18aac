package trade

import (
	stderrors "errors"
	"fmt"
	"strings"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/sonr-io/passkey/client/errors"
)

// TradeError is the single error type returned by Execute.
type TradeError struct {
	Kind      errors.Kind
	Message   string
	Retryable bool
	AttemptID string
	Err       error
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("trade %s: %s: %v", e.AttemptID, e.Kind, e.Err)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError classifies err. An existing TradeError is returned as is.
func NewTradeError(attemptID string, err error) *TradeError {
	var te *TradeError
	if stderrors.As(err, &te) {
		return te
	}
	kind := errors.Classify(err)
	return &TradeError{
		Kind:      kind,
		Message:   errors.Message(kind),
		Retryable: errors.Retryable(kind),
		AttemptID: attemptID,
		Err:       err,
	}
}

var (
	balanceReasons = []string{
		"insufficient funds",
		"insufficient balance",
		"exceeds balance",
	}
	allowanceReasons = []string{
		"insufficient allowance",
		"exceeds allowance",
		"allowance too low",
	}
	// estimationLimits fail the estimate without saying anything about the
	// swap itself.
	estimationLimits = []string{
		"gas required exceeds allowance",
		"out of gas",
		"intrinsic gas too low",
	}
	// geth says "execution reverted", hardhat and anvil "reverted with" or
	// "VM Exception while processing transaction: revert"
	revertReasons = []string{
		"revert",
	}
)

// fatalSimulation returns the abort error for a simulation failure that
// proves the swap cannot succeed, or nil when the failure only affects gas
// estimation. Any revert is fatal; transport and RPC failures are not.
func fatalSimulation(err error) error {
	reason := strings.ToLower(err.Error())
	switch {
	case containsAny(reason, balanceReasons):
		return fmt.Errorf("%w: %w: %v", errors.ErrSimulationFailed, errors.ErrInsufficientFunds, err)
	case containsAny(reason, estimationLimits):
		return nil
	case containsAny(reason, allowanceReasons):
		return fmt.Errorf("%w: insufficient allowance: %v", errors.ErrSimulationFailed, err)
	case containsAny(reason, revertReasons) || hasRevertData(err):
		return fmt.Errorf("%w: swap would revert: %v", errors.ErrSimulationFailed, err)
	default:
		return nil
	}
}

// hasRevertData reports whether the node attached revert data, which custom
// Solidity errors carry without a readable reason.
func hasRevertData(err error) bool {
	var dataErr gethrpc.DataError
	return stderrors.As(err, &dataErr) && dataErr.ErrorData() != nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
