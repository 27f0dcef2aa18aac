package tx

import (
	"context"
	"fmt"

	sdkerrors "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum"

	"github.com/sonr-io/passkey/client/errors"
)

// Gas defaults for EVM calls.
const (
	// DefaultGasAdjustment pads simulated gas usage.
	DefaultGasAdjustment = 1.2

	// DefaultMaxGasLimit caps any adjusted estimate.
	DefaultMaxGasLimit = 30_000_000
)

// GasEstimate contains the result of gas estimation.
type GasEstimate struct {
	GasUsed       uint64  // Gas reported by eth_estimateGas
	GasLimit      uint64  // Recommended gas limit (with adjustment)
	GasAdjustment float64 // Adjustment factor applied
}

// GasConfig holds gas estimation configuration.
type GasConfig struct {
	Adjustment  float64 // Gas adjustment factor
	MaxGasLimit uint64  // Maximum gas limit
}

// GasEstimator simulates calls with eth_estimateGas.
type GasEstimator struct {
	client    ethereum.GasEstimator
	gasConfig GasConfig
}

// NewGasEstimator creates a new gas estimator.
func NewGasEstimator(client ethereum.GasEstimator) *GasEstimator {
	return &GasEstimator{
		client: client,
		gasConfig: GasConfig{
			Adjustment:  DefaultGasAdjustment,
			MaxGasLimit: DefaultMaxGasLimit,
		},
	}
}

// EstimateGas simulates msg against the latest state. Failures wrap both
// ErrSimulationFailed and the node error, so revert data stays reachable
// through errors.As.
func (ge *GasEstimator) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (*GasEstimate, error) {
	gasUsed, err := ge.client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: estimate gas to %s: %w", errors.ErrSimulationFailed, msg.To, err)
	}

	return &GasEstimate{
		GasUsed:       gasUsed,
		GasLimit:      ge.adjust(gasUsed),
		GasAdjustment: ge.gasConfig.Adjustment,
	}, nil
}

func (ge *GasEstimator) adjust(gasUsed uint64) uint64 {
	gasLimit := uint64(float64(gasUsed) * ge.gasConfig.Adjustment)
	if ge.gasConfig.MaxGasLimit > 0 && gasLimit > ge.gasConfig.MaxGasLimit {
		gasLimit = ge.gasConfig.MaxGasLimit
	}
	return gasLimit
}

// ValidateGasLimit checks that a gas limit not produced by simulation is
// usable.
func ValidateGasLimit(gasLimit uint64) error {
	if gasLimit == 0 {
		return sdkerrors.Wrap(errors.ErrSimulationFailed, "gas limit must be positive")
	}
	if gasLimit > DefaultMaxGasLimit {
		return sdkerrors.Wrapf(errors.ErrSimulationFailed, "gas limit %d exceeds %d", gasLimit, DefaultMaxGasLimit)
	}
	return nil
}
