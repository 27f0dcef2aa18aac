package trade

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const erc20JSON = `[
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20JSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// ERC20Reader reads allowances with eth_call.
type ERC20Reader struct {
	caller ethereum.ContractCaller
}

var _ AllowanceReader = (*ERC20Reader)(nil)

// NewERC20Reader returns a reader over caller, typically an ethclient.Client.
func NewERC20Reader(caller ethereum.ContractCaller) *ERC20Reader {
	return &ERC20Reader{caller: caller}
}

// Allowance returns token.allowance(owner, spender) at the latest block.
func (r *ERC20Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance of %s on %s: %w", spender, token, err)
	}

	values, err := erc20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("decode allowance: %w", err)
	}
	amount, overflow := uint256.FromBig(values[0].(*big.Int))
	if overflow {
		return nil, fmt.Errorf("allowance overflows uint256")
	}
	return amount, nil
}

// ApproveCalldata encodes approve(spender, amount).
func ApproveCalldata(spender common.Address, amount *uint256.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount.ToBig())
}
