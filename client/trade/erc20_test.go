package trade

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	msgs []ethereum.CallMsg
	out  []byte
	err  error
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.msgs = append(f.msgs, msg)
	return f.out, f.err
}

func TestERC20Reader_Allowance(t *testing.T) {
	caller := &fakeCaller{out: common.LeftPadBytes(big.NewInt(1234).Bytes(), 32)}
	reader := NewERC20Reader(caller)

	amount, err := reader.Allowance(context.Background(), token, owner, spender)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), amount.Uint64())

	require.Len(t, caller.msgs, 1)
	msg := caller.msgs[0]
	require.NotNil(t, msg.To)
	assert.Equal(t, token, *msg.To)
	require.Len(t, msg.Data, 4+64)
	assert.Equal(t, "0xdd62ed3e", hexutil.Encode(msg.Data[:4]))
	assert.Equal(t, owner, common.BytesToAddress(msg.Data[4:36]))
	assert.Equal(t, spender, common.BytesToAddress(msg.Data[36:68]))
}

func TestERC20Reader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		caller *fakeCaller
	}{
		{name: "call fails", caller: &fakeCaller{err: errors.New("execution reverted")}},
		{name: "empty result", caller: &fakeCaller{out: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewERC20Reader(tt.caller).Allowance(context.Background(), token, owner, spender)
			require.Error(t, err)
		})
	}
}

func TestApproveCalldata(t *testing.T) {
	all := new(uint256.Int).SetAllOne()

	data, err := ApproveCalldata(spender, all)
	require.NoError(t, err)
	require.Len(t, data, 4+64)

	assert.Equal(t, "0x095ea7b3", hexutil.Encode(data[:4]))
	assert.Equal(t, spender, common.BytesToAddress(data[4:36]))
	assert.Equal(t, all.Bytes32(), [32]byte(data[36:68]))
}
