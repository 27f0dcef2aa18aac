// Package rpc is the JSON-RPC gateway to the relay service and the chain node.
package rpc

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// DelegationPrefix marks an EIP-7702 delegation designator in account code.
var DelegationPrefix = []byte{0xef, 0x01, 0x00}

// Gateway issues wallet_* and eth_* calls over one HTTP JSON-RPC client.
type Gateway struct {
	client *gethrpc.Client
	eth    *ethclient.Client
	logger log.Logger

	seq atomic.Uint64

	mu           sync.RWMutex
	capabilities map[string]ChainCapabilities
}

// Dial connects to the relay endpoint.
func Dial(ctx context.Context, url string, logger log.Logger) (*Gateway, error) {
	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return NewGateway(client, logger), nil
}

// NewGateway wraps an existing client.
func NewGateway(client *gethrpc.Client, logger log.Logger) *Gateway {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Gateway{
		client:       client,
		eth:          ethclient.NewClient(client),
		logger:       logger.With(log.ModuleKey, "rpc"),
		capabilities: make(map[string]ChainCapabilities),
	}
}

// Close releases the underlying connection.
func (g *Gateway) Close() {
	g.client.Close()
}

// EthClient exposes the typed eth_* client sharing this connection.
func (g *Gateway) EthClient() *ethclient.Client {
	return g.eth
}

func (g *Gateway) call(ctx context.Context, result any, method string, args ...any) error {
	id := g.seq.Add(1)
	start := time.Now()

	err := g.client.CallContext(ctx, result, method, args...)
	if err != nil {
		mapped := mapError(err)
		g.logger.Debug("rpc call failed", "seq", id, "method", method, "elapsed", time.Since(start), "error", mapped)
		return mapped
	}
	g.logger.Debug("rpc call", "seq", id, "method", method, "elapsed", time.Since(start))
	return nil
}

// GetCapabilities returns the contracts advertised for chainID. Results are
// cached for the lifetime of the gateway.
func (g *Gateway) GetCapabilities(ctx context.Context, chainID uint64) (ChainCapabilities, error) {
	key := hexutil.EncodeUint64(chainID)

	g.mu.RLock()
	cached, ok := g.capabilities[key]
	g.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var result map[string]ChainCapabilities
	if err := g.call(ctx, &result, "wallet_getCapabilities", []string{key}); err != nil {
		return ChainCapabilities{}, err
	}

	caps, ok := result[key]
	if !ok {
		// some relays key by decimal id
		caps = result[strconv.FormatUint(chainID, 10)]
	}

	g.mu.Lock()
	g.capabilities[key] = caps
	g.mu.Unlock()
	return caps, nil
}

// PrepareUpgradeAccount asks the relay for the digests authorizing the
// delegation of req.Address.
func (g *Gateway) PrepareUpgradeAccount(ctx context.Context, req PrepareUpgradeRequest) (*PrepareUpgradeResponse, error) {
	if req.Capabilities.AuthorizeKeys == nil {
		req.Capabilities.AuthorizeKeys = []AuthorizeKey{}
	}
	for i := range req.Capabilities.AuthorizeKeys {
		if req.Capabilities.AuthorizeKeys[i].Permissions == nil {
			req.Capabilities.AuthorizeKeys[i].Permissions = []any{}
		}
	}

	var resp PrepareUpgradeResponse
	if err := g.call(ctx, &resp, "wallet_prepareUpgradeAccount", req); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpgradeAccount submits the signed upgrade.
func (g *Gateway) UpgradeAccount(ctx context.Context, req UpgradeAccountRequest) error {
	return g.call(ctx, nil, "wallet_upgradeAccount", req)
}

// PrepareCalls quotes a bundle and returns the digest to sign.
func (g *Gateway) PrepareCalls(ctx context.Context, req PrepareCallsRequest) (*PrepareCallsResponse, error) {
	var resp PrepareCallsResponse
	if err := g.call(ctx, &resp, "wallet_prepareCalls", req); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendPreparedCalls submits a signed bundle and returns its id.
func (g *Gateway) SendPreparedCalls(ctx context.Context, req SendPreparedCallsRequest) (string, error) {
	var resp SendPreparedCallsResponse
	if err := g.call(ctx, &resp, "wallet_sendPreparedCalls", req); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// GetCallsStatus reports the state of a submitted bundle.
func (g *Gateway) GetCallsStatus(ctx context.Context, id string) (*CallsStatus, error) {
	var status CallsStatus
	if err := g.call(ctx, &status, "wallet_getCallsStatus", id); err != nil {
		return nil, err
	}
	if status.ID == "" {
		status.ID = id
	}
	return &status, nil
}

// GetCode returns the latest code at address.
func (g *Gateway) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	code, err := g.eth.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, mapError(err)
	}
	return code, nil
}

// CallContract runs eth_call against the latest block.
func (g *Gateway) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	out, err := g.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// ParseDelegation extracts the delegate from an EIP-7702 designator.
func ParseDelegation(code []byte) (common.Address, bool) {
	if len(code) != len(DelegationPrefix)+common.AddressLength || !bytes.HasPrefix(code, DelegationPrefix) {
		return common.Address{}, false
	}
	return common.BytesToAddress(code[len(DelegationPrefix):]), true
}

// IsDelegatedTo reports whether address currently delegates to delegate.
func (g *Gateway) IsDelegatedTo(ctx context.Context, address, delegate common.Address) (bool, error) {
	code, err := g.GetCode(ctx, address)
	if err != nil {
		return false, err
	}
	current, ok := ParseDelegation(code)
	return ok && current == delegate, nil
}
