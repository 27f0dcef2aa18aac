package rpc

import (
	"context"
	"errors"
	"fmt"

	sdkerrors "cosmossdk.io/errors"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// ModuleName is the error codespace of this package.
const ModuleName = "rpc"

var (
	// ErrTransport covers non-2xx responses, malformed bodies and network
	// failures.
	ErrTransport = sdkerrors.Register(ModuleName, 1, "rpc transport failure")
	// ErrRPC covers well-formed JSON-RPC error payloads.
	ErrRPC = sdkerrors.Register(ModuleName, 2, "rpc error response")
)

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Is matches ErrRPC.
func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}

// TransportError wraps a failure below the JSON-RPC layer. StatusCode is zero
// when no HTTP response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rpc transport: http %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("rpc transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// mapError sorts a go-ethereum client error into RPCError or TransportError.
// Context errors pass through so callers can tell cancellation apart.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		return &TransportError{StatusCode: httpErr.StatusCode, Err: err}
	}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		out := &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		var dataErr gethrpc.DataError
		if errors.As(err, &dataErr) {
			out.Data = dataErr.ErrorData()
		}
		return out
	}

	return &TransportError{Err: err}
}
