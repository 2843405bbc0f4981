package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// submitter bundles the pieces every write-path operation shares: the
// RPC client, the operator credential and the confirmation bound.
type submitter struct {
	rpc            *Client
	signer         *Signer
	confirmTimeout time.Duration
}

// submit sends a signed transaction and waits for confirmation.
// Chain-side rejections and execution failures are tagged ErrTxFailed
// so callers can tell them from transport errors.
func (s submitter) submit(ctx context.Context, signed []byte) (string, error) {
	sig, err := s.rpc.SendTransaction(ctx, signed)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %v", ErrTxFailed, err)
		}
		return "", err
	}

	if err := s.rpc.WaitForConfirmation(ctx, sig, s.confirmTimeout); err != nil {
		return sig, fmt.Errorf("%w: %v", ErrTxFailed, err)
	}
	return sig, nil
}
