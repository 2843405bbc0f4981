package solana

import (
	"context"
	"fmt"
	"time"
)

// WrapClient wraps native currency into its transferable token form.
type WrapClient struct {
	submitter
}

func NewWrapClient(rpc *Client, signer *Signer, confirmTimeout time.Duration) *WrapClient {
	return &WrapClient{submitter{rpc: rpc, signer: signer, confirmTimeout: confirmTimeout}}
}

// WrapNative moves lamports into the operator's native-mint token
// account and syncs its wrapped balance. Account creation, funding and
// sync ride in one transaction so the wrap is atomic: either the full
// wrapped balance exists afterwards or nothing happened.
func (w *WrapClient) WrapNative(ctx context.Context, lamports uint64) (string, error) {
	owner := w.signer.PublicKey()

	ata, err := AssociatedTokenAddress(owner, NativeMint)
	if err != nil {
		return "", err
	}

	blockhash, err := w.rpc.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	signed, err := BuildTransaction(w.signer, blockhash, []Instruction{
		CreateAssociatedTokenAccountIdempotent(owner, ata, owner, NativeMint),
		SystemTransfer(owner, ata, lamports),
		SyncNative(ata),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build wrap transaction: %w", err)
	}

	return w.submit(ctx, signed)
}
