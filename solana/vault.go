package solana

import (
	"context"
	"fmt"
	"time"
)

// VaultClient reads and claims the operator's fee-accrual vault.
type VaultClient struct {
	submitter
	venue *ClaimVenue
	vault PublicKey
}

// NewVaultClient derives the operator's vault address and wires the
// claim path.
func NewVaultClient(rpc *Client, venue *ClaimVenue, signer *Signer, confirmTimeout time.Duration) (*VaultClient, error) {
	vault, err := CreatorVaultAddress(signer.PublicKey())
	if err != nil {
		return nil, err
	}
	return &VaultClient{
		submitter: submitter{rpc: rpc, signer: signer, confirmTimeout: confirmTimeout},
		venue:     venue,
		vault:     vault,
	}, nil
}

// VaultAddress returns the derived vault address.
func (v *VaultClient) VaultAddress() PublicKey {
	return v.vault
}

// VaultBalance returns the lamports currently accrued in the vault.
func (v *VaultClient) VaultBalance(ctx context.Context) (uint64, error) {
	return v.rpc.Balance(ctx, v.vault.String())
}

// WalletBalance returns the operator's own spendable lamports.
func (v *VaultClient) WalletBalance(ctx context.Context) (uint64, error) {
	return v.rpc.Balance(ctx, v.signer.PublicKey().String())
}

// Claim collects the accrued vault balance into the operator wallet.
// Returns ErrNothingToClaim when the venue reports an empty vault.
func (v *VaultClient) Claim(ctx context.Context) (string, error) {
	unsigned, err := v.venue.BuildClaimTransaction(ctx, v.signer.PublicKey())
	if err != nil {
		return "", err
	}

	signed, err := SignSerializedTransaction(v.signer, unsigned)
	if err != nil {
		return "", fmt.Errorf("failed to sign claim transaction: %w", err)
	}

	return v.submit(ctx, signed)
}
