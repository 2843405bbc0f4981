package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAccountCreation marks a payout that failed before submission
// because the recipient's token account could not be determined.
var ErrAccountCreation = errors.New("destination account creation failed")

// PayoutClient sends the payout asset to holder wallets.
type PayoutClient struct {
	submitter
	mint      PublicKey
	sourceATA PublicKey
}

// NewPayoutClient wires transfers of the given payout mint from the
// operator's token account.
func NewPayoutClient(rpc *Client, signer *Signer, mint PublicKey, confirmTimeout time.Duration) (*PayoutClient, error) {
	source, err := AssociatedTokenAddress(signer.PublicKey(), mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}
	return &PayoutClient{
		submitter: submitter{rpc: rpc, signer: signer, confirmTimeout: confirmTimeout},
		mint:      mint,
		sourceATA: source,
	}, nil
}

// SendPayout transfers amount base units to the wallet's token
// account, creating the account if needed. One atomic transaction per
// recipient keeps a single holder's failure from touching anyone else.
func (p *PayoutClient) SendPayout(ctx context.Context, wallet string, amount uint64) (string, error) {
	owner := p.signer.PublicKey()

	dest, err := PublicKeyFromBase58(wallet)
	if err != nil {
		return "", fmt.Errorf("%w: invalid wallet %s: %v", ErrAccountCreation, wallet, err)
	}

	destATA, err := AssociatedTokenAddress(dest, p.mint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAccountCreation, err)
	}

	blockhash, err := p.rpc.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	signed, err := BuildTransaction(p.signer, blockhash, []Instruction{
		CreateAssociatedTokenAccountIdempotent(owner, destATA, dest, p.mint),
		TokenTransfer(p.sourceATA, destATA, owner, amount),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build payout transaction: %w", err)
	}

	return p.submit(ctx, signed)
}
