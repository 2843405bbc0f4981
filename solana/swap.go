package solana

import (
	"context"
	"fmt"
	"time"
)

// SwapClient executes buys of the target token through the swap venue.
type SwapClient struct {
	submitter
	venue *SwapVenue
}

func NewSwapClient(rpc *Client, venue *SwapVenue, signer *Signer, confirmTimeout time.Duration) *SwapClient {
	return &SwapClient{
		submitter: submitter{rpc: rpc, signer: signer, confirmTimeout: confirmTimeout},
		venue:     venue,
	}
}

// BuyToken spends lamports of native currency on the given mint at the
// supplied slippage tolerance. Failures satisfying IsSlippageExceeded
// are safe to retry with a wider tolerance.
func (s *SwapClient) BuyToken(ctx context.Context, mint string, lamports uint64, slippagePercent int) (string, error) {
	unsigned, err := s.venue.BuildBuyTransaction(ctx, s.signer.PublicKey(), mint, lamports, slippagePercent)
	if err != nil {
		return "", err
	}

	signed, err := SignSerializedTransaction(s.signer, unsigned)
	if err != nil {
		return "", fmt.Errorf("failed to sign buy transaction: %w", err)
	}

	return s.submit(ctx, signed)
}
