package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Signer holds the operator's ready-to-use signing credential. It is
// constructed once at process start and shared by every step of a
// cycle: the vault claim, both conversions and every payout transfer.
type Signer struct {
	key ed25519.PrivateKey
	pub PublicKey
}

// NewSigner parses a base58-encoded 64-byte ed25519 private key.
func NewSigner(base58Key string) (*Signer, error) {
	decoded := base58.Decode(base58Key)
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key: decoded to %d bytes, want %d", len(decoded), ed25519.PrivateKeySize)
	}

	key := ed25519.PrivateKey(decoded)
	var pub PublicKey
	copy(pub[:], key.Public().(ed25519.PublicKey))

	return &Signer{key: key, pub: pub}, nil
}

// PublicKey returns the signer's public key.
func (s *Signer) PublicKey() PublicKey {
	return s.pub
}

// Sign signs a serialized transaction message.
func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.key, message)
}
