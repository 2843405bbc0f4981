package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcutil/base58"
)

// PublicKey is a 32-byte ed25519 public key or program-derived address
type PublicKey [32]byte

// Well-known program addresses
var (
	SystemProgramID          = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	NativeMint               = MustPublicKey("So11111111111111111111111111111111111111112")
	FeeProgramID             = MustPublicKey("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
)

// creatorVaultSeed is the fixed namespace under which the fee program
// derives each operator's accrual vault. The vault address depends on
// the operator identity only, not on any particular mint.
const creatorVaultSeed = "creator-vault"

// PublicKeyFromBase58 parses a base58-encoded 32-byte public key
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	decoded := base58.Decode(s)
	if len(decoded) != 32 {
		return pk, fmt.Errorf("invalid public key %q: decoded to %d bytes", s, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustPublicKey parses a base58 public key and panics on failure.
// Reserved for package-level constants.
func MustPublicKey(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

func (p PublicKey) Bytes() []byte {
	return p[:]
}

// isOnCurve reports whether b decompresses to a valid ed25519 point.
// Program-derived addresses must be off-curve so no private key can
// ever sign for them.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress derives the address for the given seeds and
// program, failing if the result lands on the curve.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			return PublicKey{}, fmt.Errorf("seed exceeds 32 bytes")
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte("ProgramDerivedAddress"))

	var pk PublicKey
	copy(pk[:], h.Sum(nil))
	if isOnCurve(pk[:]) {
		return PublicKey{}, fmt.Errorf("derived address is on the curve")
	}
	return pk, nil
}

// FindProgramAddress finds the first off-curve address for the seeds,
// walking the bump seed down from 255.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		candidate := append(append([][]byte{}, seeds...), []byte{uint8(bump)})
		pk, err := CreateProgramAddress(candidate, program)
		if err == nil {
			return pk, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, fmt.Errorf("no viable program address for seeds")
}

// CreatorVaultAddress derives the fee-accrual vault for an operator.
func CreatorVaultAddress(operator PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress([][]byte{[]byte(creatorVaultSeed), operator.Bytes()}, FeeProgramID)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	return pk, nil
}

// AssociatedTokenAddress derives the canonical token account for a
// wallet and mint.
func AssociatedTokenAddress(wallet, mint PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress(
		[][]byte{wallet.Bytes(), TokenProgramID.Bytes(), mint.Bytes()},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return pk, nil
}
