package solana

import (
	"bytes"
	"fmt"
)

// AccountMeta describes how an instruction touches an account
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is one program invocation inside a transaction
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Hash is a 32-byte recent blockhash
type Hash [32]byte

// HashFromBase58 parses a base58-encoded blockhash
func HashFromBase58(s string) (Hash, error) {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid blockhash: %w", err)
	}
	return Hash(pk), nil
}

// appendShortVec appends a compact-u16 length prefix
func appendShortVec(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// readShortVec reads a compact-u16 length prefix, returning the value
// and the number of bytes consumed.
func readShortVec(buf []byte) (int, int, error) {
	var value, shift uint
	for i := 0; i < 3 && i < len(buf); i++ {
		b := buf[i]
		value |= uint(b&0x7f) << shift
		if b&0x80 == 0 {
			return int(value), i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("malformed compact-u16 prefix")
}

// compiledAccount tracks merged flags for one account across all
// instructions in a message.
type compiledAccount struct {
	key      PublicKey
	signer   bool
	writable bool
}

// CompileMessage serializes a legacy transaction message with the fee
// payer as the first account. Account ordering follows the wire
// format's requirement: writable signers, readonly signers, writable
// non-signers, readonly non-signers.
func CompileMessage(payer PublicKey, blockhash Hash, instructions []Instruction) ([]byte, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions to compile")
	}

	merged := []compiledAccount{{key: payer, signer: true, writable: true}}
	index := map[PublicKey]int{payer: 0}

	touch := func(key PublicKey, signer, writable bool) {
		if i, ok := index[key]; ok {
			merged[i].signer = merged[i].signer || signer
			merged[i].writable = merged[i].writable || writable
			return
		}
		index[key] = len(merged)
		merged = append(merged, compiledAccount{key: key, signer: signer, writable: writable})
	}

	for _, ins := range instructions {
		for _, meta := range ins.Accounts {
			touch(meta.PublicKey, meta.IsSigner, meta.IsWritable)
		}
		touch(ins.ProgramID, false, false)
	}

	var ordered []compiledAccount
	for _, pick := range []func(compiledAccount) bool{
		func(a compiledAccount) bool { return a.signer && a.writable },
		func(a compiledAccount) bool { return a.signer && !a.writable },
		func(a compiledAccount) bool { return !a.signer && a.writable },
		func(a compiledAccount) bool { return !a.signer && !a.writable },
	} {
		for _, a := range merged {
			if pick(a) {
				ordered = append(ordered, a)
			}
		}
	}

	position := make(map[PublicKey]int, len(ordered))
	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for i, a := range ordered {
		position[a.key] = i
		if a.signer {
			numSigners++
			if !a.writable {
				numReadonlySigned++
			}
		} else if !a.writable {
			numReadonlyUnsigned++
		}
	}

	var buf []byte
	buf = append(buf, byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned))
	buf = appendShortVec(buf, len(ordered))
	for _, a := range ordered {
		buf = append(buf, a.key[:]...)
	}
	buf = append(buf, blockhash[:]...)
	buf = appendShortVec(buf, len(instructions))
	for _, ins := range instructions {
		buf = append(buf, byte(position[ins.ProgramID]))
		buf = appendShortVec(buf, len(ins.Accounts))
		for _, meta := range ins.Accounts {
			buf = append(buf, byte(position[meta.PublicKey]))
		}
		buf = appendShortVec(buf, len(ins.Data))
		buf = append(buf, ins.Data...)
	}

	return buf, nil
}

// BuildTransaction compiles, signs and serializes a single-signer
// transaction.
func BuildTransaction(signer *Signer, blockhash Hash, instructions []Instruction) ([]byte, error) {
	message, err := CompileMessage(signer.PublicKey(), blockhash, instructions)
	if err != nil {
		return nil, err
	}

	sig := signer.Sign(message)

	var buf []byte
	buf = appendShortVec(buf, 1)
	buf = append(buf, sig...)
	buf = append(buf, message...)
	return buf, nil
}

// SignSerializedTransaction signs a venue-built serialized transaction
// with the operator credential, replacing the first (fee payer)
// signature slot. The venue builds the transaction; only the operator
// can authorize it.
func SignSerializedTransaction(signer *Signer, raw []byte) ([]byte, error) {
	numSigs, prefixLen, err := readShortVec(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	if numSigs < 1 {
		return nil, fmt.Errorf("transaction reserves no signature slots")
	}

	messageStart := prefixLen + numSigs*64
	if len(raw) <= messageStart {
		return nil, fmt.Errorf("transaction truncated: %d bytes, message starts at %d", len(raw), messageStart)
	}
	message := raw[messageStart:]

	// The first message account must be the operator; signing someone
	// else's fee-payer slot would produce an invalid transaction.
	if err := verifyFeePayer(message, signer.PublicKey()); err != nil {
		return nil, err
	}

	sig := signer.Sign(message)

	signed := make([]byte, len(raw))
	copy(signed, raw)
	copy(signed[prefixLen:prefixLen+64], sig)
	return signed, nil
}

func verifyFeePayer(message []byte, expected PublicKey) error {
	if len(message) < 3 {
		return fmt.Errorf("message truncated")
	}
	_, consumed, err := readShortVec(message[3:])
	if err != nil {
		return fmt.Errorf("failed to parse message accounts: %w", err)
	}
	keyStart := 3 + consumed
	if len(message) < keyStart+32 {
		return fmt.Errorf("message truncated before fee payer key")
	}
	if !bytes.Equal(message[keyStart:keyStart+32], expected[:]) {
		return fmt.Errorf("transaction fee payer is not the operator")
	}
	return nil
}
