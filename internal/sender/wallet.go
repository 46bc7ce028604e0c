package sender

import (
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
)

// ParseKeypair decodes a base58 encoded 64 byte ed25519 keypair, the format
// produced by most Solana wallets when exporting a secret key.
func ParseKeypair(encoded string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key encoding: %w", err)
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid secret key length: expected %d bytes, got %d",
			ed25519.PrivateKeySize, len(raw))
	}

	key := solana.PrivateKey(raw)
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}

	return key, nil
}

func ParseAddress(encoded string) (solana.PublicKey, error) {
	addr, err := solana.PublicKeyFromBase58(encoded)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid destination address: %w", err)
	}

	return addr, nil
}

// BuildTransfer creates a transaction with a single system transfer
// instruction paid and signed by key.
func BuildTransfer(blockhash solana.Hash, key solana.PrivateKey,
	destination solana.PublicKey, lamports uint64) (*solana.Transaction, error) {

	source := key.PublicKey()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, source, destination).Build(),
		},
		blockhash,
		solana.TransactionPayer(source),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(source) {
			return &key
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	return tx, nil
}
