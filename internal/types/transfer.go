package types

import (
	"log/slog"

	"github.com/openbuilders/sol-batch-sender/internal/helpers"
)

// Transfer is a single request to move Amount lamports from the account of
// SourceCredential to Destination.
type Transfer struct {
	// base58 encoded 64 byte ed25519 keypair of the payer.
	SourceCredential string `json:"source_credential"`
	// base58 encoded public key of the recipient.
	Destination string `json:"destination"`
	// Amount in lamports.
	Amount uint64 `json:"amount"`
}

// LogValue keeps the secret key out of the logs.
func (t Transfer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source", helpers.TinyHash(t.SourceCredential)),
		slog.String("destination", t.Destination),
		slog.Uint64("amount", t.Amount),
	)
}

// DispatchRequest is the payload of a dispatch job.
type DispatchRequest struct {
	Endpoint  string     `json:"endpoint"`
	BatchSize int        `json:"batch_size"`
	Transfers []Transfer `json:"transfers"`
}
