package sender

import (
	"context"
	"log/slog"

	"github.com/openbuilders/sol-batch-sender/internal/batcher"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/metrics"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/gagliardetto/solana-go"
)

const (
	StageConfirm = "confirm"

	DetailsNoStatus          = "no status"
	ReasonInvalidSignature   = "invalid signature"
	searchTransactionHistory = true
)

// Confirmer re-polls the status of every outcome that may still change.
type Confirmer struct {
	newGateway GatewayFactory
	log        *slog.Logger
}

func NewConfirmer(newGateway GatewayFactory) *Confirmer {
	return &Confirmer{
		newGateway: newGateway,
		log:        slog.With("component", "confirmer"),
	}
}

// Confirm returns a new envelope with the same endpoint, batch size and
// positions as the input.
func (c *Confirmer) Confirm(ctx context.Context,
	envelope types.ResultEnvelope) types.ResultEnvelope {

	c.log.Info(
		"Confirming transfers",
		"endpoint", envelope.Endpoint,
		"results", len(envelope.Results),
		"batch_size", envelope.BatchSize,
	)

	gateway := c.newGateway(envelope.Endpoint)

	b := batcher.New[types.Outcome, types.Outcome](&batcher.Config{
		BatchSize: envelope.BatchSize,
		Stage:     StageConfirm,
		OnBatch:   metrics.ObserveBatch,
	})

	results := b.Run(ctx, envelope.Results,
		func(ctx context.Context, _ int, batch []types.Outcome) []types.Outcome {
			return batcher.FanOut(ctx, batch,
				func(ctx context.Context, outcome types.Outcome) types.Outcome {
					return c.poll(ctx, gateway, outcome)
				})
		})

	confirmed := types.ResultEnvelope{
		Endpoint:  envelope.Endpoint,
		BatchSize: envelope.BatchSize,
		Results:   results,
	}

	metrics.RecordEnvelope(StageConfirm, confirmed)

	return confirmed
}

func (c *Confirmer) poll(ctx context.Context, gateway ledger.Gateway,
	outcome types.Outcome) types.Outcome {

	if types.IsAbsorbing(outcome) {
		return outcome
	}

	encoded, ok := types.SignatureOf(outcome)
	if !ok {
		return outcome
	}

	signature, err := solana.SignatureFromBase58(encoded)
	if err != nil {
		c.log.Warn("Unparsable signature", "signature", encoded, "error", err)
		return types.PollFailed{Signature: encoded, Reason: ReasonInvalidSignature}
	}

	status, err := gateway.SignatureStatus(ctx, signature, searchTransactionHistory)
	if err != nil {
		c.log.Error("Status query failed", "signature", encoded, "error", err)
		return types.Indeterminate{Signature: encoded, Details: err.Error()}
	}

	if status == nil {
		return types.Indeterminate{Signature: encoded, Details: DetailsNoStatus}
	}

	c.log.Debug(
		"Signature status",
		"signature", encoded,
		"status", status.Level,
		"slot", status.Slot,
		"error", status.Err,
	)

	return types.Confirmed{
		Signature: encoded,
		Status:    status.Level,
		Err:       status.Err,
	}
}
