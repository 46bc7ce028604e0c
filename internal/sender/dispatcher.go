package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/batcher"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/metrics"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/gagliardetto/solana-go"
)

const StageDispatch = "dispatch"

// GatewayFactory returns the gateway used for a whole run against endpoint.
type GatewayFactory func(endpoint string) ledger.Gateway

// Dispatcher signs and submits transfers. It never retries: every transfer
// gets exactly one attempt and one recorded outcome.
type Dispatcher struct {
	newGateway GatewayFactory
	log        *slog.Logger
}

func NewDispatcher(newGateway GatewayFactory) *Dispatcher {
	return &Dispatcher{
		newGateway: newGateway,
		log:        slog.With("component", "dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, endpoint string,
	batchSize int, transfers []types.Transfer) types.ResultEnvelope {

	d.log.Info(
		"Dispatching transfers",
		"endpoint", endpoint,
		"transfers", len(transfers),
		"batch_size", batchSize,
	)

	gateway := d.newGateway(endpoint)

	b := batcher.New[types.Transfer, types.Outcome](&batcher.Config{
		BatchSize: batchSize,
		Stage:     StageDispatch,
		OnBatch:   metrics.ObserveBatch,
	})

	results := b.Run(ctx, transfers,
		func(ctx context.Context, index int, batch []types.Transfer) []types.Outcome {
			return d.dispatchBatch(ctx, gateway, index, batch)
		})

	envelope := types.ResultEnvelope{
		Endpoint:  endpoint,
		BatchSize: batchSize,
		Results:   results,
	}

	metrics.RecordEnvelope(StageDispatch, envelope)

	return envelope
}

// Send submits a single transfer outside of any run. No envelope metrics
// are recorded for it.
func (d *Dispatcher) Send(ctx context.Context, endpoint string,
	transfer types.Transfer) types.Outcome {

	d.log.Debug("Sending transfer", "endpoint", endpoint, "transfer", transfer)

	return d.dispatchBatch(ctx, d.newGateway(endpoint), 0,
		[]types.Transfer{transfer})[0]
}

// dispatchBatch fetches one blockhash for the whole batch. Without it nothing
// in the batch can be signed, so every transfer fails with the same reason.
func (d *Dispatcher) dispatchBatch(ctx context.Context, gateway ledger.Gateway,
	index int, batch []types.Transfer) []types.Outcome {

	blockhash, err := gateway.LatestBlockhash(ctx)
	if err != nil {
		d.log.Error(
			"couldn't fetch blockhash, failing the batch",
			"batch", index,
			"size", len(batch),
			"error", err,
		)

		metrics.BlockhashFailures.Inc()

		results := make([]types.Outcome, len(batch))
		for i := range results {
			results[i] = types.SendFailed{Reason: err.Error()}
		}

		return results
	}

	return batcher.FanOut(ctx, batch,
		func(ctx context.Context, transfer types.Transfer) types.Outcome {
			return d.send(ctx, gateway, blockhash, transfer)
		})
}

func (d *Dispatcher) send(ctx context.Context, gateway ledger.Gateway,
	blockhash solana.Hash, transfer types.Transfer) types.Outcome {

	key, err := ParseKeypair(transfer.SourceCredential)
	if err != nil {
		d.log.Warn("Rejected transfer", "transfer", transfer, "error", err)
		return types.SendFailed{Reason: err.Error()}
	}

	destination, err := ParseAddress(transfer.Destination)
	if err != nil {
		d.log.Warn("Rejected transfer", "transfer", transfer, "error", err)
		return types.SendFailed{Reason: err.Error()}
	}

	tx, err := BuildTransfer(blockhash, key, destination, transfer.Amount)
	if err != nil {
		d.log.Error("couldn't build transaction", "transfer", transfer, "error", err)
		return types.SendFailed{Reason: err.Error()}
	}

	start := time.Now()
	signature, err := gateway.Submit(ctx, tx)
	elapsed := time.Since(start)

	if err != nil {
		d.log.Error("Transfer submission failed", "transfer", transfer, "error", err)
		return types.SendFailed{Reason: err.Error()}
	}

	metrics.SubmissionDuration.Observe(elapsed.Seconds())

	d.log.Debug(
		"Transfer submitted",
		"transfer", transfer,
		"signature", signature,
		"elapsed", elapsed,
	)

	return types.Sent{
		Signature: signature.String(),
		Elapsed:   types.Duration(elapsed),
	}
}
