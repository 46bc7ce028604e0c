package sender

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/metrics"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/cenkalti/backoff/v4"
)

type WatcherConfig struct {
	Endpoint          string
	Transfer          types.Transfer
	ReconnectInterval time.Duration
	// OnOutcome, if set, sees every slot triggered outcome.
	OnOutcome func(ctx context.Context, slot uint64, outcome types.Outcome)
}

// Watcher sends one fixed transfer for every new slot the node announces.
type Watcher struct {
	config     *WatcherConfig
	subscriber ledger.SlotSubscriber
	dispatcher *Dispatcher
	lastSlot   atomic.Uint64
	lastSeen   atomic.Int64
	log        *slog.Logger
}

func NewWatcher(config *WatcherConfig, subscriber ledger.SlotSubscriber,
	dispatcher *Dispatcher) *Watcher {
	return &Watcher{
		config:     config,
		subscriber: subscriber,
		dispatcher: dispatcher,
		log:        slog.With("component", "watcher"),
	}
}

// Run resubscribes after every stream failure, waiting ReconnectInterval in
// between, until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("Starting watcher", "endpoint", w.config.Endpoint)

	policy := backoff.WithContext(
		backoff.NewConstantBackOff(w.config.ReconnectInterval), ctx)

	err := backoff.RetryNotify(func() error {
		return w.watch(ctx)
	}, policy, func(err error, next time.Duration) {
		metrics.WatcherReconnects.Inc()
		w.log.Error("Slot stream failed", "error", err, "retry_in", next)
	})

	if ctx.Err() != nil {
		w.log.Info("Stopping watcher...")
		return nil
	}

	return err
}

// LastSlot reports the most recent slot and when it was received. The time
// is zero until the first slot arrives.
func (w *Watcher) LastSlot() (uint64, time.Time) {
	seen := w.lastSeen.Load()
	if seen == 0 {
		return 0, time.Time{}
	}
	return w.lastSlot.Load(), time.Unix(0, seen)
}

func (w *Watcher) watch(ctx context.Context) error {
	stream, err := w.subscriber.Subscribe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stream.Close()

	w.log.Debug("Subscribed to slots")

	for {
		slot, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("next slot: %w", err)
		}

		w.lastSlot.Store(slot)
		w.lastSeen.Store(time.Now().UnixNano())

		w.handleSlot(ctx, slot)
	}
}

func (w *Watcher) handleSlot(ctx context.Context, slot uint64) {
	outcome := w.dispatcher.Send(ctx, w.config.Endpoint, w.config.Transfer)

	metrics.WatcherTransfers.WithLabelValues(string(outcome.Kind())).Inc()

	w.log.Info(
		"Slot transfer",
		"slot", slot,
		"status", outcome.Kind(),
		"detail", types.Detail(outcome),
	)

	if w.config.OnOutcome != nil {
		w.config.OnOutcome(ctx, slot, outcome)
	}
}
