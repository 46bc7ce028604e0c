package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openbuilders/sol-batch-sender/internal/queue"
	"github.com/openbuilders/sol-batch-sender/internal/types"
)

const (
	PatternTransferStatus = "transfer-status"
	StageWatcher          = "watcher"
)

type Config struct {
	Queue queue.QueueName
}

type Publisher interface {
	Publish(ctx context.Context, queueName queue.QueueName, message []byte) error
}

type TransferStatusData struct {
	RunID     string     `json:"run_id"`
	Stage     string     `json:"stage"`
	Position  int        `json:"position"`
	Slot      uint64     `json:"slot,omitempty"`
	Status    types.Kind `json:"status"`
	Signature string     `json:"signature,omitempty"`
	Detail    string     `json:"detail"`
}

type TransferStatusNotification struct {
	Pattern string             `json:"pattern"`
	Data    TransferStatusData `json:"data"`
}

// Notifier publishes one transfer-status message per outcome.
type Notifier struct {
	config    *Config
	publisher Publisher
	log       *slog.Logger
}

func New(config *Config, publisher Publisher) *Notifier {
	return &Notifier{
		config:    config,
		publisher: publisher,
		log:       slog.With("component", "notifier"),
	}
}

// NotifyEnvelope stops at the first failed publish and reports how many
// messages went out.
func (n *Notifier) NotifyEnvelope(ctx context.Context, runID, stage string,
	envelope types.ResultEnvelope) (int, error) {

	for i, outcome := range envelope.Results {
		err := n.notify(ctx, newData(runID, stage, i, outcome))
		if err != nil {
			return i, fmt.Errorf("result %d: %w", i, err)
		}
	}

	n.log.Debug("Envelope notifications sent", "run", runID, "stage", stage,
		"count", len(envelope.Results))

	return len(envelope.Results), nil
}

func (n *Notifier) NotifySlot(ctx context.Context, runID string, slot uint64,
	outcome types.Outcome) error {

	data := newData(runID, StageWatcher, 0, outcome)
	data.Slot = slot

	return n.notify(ctx, data)
}

func newData(runID, stage string, position int,
	outcome types.Outcome) TransferStatusData {

	signature, _ := types.SignatureOf(outcome)

	return TransferStatusData{
		RunID:     runID,
		Stage:     stage,
		Position:  position,
		Status:    outcome.Kind(),
		Signature: signature,
		Detail:    types.Detail(outcome),
	}
}

func (n *Notifier) notify(ctx context.Context, data TransferStatusData) error {
	payload := TransferStatusNotification{
		Pattern: PatternTransferStatus,
		Data:    data,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	n.log.Debug("Sending notification", "payload", string(jsonData))

	if err := n.publisher.Publish(ctx, n.config.Queue, jsonData); err != nil {
		n.log.Error("couldn't enqueue message", "message", string(jsonData),
			"error", err)
		return err
	}

	return nil
}
