package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go/rpc/ws"
)

// SlotStream delivers new slots until it fails or is closed.
type SlotStream interface {
	Next(ctx context.Context) (uint64, error)
	Close()
}

// SlotSubscriber opens slot streams. Every call to Subscribe opens a new
// connection.
type SlotSubscriber interface {
	Subscribe(ctx context.Context) (SlotStream, error)
}

type WSSubscriber struct {
	endpoint string
	log      *slog.Logger
}

func NewWSSubscriber(endpoint string) *WSSubscriber {
	return &WSSubscriber{
		endpoint: endpoint,
		log:      slog.With("component", "slot-subscriber", "endpoint", endpoint),
	}
}

func (s *WSSubscriber) Subscribe(ctx context.Context) (SlotStream, error) {
	s.log.Debug("Connecting to the websocket endpoint")

	client, err := ws.Connect(ctx, s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	sub, err := client.SlotSubscribe()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("slot subscribe: %w", err)
	}

	return &wsSlotStream{client: client, sub: sub}, nil
}

type wsSlotStream struct {
	client *ws.Client
	sub    *ws.SlotSubscription
}

func (s *wsSlotStream) Next(ctx context.Context) (uint64, error) {
	result, err := s.sub.Recv(ctx)
	if err != nil {
		return 0, err
	}

	if result == nil {
		return 0, fmt.Errorf("empty slot notification")
	}

	return result.Slot, nil
}

func (s *wsSlotStream) Close() {
	s.sub.Unsubscribe()
	s.client.Close()
}
