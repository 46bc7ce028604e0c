package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Gateway is the network handle shared by every concurrent operation of a
// run. Implementations must be safe for concurrent use.
type Gateway interface {
	// LatestBlockhash returns a recent blockhash, the freshness token every
	// transaction must carry.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// SignatureStatus returns nil when the node knows nothing about sig.
	SignatureStatus(ctx context.Context, sig solana.Signature,
		searchHistory bool) (*Status, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Status is what the node reports for a signature.
type Status struct {
	// processed, confirmed, finalized, or whatever later nodes report.
	Level string
	Slot  uint64
	// On-chain execution error, empty on success.
	Err string
}

type Config struct {
	Endpoint string
	// Commitment used for blockhash and balance queries.
	Commitment rpc.CommitmentType
	// Per call timeout, zero disables it.
	Timeout time.Duration
}

// RPCGateway talks to a Solana JSON-RPC node.
type RPCGateway struct {
	config *Config
	client *rpc.Client
	log    *slog.Logger
}

func NewRPCGateway(config *Config) *RPCGateway {
	return NewRPCGatewayWithClient(config, rpc.New(config.Endpoint))
}

func NewRPCGatewayWithClient(config *Config, client *rpc.Client) *RPCGateway {
	if config.Commitment == "" {
		config.Commitment = rpc.CommitmentFinalized
	}

	return &RPCGateway{
		config: config,
		client: client,
		log:    slog.With("component", "gateway", "endpoint", config.Endpoint),
	}
}

func (g *RPCGateway) withTimeout(ctx context.Context) (context.Context,
	context.CancelFunc) {

	if g.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.config.Timeout)
}

func (g *RPCGateway) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	out, err := g.client.GetLatestBlockhash(ctx, g.config.Commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: empty response")
	}

	g.log.Debug(
		"Fetched blockhash",
		"blockhash", out.Value.Blockhash,
		"last_valid_height", out.Value.LastValidBlockHeight,
	)

	return out.Value.Blockhash, nil
}

func (g *RPCGateway) Submit(ctx context.Context,
	tx *solana.Transaction) (solana.Signature, error) {

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	sig, err := g.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}

	return sig, nil
}

func (g *RPCGateway) SignatureStatus(ctx context.Context, sig solana.Signature,
	searchHistory bool) (*Status, error) {

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	out, err := g.client.GetSignatureStatuses(ctx, searchHistory, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get signature status: %w", err)
	}

	if len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}

	result := out.Value[0]
	if result.ConfirmationStatus == "" {
		return nil, nil
	}

	status := &Status{
		Level: string(result.ConfirmationStatus),
		Slot:  result.Slot,
	}

	if result.Err != nil {
		status.Err = formatTxError(result.Err)
	}

	return status, nil
}

func (g *RPCGateway) Balance(ctx context.Context,
	account solana.PublicKey) (uint64, error) {

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	out, err := g.client.GetBalance(ctx, account, g.config.Commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	if out == nil {
		return 0, fmt.Errorf("get balance: empty response")
	}

	return out.Value, nil
}

// Health returns nil when the node reports itself healthy.
func (g *RPCGateway) Health(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	out, err := g.client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("get health: %w", err)
	}

	if out != rpc.HealthOk {
		return fmt.Errorf("node is unhealthy: %s", out)
	}

	return nil
}

// formatTxError renders the node's structured transaction error, e.g.
// {"InstructionError":[0,{"Custom":1}]}.
func formatTxError(txErr any) string {
	data, err := json.Marshal(txErr)
	if err != nil {
		return fmt.Sprint(txErr)
	}
	return string(data)
}
