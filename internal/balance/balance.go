package balance

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/openbuilders/sol-batch-sender/internal/batcher"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/metrics"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const (
	StageBalance = "balance"

	lamportsDecimals = 9
)

type Balance struct {
	Address  string
	Lamports uint64
	Err      error
}

// SOL converts lamports to SOL without rounding.
func SOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -lamportsDecimals)
}

func (b Balance) String() string {
	if b.Err != nil {
		return fmt.Sprintf("%s: error: %v", b.Address, b.Err)
	}
	return fmt.Sprintf("%s: %d lamports (%s SOL)", b.Address, b.Lamports,
		SOL(b.Lamports).String())
}

// Reader fetches balances batch by batch, concurrently within a batch. Each
// address is queried once.
type Reader struct {
	gateway   ledger.Gateway
	batchSize int
	log       *slog.Logger
}

func NewReader(gateway ledger.Gateway, batchSize int) *Reader {
	return &Reader{
		gateway:   gateway,
		batchSize: batchSize,
		log:       slog.With("component", "balance-reader"),
	}
}

// Read returns one Balance per address, in input order.
func (r *Reader) Read(ctx context.Context, addresses []string) []Balance {
	b := batcher.New[string, Balance](&batcher.Config{
		BatchSize: r.batchSize,
		Stage:     StageBalance,
		OnBatch:   metrics.ObserveBatch,
	})

	return b.Run(ctx, addresses,
		func(ctx context.Context, _ int, batch []string) []Balance {
			return batcher.FanOut(ctx, batch, r.read)
		})
}

func (r *Reader) read(ctx context.Context, address string) Balance {
	account, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return Balance{Address: address, Err: fmt.Errorf("invalid address: %w", err)}
	}

	lamports, err := r.gateway.Balance(ctx, account)
	if err != nil {
		r.log.Error("couldn't fetch balance", "address", address, "error", err)
		return Balance{Address: address, Err: err}
	}

	return Balance{Address: address, Lamports: lamports}
}
