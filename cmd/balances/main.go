package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/balance"
	"github.com/openbuilders/sol-batch-sender/internal/config"
	"github.com/openbuilders/sol-batch-sender/internal/env"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/log"

	"github.com/gagliardetto/solana-go/rpc"
)

// Prints the balance of every wallet listed in the YAML file at CONFIG.
func main() {
	log.Setup(env.GetString("LOG_LEVEL", "WARN"))

	path := env.GetString("CONFIG", "")
	if path == "" {
		slog.Error("CONFIG is not set")
		os.Exit(1)
	}

	cfg, err := config.LoadBalances(path)
	if err != nil {
		slog.Error("couldn't load config", "error", err)
		os.Exit(1)
	}

	gateway := ledger.NewRPCGateway(&ledger.Config{
		Endpoint:   cfg.RPCURL,
		Commitment: rpc.CommitmentFinalized,
		Timeout:    env.GetDuration("RPC_TIMEOUT", 30*time.Second),
	})

	reader := balance.NewReader(gateway, cfg.BatchSize)

	for _, b := range reader.Read(context.Background(), cfg.Wallets) {
		fmt.Println(b)
	}
}
