package main

import (
	"context"
	"log"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/balance"
	"github.com/openbuilders/sol-batch-sender/internal/env"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func main() {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		log.Fatalln("keypair err:", err.Error())
	}

	// SOURCE_CREDENTIAL for the watcher or source_credential in a job
	log.Println("secret key:", key.String())
	log.Println("address:", key.PublicKey().String())

	rpcURL := env.GetString("RPC_URL", "")
	if rpcURL == "" {
		return
	}

	// fund it on devnet with: solana airdrop 1 <address> --url devnet
	gateway := ledger.NewRPCGateway(&ledger.Config{
		Endpoint:   rpcURL,
		Commitment: rpc.CommitmentConfirmed,
		Timeout:    10 * time.Second,
	})

	lamports, err := gateway.Balance(context.Background(), key.PublicKey())
	if err != nil {
		log.Fatalln("balance err:", err.Error())
	}

	log.Println("balance:", lamports, "lamports", balance.SOL(lamports).String(), "SOL")
}
