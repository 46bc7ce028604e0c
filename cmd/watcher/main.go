package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/api"
	"github.com/openbuilders/sol-batch-sender/internal/config"
	"github.com/openbuilders/sol-batch-sender/internal/env"
	"github.com/openbuilders/sol-batch-sender/internal/health"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/log"
	"github.com/openbuilders/sol-batch-sender/internal/notifier"
	"github.com/openbuilders/sol-batch-sender/internal/queue"
	"github.com/openbuilders/sol-batch-sender/internal/sender"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Setup(env.GetString("LOG_LEVEL", "INFO"))

	cfg, err := config.LoadWatcher()
	if err != nil {
		slog.Error("couldn't load config", "error", err)
		os.Exit(1)
	}

	// create the context and register signals that could cause its
	// cancellation and graceful shutdown
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	instanceID := getInstanceID(cfg)

	gateway := ledger.NewRPCGateway(&ledger.Config{
		Endpoint:   cfg.RPCURL,
		Commitment: cfg.Commitment,
		Timeout:    cfg.RPCTimeout,
	})

	slog.Info("Checking the RPC node...", "endpoint", cfg.RPCURL)

	if err := gateway.Health(ctx); err != nil {
		slog.Error("RPC node is not healthy", "error", err)
		os.Exit(1)
	}

	errGroup, ctx := errgroup.WithContext(ctx)

	var onOutcome func(context.Context, uint64, types.Outcome)

	if cfg.RabbitURL != "" {
		rabbit := queue.New(&queue.Config{
			URL:               cfg.RabbitURL,
			ReconnectInterval: cfg.ReconnectInterval,
			ConnectTimeout:    5 * time.Second,
		})

		errGroup.Go(func() error {
			return rabbit.Start(ctx)
		})

		n := notifier.New(&notifier.Config{Queue: cfg.NotifyQueue}, rabbit)
		onOutcome = func(ctx context.Context, slot uint64, outcome types.Outcome) {
			if err := n.NotifySlot(ctx, instanceID, slot, outcome); err != nil {
				slog.Error("couldn't send notification", "slot", slot, "error", err)
			}
		}
	}

	dispatcher := sender.NewDispatcher(func(string) ledger.Gateway {
		return gateway
	})

	watcher := sender.NewWatcher(&sender.WatcherConfig{
		Endpoint: cfg.RPCURL,
		Transfer: types.Transfer{
			SourceCredential: cfg.SourceCredential,
			Destination:      cfg.Destination,
			Amount:           cfg.Amount,
		},
		ReconnectInterval: cfg.ReconnectInterval,
		OnOutcome:         onOutcome,
	}, ledger.NewWSSubscriber(cfg.WSURL), dispatcher)

	checker := health.NewChecker(&health.Config{
		CheckInterval: cfg.HealthInterval,
		CheckTimeout:  cfg.RPCTimeout,
		ID:            instanceID,
	})

	checker.Register(health.ComponentLedger, gateway.Health)
	checker.Register(health.ComponentSlots, health.Freshness(cfg.SlotMaxAge,
		time.Now(), func() time.Time {
			_, seen := watcher.LastSlot()
			return seen
		}))

	server := api.NewServer(&api.Config{
		MetricsPort:  cfg.MetricsPort,
		ProbesPort:   cfg.ProbesPort,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
		ID:           instanceID,
	}, checker)

	errGroup.Go(func() error {
		checker.Run(ctx)
		return nil
	})

	errGroup.Go(func() error {
		return server.Start(ctx)
	})

	errGroup.Go(func() error {
		server.SetReady(true)
		defer server.SetReady(false)

		err := watcher.Run(ctx)
		if err != nil {
			slog.Error("Watcher exited with an error", "error", err)
			return err
		}

		return nil
	})

	if err := errGroup.Wait(); err != nil {
		slog.Error("watcher exited with an error", "error", err)
		os.Exit(1)
	}
}

func getInstanceID(cfg *config.Watcher) string {
	if cfg.PodName != "" {
		return cfg.PodName
	}

	return uuid.NewString()
}
