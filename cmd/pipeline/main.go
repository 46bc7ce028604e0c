package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/config"
	"github.com/openbuilders/sol-batch-sender/internal/env"
	"github.com/openbuilders/sol-batch-sender/internal/job"
	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/lock"
	"github.com/openbuilders/sol-batch-sender/internal/log"
	"github.com/openbuilders/sol-batch-sender/internal/metrics"
	"github.com/openbuilders/sol-batch-sender/internal/notifier"
	"github.com/openbuilders/sol-batch-sender/internal/queue"
	"github.com/openbuilders/sol-batch-sender/internal/repository/postgres"
	"github.com/openbuilders/sol-batch-sender/internal/sender"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

func main() {
	os.Exit(run())
}

// run reads the job at INPUT, processes it and writes the resulting job to
// OUTPUT. Audit, notification and metric sinks run after the output is
// written and never change the exit code.
func run() int {
	log.Setup(env.GetString("LOG_LEVEL", "INFO"))

	cfg, err := config.LoadPipeline()
	if err != nil {
		slog.Error("couldn't load config", "error", err)
		return 1
	}

	ctx := context.Background()
	runID := uuid.New()
	logger := slog.With("run", runID)

	data, err := job.Read(cfg.Input)
	if err != nil {
		logger.Error("couldn't read job", "input", cfg.Input, "error", err)
		return 1
	}

	input, err := job.Decode(data)
	if err != nil {
		logger.Error("couldn't decode job", "input", cfg.Input, "error", err)
		return 1
	}

	if cfg.RedisURL != "" {
		release, err := acquireLock(ctx, cfg, data)
		if err != nil {
			logger.Error("couldn't acquire run lock", "error", err)
			return 1
		}
		defer release()
	}

	s := sender.New(func(endpoint string) ledger.Gateway {
		return ledger.NewRPCGateway(&ledger.Config{
			Endpoint:   endpoint,
			Commitment: cfg.Commitment,
			Timeout:    cfg.RPCTimeout,
		})
	})

	stage := sender.StageDispatch
	if input.Type() == types.JobResults {
		stage = sender.StageConfirm
	}

	output, err := s.Run(ctx, input)
	if err != nil {
		logger.Error("job failed", "error", err)
		return 1
	}

	if err := job.Save(cfg.Output, output); err != nil {
		logger.Error("couldn't write job", "output", cfg.Output, "error", err)
		return 1
	}

	logger.Info(
		"Job written",
		"output", cfg.Output,
		"stage", stage,
		"counts", output.Results.Counts(),
	)

	persist(ctx, cfg, runID, stage, *output.Results)
	notify(ctx, cfg, runID, stage, *output.Results)
	pushMetrics(cfg)

	return 0
}

func acquireLock(ctx context.Context, cfg *config.Pipeline,
	document []byte) (func(), error) {

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	locker := lock.New(client, &lock.Config{
		Prefix: cfg.LockPrefix,
		TTL:    cfg.LockTTL,
	})

	lease, err := locker.Acquire(ctx, locker.Key(document))
	if err != nil {
		client.Close()
		return nil, err
	}

	return func() {
		if err := lease.Release(ctx); err != nil {
			slog.Error("couldn't release run lock", "error", err)
		}
		client.Close()
	}, nil
}

func persist(ctx context.Context, cfg *config.Pipeline, runID uuid.UUID,
	stage string, envelope types.ResultEnvelope) {

	if cfg.PostgresURL == "" {
		return
	}

	slog.Info("Connecting to Postgres...")

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("connect to Postgres", "error", err)
		return
	}
	defer pool.Close()

	pg := postgres.New(pool, time.Second)

	if err := pg.Ping(ctx); err != nil {
		slog.Error("check Postgres connection", "error", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()

	if err := pg.EnsureSchema(ctxWithTimeout); err != nil {
		slog.Error("couldn't prepare audit table", "error", err)
		return
	}

	if err := pg.PersistOutcomes(ctxWithTimeout, runID, stage, envelope); err != nil {
		slog.Error("couldn't persist outcomes", "error", err)
	}
}

func notify(ctx context.Context, cfg *config.Pipeline, runID uuid.UUID,
	stage string, envelope types.ResultEnvelope) {

	if cfg.RabbitURL == "" {
		return
	}

	rabbit := queue.New(&queue.Config{
		URL:            cfg.RabbitURL,
		ConnectTimeout: 5 * time.Second,
	})

	if err := rabbit.Connect(ctx); err != nil {
		slog.Error("connect to RabbitMQ", "error", err)
		return
	}
	defer rabbit.Close()

	n := notifier.New(&notifier.Config{Queue: cfg.NotifyQueue}, rabbit)

	sent, err := n.NotifyEnvelope(ctx, runID.String(), stage, envelope)
	if err != nil {
		slog.Error("couldn't send notifications", "sent", sent, "error", err)
	}
}

func pushMetrics(cfg *config.Pipeline) {
	if cfg.PushgatewayURL == "" {
		return
	}

	if err := metrics.PushInstance(cfg.PushgatewayURL, getInstanceID(cfg)); err != nil {
		slog.Error("couldn't push metrics", "error", err)
	}
}

func getInstanceID(cfg *config.Pipeline) string {
	if cfg.PodName != "" {
		return cfg.PodName
	}

	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}

	return "unknown"
}
