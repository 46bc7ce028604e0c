package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	// Maximum number of items processed concurrently. Values below 1 are
	// treated as 1.
	BatchSize int
	// Name of the stage, used in logs and metrics.
	Stage string
	// Optional hook called after each batch settles.
	OnBatch func(stage string, size int, elapsed time.Duration)
}

// BatchFunc processes one batch and must return exactly one result per item,
// in the same order.
type BatchFunc[T, R any] func(ctx context.Context, index int, batch []T) []R

// Batcher splits items into contiguous batches, processes the batches one
// after another and concatenates their results. Output order always equals
// input order.
type Batcher[T, R any] struct {
	config *Config
	log    *slog.Logger
}

func New[T, R any](config *Config) *Batcher[T, R] {
	return &Batcher[T, R]{
		config: config,
		log:    slog.With("component", "batcher", "stage", config.Stage),
	}
}

func (b *Batcher[T, R]) Run(ctx context.Context, items []T,
	handle BatchFunc[T, R]) []R {

	batches := Split(items, b.config.BatchSize)
	results := make([]R, 0, len(items))

	for i, batch := range batches {
		b.log.Debug(
			"Processing batch",
			"batch", i+1,
			"of", len(batches),
			"size", len(batch),
		)

		start := time.Now()
		out := handle(ctx, i, batch)
		if len(out) != len(batch) {
			panic(fmt.Sprintf("batch %d: got %d results for %d items",
				i, len(out), len(batch)))
		}

		if b.config.OnBatch != nil {
			b.config.OnBatch(b.config.Stage, len(batch), time.Since(start))
		}

		results = append(results, out...)
	}

	return results
}

// Split partitions items into contiguous groups of at most size elements.
func Split[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}

	return batches
}

// FanOut calls fn for every item concurrently and waits for all of them.
// Results are stored by position, not by completion order.
func FanOut[T, R any](ctx context.Context, items []T,
	fn func(ctx context.Context, item T) R) []R {

	results := make([]R, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
