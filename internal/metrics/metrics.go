package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "transfer_pipeline"

var (
	Outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_total",
		Help:      "Outcomes recorded per stage and status.",
	}, []string{"stage", "status"})

	SubmissionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "submission_duration_seconds",
		Help:      "Latency of accepted sendTransaction calls.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Time for a whole batch to settle.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"stage"})

	BatchItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_items_total",
		Help:      "Items processed in batches per stage.",
	}, []string{"stage"})

	BlockhashFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blockhash_failures_total",
		Help:      "Batches failed because no blockhash could be fetched.",
	})

	WatcherTransfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watcher_transfers_total",
		Help:      "Slot triggered transfers per outcome status.",
	}, []string{"status"})

	WatcherReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watcher_reconnects_total",
		Help:      "Slot subscription failures followed by a resubscribe.",
	})
)

// Registry holds the collectors above only, so pushes do not carry process
// metrics of a short lived job.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		Outcomes,
		SubmissionDuration,
		BatchDuration,
		BatchItems,
		BlockhashFailures,
		WatcherTransfers,
		WatcherReconnects,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveBatch matches the batcher OnBatch hook.
func ObserveBatch(stage string, size int, elapsed time.Duration) {
	BatchDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	BatchItems.WithLabelValues(stage).Add(float64(size))
}

func RecordEnvelope(stage string, envelope types.ResultEnvelope) {
	for kind, count := range envelope.Counts() {
		Outcomes.WithLabelValues(stage, string(kind)).Add(float64(count))
	}
}

// PushJob is the push gateway job the pipeline runs report under.
const PushJob = "transfer_pipeline"

// PushInstance pushes the registry grouped by instance only. Grouping labels
// must not appear on any collector, so stage stays a metric label.
func PushInstance(url, instance string) error {
	return Push(url, PushJob, map[string]string{"instance": instance})
}

// Push sends the registry to a Prometheus push gateway under the given job
// name and grouping labels.
func Push(url, job string, grouping map[string]string) error {
	pusher := push.New(url, job).Gatherer(Registry)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}

	if err := pusher.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}

	return nil
}
