package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbuilders/sol-batch-sender/internal/types"
)

// Sender runs one job: a dispatch job is submitted, a results job is
// re-confirmed. Either way the output is a results job.
type Sender struct {
	dispatcher *Dispatcher
	confirmer  *Confirmer
	log        *slog.Logger
}

func New(newGateway GatewayFactory) *Sender {
	return &Sender{
		dispatcher: NewDispatcher(newGateway),
		confirmer:  NewConfirmer(newGateway),
		log:        slog.With("component", "sender"),
	}
}

func (s *Sender) Run(ctx context.Context, job *types.Job) (*types.Job, error) {
	if job == nil || (job.Dispatch == nil && job.Results == nil) {
		return nil, fmt.Errorf("empty job")
	}

	s.log.Info("Running job", "type", job.Type(), "items", job.Len())

	var envelope types.ResultEnvelope

	switch job.Type() {
	case types.JobDispatch:
		req := job.Dispatch
		envelope = s.dispatcher.Dispatch(ctx, req.Endpoint, req.BatchSize,
			req.Transfers)
	case types.JobResults:
		envelope = s.confirmer.Confirm(ctx, *job.Results)
	}

	s.log.Info("Job finished", "type", job.Type(), "counts", envelope.Counts())

	return types.NewResultsJob(envelope), nil
}
