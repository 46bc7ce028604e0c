package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/repository/postgres/model"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DuplicateKeyValue string = "23505"

	TableOutcome = "transfer_outcome"
)

var (
	ErrDuplicateKeyValue = errors.New("duplicate key value")
)

const schema = `
CREATE TABLE IF NOT EXISTS transfer_outcome (
	run_id     uuid        NOT NULL,
	stage      text        NOT NULL,
	position   integer     NOT NULL,
	endpoint   text        NOT NULL,
	status     text        NOT NULL,
	signature  text,
	detail     text        NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL,
	PRIMARY KEY (run_id, stage, position)
);
CREATE INDEX IF NOT EXISTS transfer_outcome_signature_idx
	ON transfer_outcome (signature);
`

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", TableOutcome, err)
	}
	return nil
}

// PersistOutcomes copies one row per outcome of the envelope, keyed by run,
// stage and position.
func (p *Postgres) PersistOutcomes(ctx context.Context, runID uuid.UUID,
	stage string, envelope types.ResultEnvelope) error {

	if len(envelope.Results) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(envelope.Results))

	for i, outcome := range envelope.Results {
		row := model.Outcome{
			RunID:     runID,
			Stage:     stage,
			Position:  i,
			Endpoint:  envelope.Endpoint,
			Status:    string(outcome.Kind()),
			Detail:    types.Detail(outcome),
			CreatedAt: now,
		}

		if sig, ok := types.SignatureOf(outcome); ok {
			row.Signature = &sig
		}

		rows[i] = row.Values()
	}

	p.log.Debug("COPY", "table", TableOutcome, "run", runID, "rows", len(rows))

	inserted, err := p.db.CopyFrom(ctx, pgx.Identifier{TableOutcome},
		model.OutcomeColumns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == DuplicateKeyValue {
			return ErrDuplicateKeyValue
		}
		return fmt.Errorf("couldn't persist outcomes: %w", err)
	}

	if inserted != int64(len(rows)) {
		return fmt.Errorf("persist outcomes: %d of %d rows inserted",
			inserted, len(rows))
	}

	return nil
}
