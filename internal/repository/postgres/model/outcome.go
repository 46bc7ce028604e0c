package model

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is one row of transfer_outcome: the result of one transfer at one
// stage of one run.
type Outcome struct {
	RunID     uuid.UUID `db:"run_id"`
	Stage     string    `db:"stage"`
	Position  int       `db:"position"`
	Endpoint  string    `db:"endpoint"`
	Status    string    `db:"status"`
	Signature *string   `db:"signature"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

var OutcomeColumns = []string{
	"run_id", "stage", "position", "endpoint", "status", "signature",
	"detail", "created_at",
}

func (o Outcome) Values() []any {
	return []any{
		o.RunID, o.Stage, o.Position, o.Endpoint, o.Status, o.Signature,
		o.Detail, o.CreatedAt,
	}
}
