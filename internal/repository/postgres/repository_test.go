package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	pingErrs []error
	pings    int
	execs    []string
	table    pgx.Identifier
	columns  []string
	rows     [][]any
	copyErr  error
}

func (f *fakeDB) Ping(context.Context) error {
	f.pings++
	if len(f.pingErrs) == 0 {
		return nil
	}

	err := f.pingErrs[0]
	f.pingErrs = f.pingErrs[1:]

	return err
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, columns []string,
	src pgx.CopyFromSource) (int64, error) {

	if f.copyErr != nil {
		return 0, f.copyErr
	}

	f.table = table
	f.columns = columns

	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, values)
	}

	return int64(len(f.rows)), src.Err()
}

func TestPersistOutcomes(t *testing.T) {
	db := &fakeDB{}
	runID := uuid.New()

	err := New(db, time.Second).PersistOutcomes(context.Background(), runID,
		"confirm", types.ResultEnvelope{
			Endpoint:  "http://localhost:8899",
			BatchSize: 2,
			Results: []types.Outcome{
				types.Confirmed{Signature: "abc", Status: "finalized"},
				types.SendFailed{Reason: "insufficient funds"},
			},
		})
	require.NoError(t, err)

	assert.Equal(t, pgx.Identifier{TableOutcome}, db.table)
	require.Len(t, db.rows, 2)

	sig := "abc"
	assert.Equal(t, []any{runID, "confirm", 0, "http://localhost:8899",
		"confirmed", &sig, "finalized"}, db.rows[0][:7])
	assert.Equal(t, []any{runID, "confirm", 1, "http://localhost:8899",
		"send_failed", (*string)(nil), "insufficient funds"}, db.rows[1][:7])
	assert.IsType(t, time.Time{}, db.rows[0][7])
}

func TestPersistOutcomesEmptyEnvelope(t *testing.T) {
	db := &fakeDB{}

	err := New(db, time.Second).PersistOutcomes(context.Background(),
		uuid.New(), "dispatch", types.ResultEnvelope{})
	require.NoError(t, err)
	assert.Nil(t, db.table)
}

func TestPersistOutcomesDuplicate(t *testing.T) {
	db := &fakeDB{copyErr: &pgconn.PgError{Code: DuplicateKeyValue}}

	err := New(db, time.Second).PersistOutcomes(context.Background(),
		uuid.New(), "dispatch", types.ResultEnvelope{
			Results: []types.Outcome{types.SendFailed{Reason: "x"}},
		})
	assert.ErrorIs(t, err, ErrDuplicateKeyValue)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}

	require.NoError(t, New(db, time.Second).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS transfer_outcome")
}

func TestPingRetries(t *testing.T) {
	db := &fakeDB{pingErrs: []error{errors.New("refused"), errors.New("refused")}}

	require.NoError(t, New(db, 20*time.Millisecond).Ping(context.Background()))
	assert.Equal(t, 3, db.pings)
}

func TestPingGivesUp(t *testing.T) {
	refused := errors.New("refused")
	db := &fakeDB{pingErrs: []error{refused, refused, refused, nil}}

	err := New(db, 20*time.Millisecond).Ping(context.Background())
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, 3, db.pings)
}
