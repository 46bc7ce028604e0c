package types

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsJob = `{
  "type": "results",
  "data": {
    "endpoint": "https://api.devnet.solana.com",
    "batch_size": 2,
    "results": [
      {"status": "sent", "data": {"signature": "abc", "elapsed": "1.5s"}},
      {"status": "send_failed", "data": {"reason": "insufficient funds"}},
      {"status": "confirmed", "data": {"signature": "def", "status": "finalized"}},
      {"status": "indeterminate", "data": {"signature": "ghi", "details": "no status"}},
      {"status": "poll_failed", "data": {"signature": "???", "reason": "invalid signature"}}
    ]
  }
}`

func TestJobDecodesEveryOutcomeInOrder(t *testing.T) {
	var job Job
	require.NoError(t, json.Unmarshal([]byte(resultsJob), &job))

	require.Equal(t, JobResults, job.Type())
	require.Nil(t, job.Dispatch)
	assert.Equal(t, "https://api.devnet.solana.com", job.Results.Endpoint)
	assert.Equal(t, 2, job.Results.BatchSize)

	assert.Equal(t, []Outcome{
		Sent{Signature: "abc", Elapsed: Duration(1500 * time.Millisecond)},
		SendFailed{Reason: "insufficient funds"},
		Confirmed{Signature: "def", Status: "finalized"},
		Indeterminate{Signature: "ghi", Details: "no status"},
		PollFailed{Signature: "???", Reason: "invalid signature"},
	}, job.Results.Results)
}

func TestJobEncodingIsStable(t *testing.T) {
	var job Job
	require.NoError(t, json.Unmarshal([]byte(resultsJob), &job))

	encoded, err := json.Marshal(job)
	require.NoError(t, err)

	var again Job
	require.NoError(t, json.Unmarshal(encoded, &again))
	assert.Equal(t, job, again)
}

func TestDispatchJob(t *testing.T) {
	job := NewDispatchJob(DispatchRequest{
		Endpoint:  "http://localhost:8899",
		BatchSize: 10,
		Transfers: []Transfer{{SourceCredential: "key", Destination: "dest", Amount: 5000}},
	})

	encoded, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"dispatch","data":{"endpoint":"http://localhost:8899","batch_size":10,`+
		`"transfers":[{"source_credential":"key","destination":"dest","amount":5000}]}}`, string(encoded))
	assert.Equal(t, 1, job.Len())
}

func TestUnmarshalOutcomeErrors(t *testing.T) {
	_, err := UnmarshalOutcome([]byte(`{"status":"lost","data":{}}`))
	assert.ErrorContains(t, err, `unknown outcome status "lost"`)

	_, err = UnmarshalOutcome([]byte(`{"status":"sent"}`))
	assert.ErrorContains(t, err, "missing data")
}

func TestMarshalNilOutcome(t *testing.T) {
	_, err := json.Marshal(ResultEnvelope{Results: []Outcome{nil}})
	assert.ErrorContains(t, err, "result 0: nil outcome")
}

func TestUnknownJobType(t *testing.T) {
	var job Job
	err := json.Unmarshal([]byte(`{"type":"refund","data":{}}`), &job)
	assert.ErrorContains(t, err, `unknown job type "refund"`)
}

func TestDurationAcceptsSeconds(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`0.25`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Std())

	assert.Error(t, json.Unmarshal([]byte(`"later"`), &d))
}

func TestSignatureOf(t *testing.T) {
	sig, ok := SignatureOf(Indeterminate{Signature: "abc"})
	assert.True(t, ok)
	assert.Equal(t, "abc", sig)

	_, ok = SignatureOf(SendFailed{Reason: "x"})
	assert.False(t, ok)

	assert.True(t, IsAbsorbing(SendFailed{}))
	assert.True(t, IsAbsorbing(PollFailed{}))
	assert.False(t, IsAbsorbing(Confirmed{}))
}

func TestCounts(t *testing.T) {
	envelope := ResultEnvelope{Results: []Outcome{
		Sent{Signature: "a"}, Sent{Signature: "b"}, SendFailed{Reason: "c"},
	}}

	assert.Equal(t, map[Kind]int{KindSent: 2, KindSendFailed: 1}, envelope.Counts())
}

func TestTransferLogValueHidesCredential(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("transfer", "transfer", Transfer{
		SourceCredential: "super-secret-key",
		Destination:      "dest",
		Amount:           1,
	})

	assert.NotContains(t, buf.String(), "super-secret-key")
	assert.Contains(t, buf.String(), `"destination":"dest"`)
}
