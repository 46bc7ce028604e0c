package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/openbuilders/sol-batch-sender/internal/ledger"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature(n byte) string {
	return solana.Signature{n, 0xab, 0xcd}.String()
}

func confirm(gw *fakeGateway, envelope types.ResultEnvelope) types.ResultEnvelope {
	return NewConfirmer(gw.factory(nil)).Confirm(context.Background(), envelope)
}

func TestConfirmSentWithoutStatus(t *testing.T) {
	gw := newFakeGateway()
	sig := testSignature(1)

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 2,
		Results:   []types.Outcome{types.Sent{Signature: sig}},
	})

	assert.Equal(t, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 2,
		Results: []types.Outcome{
			types.Indeterminate{Signature: sig, Details: DetailsNoStatus},
		},
	}, confirmed)
}

func TestConfirmIndeterminateBecomesFinalized(t *testing.T) {
	gw := newFakeGateway()
	sig := testSignature(2)
	gw.setStatus(sig, &ledger.Status{Level: "finalized", Slot: 42})

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 2,
		Results: []types.Outcome{
			types.Indeterminate{Signature: sig, Details: DetailsNoStatus},
		},
	})

	require.Len(t, confirmed.Results, 1)
	assert.Equal(t, types.Confirmed{Signature: sig, Status: "finalized"},
		confirmed.Results[0])
}

func TestConfirmAdvancesConfirmationLevel(t *testing.T) {
	gw := newFakeGateway()
	sig := testSignature(3)
	gw.setStatus(sig, &ledger.Status{Level: "finalized"})

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 1,
		Results: []types.Outcome{
			types.Confirmed{Signature: sig, Status: "processed"},
		},
	})

	assert.Equal(t, types.Confirmed{Signature: sig, Status: "finalized"},
		confirmed.Results[0])
}

func TestConfirmKeepsOnChainError(t *testing.T) {
	gw := newFakeGateway()
	sig := testSignature(4)
	gw.setStatus(sig, &ledger.Status{
		Level: "confirmed",
		Err:   `{"InstructionError":[0,{"Custom":1}]}`,
	})

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 1,
		Results:   []types.Outcome{types.Sent{Signature: sig}},
	})

	assert.Equal(t, types.Confirmed{
		Signature: sig,
		Status:    "confirmed",
		Err:       `{"InstructionError":[0,{"Custom":1}]}`,
	}, confirmed.Results[0])
}

func TestConfirmLeavesAbsorbingOutcomesAlone(t *testing.T) {
	gw := newFakeGateway()

	envelope := types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 2,
		Results: []types.Outcome{
			types.SendFailed{Reason: "insufficient funds"},
			types.PollFailed{Signature: "abc", Reason: ReasonInvalidSignature},
			types.SendFailed{Reason: "invalid destination address"},
		},
	}

	once := confirm(gw, envelope)
	twice := confirm(gw, once)

	assert.Equal(t, envelope, once)
	assert.Equal(t, envelope, twice)
	assert.Zero(t, gw.statusCalls)
}

func TestConfirmMalformedSignature(t *testing.T) {
	gw := newFakeGateway()

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 1,
		Results:   []types.Outcome{types.Sent{Signature: "abc"}},
	})

	assert.Equal(t, types.PollFailed{Signature: "abc", Reason: ReasonInvalidSignature},
		confirmed.Results[0])
	assert.Zero(t, gw.statusCalls)
}

func TestConfirmQueryError(t *testing.T) {
	gw := newFakeGateway()
	gw.statusErr = errors.New("get signature status: connection refused")
	sig := testSignature(5)

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 1,
		Results:   []types.Outcome{types.Sent{Signature: sig}},
	})

	assert.Equal(t, types.Indeterminate{
		Signature: sig,
		Details:   "get signature status: connection refused",
	}, confirmed.Results[0])
}

func TestConfirmSearchesHistoryAndKeepsOrder(t *testing.T) {
	gw := newFakeGateway()

	results := make([]types.Outcome, 0, 9)
	for i := byte(0); i < 9; i++ {
		sig := testSignature(i + 10)
		switch i % 3 {
		case 0:
			results = append(results, types.SendFailed{Reason: "boom"})
		case 1:
			gw.setStatus(sig, &ledger.Status{Level: "finalized"})
			results = append(results, types.Sent{Signature: sig})
		default:
			results = append(results, types.Indeterminate{
				Signature: sig, Details: DetailsNoStatus,
			})
		}
	}

	confirmed := confirm(gw, types.ResultEnvelope{
		Endpoint:  testEndpoint,
		BatchSize: 4,
		Results:   results,
	})

	require.Len(t, confirmed.Results, len(results))
	for i, o := range confirmed.Results {
		switch i % 3 {
		case 0:
			assert.Equal(t, results[i], o, "position %d", i)
		case 1:
			assert.Equal(t, types.Confirmed{
				Signature: testSignature(byte(i) + 10),
				Status:    "finalized",
			}, o, "position %d", i)
		default:
			assert.Equal(t, results[i], o, "position %d", i)
		}
	}

	assert.Equal(t, 6, gw.statusCalls)
	for _, searched := range gw.searchHistory {
		assert.True(t, searched)
	}
}

func TestDispatchThenConfirm(t *testing.T) {
	gw := newFakeGateway()
	transfers, _ := newTransfers(t, 3)

	dispatched := NewDispatcher(gw.factory(nil)).
		Dispatch(context.Background(), testEndpoint, 2, transfers)

	for _, o := range dispatched.Results {
		sig, ok := types.SignatureOf(o)
		require.True(t, ok)
		gw.setStatus(sig, &ledger.Status{Level: "confirmed"})
	}

	confirmed := confirm(gw, dispatched)

	require.Len(t, confirmed.Results, 3)
	for i, o := range confirmed.Results {
		sig, _ := types.SignatureOf(dispatched.Results[i])
		assert.Equal(t, types.Confirmed{Signature: sig, Status: "confirmed"}, o)
	}
}
