package balance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openbuilders/sol-batch-sender/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	ledger.Gateway

	mu       sync.Mutex
	balances map[solana.PublicKey]uint64
	failing  map[solana.PublicKey]error
	queried  []solana.PublicKey
}

func (f *fakeGateway) Balance(_ context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queried = append(f.queried, account)

	if err := f.failing[account]; err != nil {
		return 0, err
	}
	return f.balances[account], nil
}

func newAddress(t *testing.T) solana.PublicKey {
	t.Helper()

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	return key.PublicKey()
}

func TestSOL(t *testing.T) {
	assert.Equal(t, "1.5", SOL(1_500_000_000).String())
	assert.Equal(t, "0.000000001", SOL(1).String())
	assert.Equal(t, "0", SOL(0).String())
	assert.Equal(t, "18446744073.709551615", SOL(^uint64(0)).String())
}

func TestBalanceString(t *testing.T) {
	assert.Equal(t, "addr: 2500000000 lamports (2.5 SOL)",
		Balance{Address: "addr", Lamports: 2_500_000_000}.String())
	assert.Equal(t, "addr: error: timeout",
		Balance{Address: "addr", Err: errors.New("timeout")}.String())
}

func TestReadKeepsOrderAndIsolatesFailures(t *testing.T) {
	a, b, c := newAddress(t), newAddress(t), newAddress(t)

	gw := &fakeGateway{
		balances: map[solana.PublicKey]uint64{a: 1, c: 3},
		failing:  map[solana.PublicKey]error{b: errors.New("get balance: 429 too many requests")},
	}

	balances := NewReader(gw, 2).Read(context.Background(),
		[]string{a.String(), b.String(), "not an address", c.String()})

	require.Len(t, balances, 4)
	assert.Equal(t, Balance{Address: a.String(), Lamports: 1}, balances[0])
	assert.Equal(t, b.String(), balances[1].Address)
	assert.EqualError(t, balances[1].Err, "get balance: 429 too many requests")
	assert.ErrorContains(t, balances[2].Err, "invalid address")
	assert.Equal(t, Balance{Address: c.String(), Lamports: 3}, balances[3])

	assert.Len(t, gw.queried, 3, "every valid address is queried exactly once")
}
