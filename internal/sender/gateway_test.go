package sender

import (
	"context"
	"errors"
	"sync"

	"github.com/openbuilders/sol-batch-sender/internal/ledger"

	"github.com/gagliardetto/solana-go"
)

// fakeGateway hands out blockhash N+1 on the Nth LatestBlockhash call, so a
// transaction's blockhash tells which batch signed it.
type fakeGateway struct {
	mu sync.Mutex

	blockhashErrs  map[int]error
	blockhashCalls int

	submitErr error
	submitted map[solana.Signature]*solana.Transaction

	statuses      map[solana.Signature]*ledger.Status
	statusErr     error
	statusCalls   int
	searchHistory []bool

	balances   map[solana.PublicKey]uint64
	balanceErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		blockhashErrs: map[int]error{},
		submitted:     map[solana.Signature]*solana.Transaction{},
		statuses:      map[solana.Signature]*ledger.Status{},
		balances:      map[solana.PublicKey]uint64{},
	}
}

func (f *fakeGateway) factory(endpoints *[]string) GatewayFactory {
	return func(endpoint string) ledger.Gateway {
		if endpoints != nil {
			*endpoints = append(*endpoints, endpoint)
		}
		return f
	}
}

func (f *fakeGateway) LatestBlockhash(context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.blockhashCalls
	f.blockhashCalls++

	if err := f.blockhashErrs[n]; err != nil {
		return solana.Hash{}, err
	}

	return solana.Hash{byte(n + 1)}, nil
}

func (f *fakeGateway) Submit(_ context.Context,
	tx *solana.Transaction) (solana.Signature, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}

	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("unsigned transaction")
	}

	f.submitted[tx.Signatures[0]] = tx

	return tx.Signatures[0], nil
}

func (f *fakeGateway) SignatureStatus(_ context.Context, sig solana.Signature,
	searchHistory bool) (*ledger.Status, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	f.statusCalls++
	f.searchHistory = append(f.searchHistory, searchHistory)

	if f.statusErr != nil {
		return nil, f.statusErr
	}

	return f.statuses[sig], nil
}

func (f *fakeGateway) Balance(_ context.Context,
	account solana.PublicKey) (uint64, error) {

	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balances[account], nil
}

func (f *fakeGateway) setStatus(sig string, status *ledger.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statuses[solana.MustSignatureFromBase58(sig)] = status
}
