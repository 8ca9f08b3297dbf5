package tonchain

import (
	"context"
	"sync"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
)

// fakeAPI scripts lite-server responses.
type fakeAPI struct {
	mu sync.Mutex

	infoErr   error
	result    []any
	runErr    error
	active    []bool // successive GetAccount answers; the last one repeats
	accErr    error
	runCalls  int
	accCalls  int
	lastArgs  []any
	lastBlock *ton.BlockIDExt
}

func (f *fakeAPI) CurrentMasterchainInfo(context.Context) (*ton.BlockIDExt, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &ton.BlockIDExt{Workchain: -1, SeqNo: 42}, nil
}

func (f *fakeAPI) RunGetMethod(_ context.Context, block *ton.BlockIDExt, _ *address.Address, _ string, params ...any) (*ton.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	f.lastArgs = params
	f.lastBlock = block
	if f.runErr != nil {
		return nil, f.runErr
	}
	return ton.NewExecutionResult(f.result), nil
}

func (f *fakeAPI) GetAccount(context.Context, *ton.BlockIDExt, *address.Address) (*tlb.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accCalls++
	if f.accErr != nil {
		return nil, f.accErr
	}
	active := false
	if len(f.active) > 0 {
		i := min(f.accCalls, len(f.active)) - 1
		active = f.active[i]
	}
	return &tlb.Account{IsActive: active}, nil
}

func testAddr() *address.Address {
	return address.NewAddress(0, 0, make([]byte, 32))
}
