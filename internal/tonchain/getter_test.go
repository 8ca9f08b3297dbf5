package tonchain

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/xssnick/tonutils-go/ton"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/circuitbreaker"
)

var errLiteServer = errors.New("adnl: connection reset")

func newGetter(api API, maxFailures int) *Getter {
	return NewGetter(api, maxFailures, time.Hour, slog.New(slog.DiscardHandler))
}

func TestGetter_RunGetMethod(t *testing.T) {
	api := &fakeAPI{result: []any{big.NewInt(3), nil}}
	g := newGetter(api, 3)

	st, err := g.RunGetMethod(context.Background(), testAddr(), "get_nft_address_by_index", big.NewInt(1))
	if err != nil {
		t.Fatalf("RunGetMethod: %v", err)
	}
	n, err := st.Int(0)
	if err != nil || n.Int64() != 3 {
		t.Errorf("stack[0] = %v, %v", n, err)
	}
	if len(api.lastArgs) != 1 || api.lastArgs[0].(*big.Int).Int64() != 1 {
		t.Errorf("args not forwarded: %v", api.lastArgs)
	}
	if api.lastBlock == nil || api.lastBlock.SeqNo != 42 {
		t.Errorf("expected the current masterchain block, got %+v", api.lastBlock)
	}
}

func TestGetter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		api       *fakeAPI
		wantExit  int32
		wantErrIs error
	}{
		{"exit code", &fakeAPI{runErr: ton.ContractExecError{Code: 11}}, 11, nil},
		{"inactive account", &fakeAPI{runErr: errLiteServer, active: []bool{false}}, 0, chain.ErrAccountNotActive},
		{"transport failure", &fakeAPI{runErr: errLiteServer, active: []bool{true}}, 0, errLiteServer},
		{"masterchain info failure", &fakeAPI{infoErr: errLiteServer}, 0, errLiteServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGetter(tt.api, 5).RunGetMethod(context.Background(), testAddr(), "get_collection_data")
			if tt.wantExit != 0 {
				var exit *chain.ExitError
				if !errors.As(err, &exit) || exit.Code != tt.wantExit {
					t.Fatalf("expected exit code %d, got %v", tt.wantExit, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErrIs) {
				t.Errorf("got %v, want %v", err, tt.wantErrIs)
			}
		})
	}
}

func TestGetter_BreakerOpensOnTransportErrors(t *testing.T) {
	api := &fakeAPI{runErr: errLiteServer, accErr: errLiteServer}
	g := newGetter(api, 2)

	for range 2 {
		g.RunGetMethod(context.Background(), testAddr(), "get_collection_data")
	}
	if g.State() != circuitbreaker.Open {
		t.Fatalf("state = %s, want open", g.State())
	}

	calls := api.runCalls
	_, err := g.RunGetMethod(context.Background(), testAddr(), "get_collection_data")
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if api.runCalls != calls {
		t.Error("open breaker must not reach the lite-server")
	}
}

func TestGetter_ContractErrorsDoNotTripBreaker(t *testing.T) {
	g := newGetter(&fakeAPI{runErr: ton.ContractExecError{Code: 402}}, 1)
	for range 3 {
		g.RunGetMethod(context.Background(), testAddr(), "get_nft_address_by_index")
	}
	if g.State() != circuitbreaker.Closed {
		t.Errorf("state = %s, want closed", g.State())
	}

	g = newGetter(&fakeAPI{runErr: errLiteServer, active: []bool{false}}, 1)
	g.RunGetMethod(context.Background(), testAddr(), "get_collection_data")
	if g.State() != circuitbreaker.Closed {
		t.Errorf("inactive account tripped the breaker: %s", g.State())
	}
}
