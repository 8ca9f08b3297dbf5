package tonchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/circuitbreaker"
	"github.com/ryanbastic/go-nftcollection/internal/metrics"
)

var getMethodResults = map[error]string{
	circuitbreaker.ErrCircuitOpen: "breaker_open",
	chain.ErrAccountNotActive:     "not_deployed",
}

// Getter implements chain.Getter against the latest masterchain block.
// Lite-server failures trip the breaker; contract exit codes and inactive
// accounts do not.
type Getter struct {
	api     API
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewGetter wraps api with a breaker that opens after maxFailures
// consecutive transport errors.
func NewGetter(api API, maxFailures int, resetTimeout time.Duration, logger *slog.Logger) *Getter {
	return &Getter{
		api:    api,
		logger: logger,
		breaker: circuitbreaker.New(maxFailures, resetTimeout,
			circuitbreaker.WithIgnore(isContractError),
			circuitbreaker.WithStateHook(func(s circuitbreaker.State) {
				metrics.SetBreakerState(int(s))
				logger.Warn("lite-server breaker state changed", "state", s.String())
			}),
		),
	}
}

func isContractError(err error) bool {
	var exit *chain.ExitError
	return errors.As(err, &exit) || errors.Is(err, chain.ErrAccountNotActive)
}

func (g *Getter) RunGetMethod(ctx context.Context, addr *address.Address, method string, args ...any) (chain.Stack, error) {
	start := time.Now()
	var st chain.Stack
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		st, err = g.run(ctx, addr, method, args)
		return err
	})
	metrics.ObserveGetMethod(method, start, err, getMethodResults)
	if err != nil {
		g.logger.Debug("get method failed", "address", addr.String(), "method", method, "error", err)
		return nil, err
	}
	return st, nil
}

func (g *Getter) run(ctx context.Context, addr *address.Address, method string, args []any) (chain.Stack, error) {
	block, err := g.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("masterchain info: %w", err)
	}

	res, err := g.api.RunGetMethod(ctx, block, addr, method, args...)
	if err == nil {
		return chain.Stack(res.AsTuple()), nil
	}

	var execErr ton.ContractExecError
	if errors.As(err, &execErr) {
		return nil, &chain.ExitError{Method: method, Code: execErr.Code}
	}
	var execPtr *ton.ContractExecError
	if errors.As(err, &execPtr) {
		return nil, &chain.ExitError{Method: method, Code: execPtr.Code}
	}

	// Lite-servers report a missing contract as a generic failure; tell it
	// apart by looking at the account.
	acc, accErr := g.api.GetAccount(ctx, block, addr)
	if accErr == nil && !acc.IsActive {
		return nil, fmt.Errorf("run %s on %s: %w", method, addr, chain.ErrAccountNotActive)
	}
	return nil, fmt.Errorf("run %s on %s: %w", method, addr, err)
}

// State reports the breaker state, for readiness checks.
func (g *Getter) State() circuitbreaker.State {
	return g.breaker.GetState()
}
