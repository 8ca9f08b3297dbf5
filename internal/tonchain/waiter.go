package tonchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xssnick/tonutils-go/address"
)

var ErrDeployTimeout = errors.New("contract was not deployed in time")

// DefaultPollInterval replaces a non-positive interval passed to NewWaiter.
const DefaultPollInterval = 2 * time.Second

// Waiter implements chain.DeployWaiter by polling the account state.
type Waiter struct {
	api      API
	interval time.Duration
	attempts int
	logger   *slog.Logger
}

// NewWaiter polls every interval, at most attempts times. The account is
// always checked at least once.
func NewWaiter(api API, interval time.Duration, attempts int, logger *slog.Logger) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Waiter{api: api, interval: interval, attempts: attempts, logger: logger}
}

// WaitForDeploy checks addr once per interval until it is active. Transient
// lite-server errors count as a failed attempt.
func (w *Waiter) WaitForDeploy(ctx context.Context, addr *address.Address) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		active, err := w.active(ctx, addr)
		if err != nil {
			lastErr = err
			w.logger.Debug("deploy poll failed", "address", addr.String(), "attempt", attempt, "error", err)
		} else if active {
			w.logger.Info("contract deployed", "address", addr.String(), "attempts", attempt)
			return nil
		}

		if attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrDeployTimeout, w.attempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts", ErrDeployTimeout, w.attempts)
}

func (w *Waiter) active(ctx context.Context, addr *address.Address) (bool, error) {
	block, err := w.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return false, fmt.Errorf("masterchain info: %w", err)
	}
	acc, err := w.api.GetAccount(ctx, block, addr)
	if err != nil {
		return false, fmt.Errorf("get account: %w", err)
	}
	return acc.IsActive, nil
}
