// Package tonchain adapts a live TON network, reached through lite-servers,
// to the chain interfaces.
package tonchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
)

// API is the part of the lite-server client this package uses.
// ton.APIClientWrapped satisfies it.
type API interface {
	CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	RunGetMethod(ctx context.Context, block *ton.BlockIDExt, addr *address.Address, method string, params ...any) (*ton.ExecutionResult, error)
	GetAccount(ctx context.Context, block *ton.BlockIDExt, addr *address.Address) (*tlb.Account, error)
}

// Connect opens a lite-server connection pool from a global config URL.
func Connect(ctx context.Context, configURL string, logger *slog.Logger) (ton.APIClientWrapped, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("connect lite servers from %s: %w", configURL, err)
	}
	logger.Info("connected to lite servers", "config", configURL)
	return ton.NewAPIClient(pool).WithRetry(), nil
}
