package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/ton/wallet"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/circuitbreaker"
	"github.com/ryanbastic/go-nftcollection/internal/collection"
	"github.com/ryanbastic/go-nftcollection/internal/compiled"
	"github.com/ryanbastic/go-nftcollection/internal/config"
	"github.com/ryanbastic/go-nftcollection/internal/metrics"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
	"github.com/ryanbastic/go-nftcollection/internal/notify"
	"github.com/ryanbastic/go-nftcollection/internal/sandbox"
	"github.com/ryanbastic/go-nftcollection/internal/storage"
	"github.com/ryanbastic/go-nftcollection/internal/tonchain"
)

// network is everything needed to talk to one chain.
type network struct {
	getter chain.Getter
	waiter chain.DeployWaiter
	sender chain.Sender
	// ready is nil when there is nothing to probe.
	ready func(ctx context.Context) error
}

// loadCodes reads the compiled contracts from the build directory.
func loadCodes(dir string) (minter.Codes, error) {
	coll, err := compiled.Load(dir, compiled.NFTCollection)
	if err != nil {
		return minter.Codes{}, err
	}
	item, err := compiled.Load(dir, compiled.NFTItem)
	if err != nil {
		return minter.Codes{}, err
	}
	return minter.Codes{Collection: coll, Item: item}, nil
}

// openLive connects to lite-servers and opens the configured wallet. A
// missing mnemonic gives a read-only network.
func openLive(ctx context.Context, cfg config.Network, logger *slog.Logger) (*network, error) {
	api, err := tonchain.Connect(ctx, cfg.GlobalConfigURL(), logger)
	if err != nil {
		return nil, err
	}

	getter := tonchain.NewGetter(api, cfg.BreakerMaxFailures, cfg.BreakerResetTimeout, logger)
	n := &network{
		getter: getter,
		waiter: tonchain.NewWaiter(api, cfg.DeployWaitInterval, cfg.DeployWaitAttempts, logger),
		ready: func(context.Context) error {
			if getter.State() == circuitbreaker.Open {
				return circuitbreaker.ErrCircuitOpen
			}
			return nil
		},
	}

	if cfg.WalletMnemonic == "" {
		logger.Warn("WALLET_MNEMONIC is not set, sending is disabled")
		return n, nil
	}
	w, err := tonchain.OpenWallet(api, cfg.Words(), cfg.WalletVersion)
	if err != nil {
		return nil, err
	}
	logger.Info("wallet opened", "address", w.WalletAddress().String(), "version", cfg.WalletVersion)
	n.sender = tonchain.NewWalletSender(w, logger)
	return n, nil
}

// openSandbox runs against an in-process ledger. Compiled codes are used
// when present so addresses match the live network.
func openSandbox(buildDir string, logger *slog.Logger) (*network, minter.Codes) {
	codes, err := loadCodes(buildDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("compiled contracts unusable, using placeholders", "error", err)
		}
		codes = minter.Codes{Collection: sandbox.CollectionCode, Item: sandbox.ItemCode}
	}

	bc := sandbox.New(sandbox.WithLogger(logger))
	bc.RegisterNFT(codes.Collection, codes.Item)
	treasury := bc.Treasury("service")
	logger.Info("sandbox ready", "wallet", treasury.Address().String())
	return &network{getter: bc, waiter: bc, sender: treasury}, codes
}

// openStore returns the Postgres ledger when DATABASE_URL is set, an
// in-memory one otherwise. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.LedgerStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL is not set, using in-memory ledger")
		return storage.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := storage.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := prometheus.Register(metrics.NewPoolCollector(pool)); err != nil {
		logger.Warn("pool metrics not registered", "error", err)
	}
	logger.Info("connected to database")
	return storage.NewPostgresStore(pool, cfg.QueryTimeout), pool.Close, nil
}

// newNotifier registers WEBHOOK_URLS for every event.
func newNotifier(cfg config.Config, logger *slog.Logger) (*notify.Notifier, error) {
	registry := notify.NewRegistry()
	for i, endpoint := range cfg.WebhookURLs {
		if err := registry.Register(&notify.Subscriber{
			Name:     fmt.Sprintf("env-%d", i),
			Endpoint: endpoint,
		}); err != nil {
			return nil, fmt.Errorf("WEBHOOK_URLS: %w", err)
		}
	}
	client := notify.NewClient(cfg.WebhookRetryMax, cfg.WebhookRetryBackoff, cfg.WebhookTimeout)
	return notify.NewNotifier(registry, client, logger), nil
}

func newService(n *network, codes minter.Codes, store storage.LedgerStore, notifier *notify.Notifier,
	cfg config.Network, logger *slog.Logger) *minter.Service {
	return minter.New(n.getter, n.waiter, codes, store, notifier, minter.Options{
		Network:     cfg.Name,
		DeployValue: cfg.DeployValue.Coins,
		MintValue:   cfg.MintValue.Coins,
		MintAmount:  cfg.MintAmount.Coins,
		QueryIDs:    collection.RandomQueryIDs(),
		ExplorerURL: cfg.ExplorerURL,
	}, logger)
}

// walletOwner derives the wallet address from the mnemonic without a
// network connection.
func walletOwner(cfg config.Network) (string, error) {
	v, err := tonchain.WalletVersion(cfg.WalletVersion)
	if err != nil {
		return "", err
	}
	if cfg.WalletMnemonic == "" {
		return "", tonchain.ErrNoMnemonic
	}
	w, err := wallet.FromSeed(nil, cfg.Words(), v)
	if err != nil {
		return "", fmt.Errorf("derive wallet: %w", err)
	}
	return w.WalletAddress().String(), nil
}

// openNetwork picks the sandbox or the configured network.
func openNetwork(ctx context.Context, cfg config.Network, sandboxed bool, logger *slog.Logger) (*network, minter.Codes, error) {
	if sandboxed {
		n, codes := openSandbox(cfg.BuildDir, logger)
		return n, codes, nil
	}
	codes, err := loadCodes(cfg.BuildDir)
	if err != nil {
		return nil, minter.Codes{}, fmt.Errorf("load compiled contracts from %s: %w", cfg.BuildDir, err)
	}
	n, err := openLive(ctx, cfg, logger)
	if err != nil {
		return nil, minter.Codes{}, err
	}
	return n, codes, nil
}

// requireSender fails commands that have to sign messages.
func (n *network) requireSender() (chain.Sender, error) {
	if n.sender == nil {
		return nil, tonchain.ErrNoMnemonic
	}
	return n.sender, nil
}

// parseAddr accepts the user-friendly and the raw form.
func parseAddr(s string) (*address.Address, error) {
	if addr, err := address.ParseAddr(s); err == nil {
		return addr, nil
	}
	addr, err := address.ParseRawAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}
