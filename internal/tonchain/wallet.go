package tonchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
)

var (
	ErrNoMnemonic         = errors.New("wallet mnemonic is empty")
	ErrUnsupportedVersion = errors.New("unsupported wallet version")
)

// WalletVersion maps a WALLET_VERSION value to a wallet contract version.
func WalletVersion(name string) (wallet.VersionConfig, error) {
	switch strings.ToLower(name) {
	case "v3", "v3r2":
		return wallet.V3R2, nil
	case "", "v4", "v4r2":
		return wallet.V4R2, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, name)
}

// OpenWallet derives a wallet from its mnemonic.
func OpenWallet(api wallet.TonAPI, words []string, version string) (*wallet.Wallet, error) {
	if len(words) == 0 {
		return nil, ErrNoMnemonic
	}
	v, err := WalletVersion(version)
	if err != nil {
		return nil, err
	}
	w, err := wallet.FromSeed(api, words, v)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	return w, nil
}

// WalletSender implements chain.Sender with a wallet. Only the wallet's own
// transaction is observed; effects on the destination are not reported.
type WalletSender struct {
	wallet *wallet.Wallet
	logger *slog.Logger
}

func NewWalletSender(w *wallet.Wallet, logger *slog.Logger) *WalletSender {
	return &WalletSender{wallet: w, logger: logger}
}

func (s *WalletSender) Address() *address.Address {
	return s.wallet.WalletAddress()
}

// Send signs msg into an external message and waits for the wallet
// transaction to be included.
func (s *WalletSender) Send(ctx context.Context, msg chain.Message) (*chain.Result, error) {
	tx, block, err := s.wallet.SendWaitTransaction(ctx, toWalletMessage(msg))
	if err != nil {
		return nil, fmt.Errorf("send to %s: %w", msg.To, err)
	}
	s.logger.Info("wallet transaction confirmed",
		"to", msg.To.String(),
		"value", msg.Value.String(),
		"lt", tx.LT,
		"block", block.SeqNo,
	)
	return &chain.Result{Transactions: []chain.Transaction{{
		LT:      tx.LT,
		Hash:    tx.Hash,
		To:      s.wallet.WalletAddress(),
		Success: true,
	}}}, nil
}

// toWalletMessage pays forwarding fees separately and ignores action errors,
// the usual mode for wallet transfers.
func toWalletMessage(msg chain.Message) *wallet.Message {
	return &wallet.Message{
		Mode: wallet.PayGasSeparately + wallet.IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      msg.Bounce,
			DstAddr:     msg.To,
			Amount:      msg.Value,
			StateInit:   msg.StateInit,
			Body:        msg.Body,
		},
	}
}
