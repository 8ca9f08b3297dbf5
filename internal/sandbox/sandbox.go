// Package sandbox is an in-process ledger for exercising contract clients
// without a network. Accounts, balances and a transaction log are kept in
// memory; contract behaviour is supplied per code hash by Contract
// implementations that model what the real contract observably does.
package sandbox

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
)

// Exit codes produced by the ledger itself rather than by a contract.
const (
	ExitCodeCellUnderflow  int32 = 9
	ExitCodeMethodNotFound int32 = 11
	ExitCodeNoGas          int32 = 13
	ExitCodeNotEnoughFunds int32 = 37
	ExitCodeUninitialized  int32 = -1
)

const maxTraceLength = 256

var (
	DefaultGasFee          = tlb.MustFromTON("0.005")
	DefaultTreasuryBalance = tlb.MustFromTON("1000000")
)

// Env is the view a contract gets of its own account.
type Env struct {
	Self    *address.Address
	Data    *cell.Cell
	Balance tlb.Coins
}

// Inbound is a message delivered to a contract.
type Inbound struct {
	From    *address.Address
	Value   tlb.Coins
	Bounce  bool
	Bounced bool
	Body    *cell.Cell
}

// Outcome is what a contract does with an inbound message. A non-zero
// ExitCode aborts the transaction and discards Data and Out.
type Outcome struct {
	ExitCode int32
	Data     *cell.Cell
	Out      []chain.Message
}

// Contract models a deployed contract.
type Contract interface {
	Receive(env Env, msg Inbound) Outcome
	Get(env Env, method string, args []any) (chain.Stack, int32)
}

// Account is a snapshot of a ledger account.
type Account struct {
	Address *address.Address
	Balance tlb.Coins
	Active  bool
	Code    *cell.Cell
	Data    *cell.Cell
}

type account struct {
	addr    *address.Address
	balance *big.Int
	active  bool
	code    *cell.Cell
	data    *cell.Cell
}

func (a *account) snapshot() Account {
	return Account{
		Address: a.addr,
		Balance: tlb.FromNanoTON(new(big.Int).Set(a.balance)),
		Active:  a.active,
		Code:    a.code,
		Data:    a.data,
	}
}

// Blockchain is the simulated ledger. Sends are processed to completion one
// at a time.
type Blockchain struct {
	mu        sync.Mutex
	accounts  map[string]*account
	contracts map[string]Contract
	txs       []chain.Transaction
	lt        uint64

	gasFee          *big.Int
	treasuryBalance *big.Int
	logger          *slog.Logger
}

// Option configures a Blockchain.
type Option func(*Blockchain)

func WithLogger(l *slog.Logger) Option {
	return func(b *Blockchain) { b.logger = l }
}

// WithGasFee sets the flat fee charged for every contract execution.
func WithGasFee(fee tlb.Coins) Option {
	return func(b *Blockchain) { b.gasFee = fee.Nano() }
}

func WithTreasuryBalance(balance tlb.Coins) Option {
	return func(b *Blockchain) { b.treasuryBalance = balance.Nano() }
}

// New creates an empty ledger.
func New(opts ...Option) *Blockchain {
	b := &Blockchain{
		accounts:        make(map[string]*account),
		contracts:       make(map[string]Contract),
		gasFee:          DefaultGasFee.Nano(),
		treasuryBalance: DefaultTreasuryBalance.Nano(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func codeKey(code *cell.Cell) string {
	return hex.EncodeToString(code.Hash())
}

// contractFor returns the behaviour bound to acc's code. Accounts without
// code, such as treasuries, have none.
func (b *Blockchain) contractFor(acc *account) (Contract, bool) {
	if acc.code == nil {
		return nil, false
	}
	c, ok := b.contracts[codeKey(acc.code)]
	return c, ok
}

// Register binds contract behaviour to accounts whose code hashes to code.
func (b *Blockchain) Register(code *cell.Cell, c Contract) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contracts[codeKey(code)] = c
}

// Account returns a snapshot of the account at addr.
func (b *Blockchain) Account(addr *address.Address) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[chain.Key(addr)]
	if !ok {
		return Account{}, false
	}
	return acc.snapshot(), true
}

// Transactions returns the full transaction log in execution order.
func (b *Blockchain) Transactions() []chain.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]chain.Transaction, len(b.txs))
	copy(out, b.txs)
	return out
}

// RunGetMethod implements chain.Getter.
func (b *Blockchain) RunGetMethod(ctx context.Context, addr *address.Address, method string, args ...any) (chain.Stack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[chain.Key(addr)]
	if !ok || !acc.active {
		return nil, fmt.Errorf("run %s on %s: %w", method, addr, chain.ErrAccountNotActive)
	}
	c, ok := b.contractFor(acc)
	if !ok {
		return nil, &chain.ExitError{Method: method, Code: ExitCodeMethodNotFound}
	}

	st, code := c.Get(Env{Self: acc.addr, Data: acc.data, Balance: acc.snapshot().Balance}, method, args)
	if code != 0 {
		return nil, &chain.ExitError{Method: method, Code: code}
	}
	return st, nil
}

// WaitForDeploy implements chain.DeployWaiter. Sends complete synchronously,
// so there is nothing to wait for.
func (b *Blockchain) WaitForDeploy(ctx context.Context, addr *address.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[chain.Key(addr)]; ok && acc.active {
		return nil
	}
	return fmt.Errorf("wait for deploy %s: %w", addr, chain.ErrAccountNotActive)
}

func (b *Blockchain) accountFor(addr *address.Address) *account {
	key := chain.Key(addr)
	acc, ok := b.accounts[key]
	if !ok {
		acc = &account{addr: addr, balance: new(big.Int)}
		b.accounts[key] = acc
	}
	return acc
}
