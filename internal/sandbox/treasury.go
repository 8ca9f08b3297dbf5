package sandbox

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
)

var ErrInsufficientBalance = errors.New("insufficient treasury balance")

// Treasury is a funded wallet account that sends internal messages.
type Treasury struct {
	bc   *Blockchain
	name string
	addr *address.Address
}

// Treasury returns the wallet named name, creating and funding it on first
// use. The address is derived from the name, so the same name always yields
// the same wallet.
func (b *Blockchain) Treasury(name string) *Treasury {
	sum := sha256.Sum256([]byte("treasury:" + name))
	addr := address.NewAddress(0, 0, sum[:])

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accountFor(addr)
	if !acc.active {
		acc.active = true
		acc.balance.Add(acc.balance, b.treasuryBalance)
	}
	return &Treasury{bc: b, name: name, addr: addr}
}

func (t *Treasury) Name() string { return t.name }

// Address implements chain.Sender.
func (t *Treasury) Address() *address.Address { return t.addr }

// Send implements chain.Sender. The message and everything it triggers are
// processed before Send returns.
func (t *Treasury) Send(ctx context.Context, msg chain.Message) (*chain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, errors.New("message has no destination")
	}

	t.bc.mu.Lock()
	defer t.bc.mu.Unlock()

	acc := t.bc.accountFor(t.addr)
	value := msg.Value.Nano()
	if acc.balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("%s: %w: have %s, need %s", t.name, ErrInsufficientBalance, acc.balance, value)
	}
	acc.balance.Sub(acc.balance, new(big.Int).Set(value))

	return t.bc.process(t.addr, msg), nil
}
