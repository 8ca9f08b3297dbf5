package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// ErrAccountNotActive is returned when a get method or a wait targets an
// account that has no deployed code.
var ErrAccountNotActive = errors.New("account is not active")

// Message is an internal message sent from a wallet to a contract.
type Message struct {
	To        *address.Address
	Value     tlb.Coins
	Bounce    bool
	StateInit *tlb.StateInit
	Body      *cell.Cell
}

// Sender delivers internal messages on behalf of an address.
type Sender interface {
	Address() *address.Address
	Send(ctx context.Context, msg Message) (*Result, error)
}

// Getter runs read-only get methods against contract state.
type Getter interface {
	RunGetMethod(ctx context.Context, addr *address.Address, method string, args ...any) (Stack, error)
}

// DeployWaiter blocks until an account becomes active.
type DeployWaiter interface {
	WaitForDeploy(ctx context.Context, addr *address.Address) error
}

// ExitError reports a get method that terminated with a non-zero exit code.
type ExitError struct {
	Method string
	Code   int32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("get method %s: exit code %d", e.Method, e.Code)
}

// ContractAddress derives the address of a contract from its StateInit.
func ContractAddress(workchain int32, init *tlb.StateInit) (*address.Address, error) {
	c, err := tlb.ToCell(init)
	if err != nil {
		return nil, fmt.Errorf("serialize state init: %w", err)
	}
	return address.NewAddress(0, byte(workchain), c.Hash()), nil
}

// SameAddress compares the workchain and account id, ignoring flags.
func SameAddress(a, b *address.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Workchain() == b.Workchain() && bytes.Equal(a.Data(), b.Data())
}

// Key is a flag-independent map key for an address.
func Key(a *address.Address) string {
	return fmt.Sprintf("%d:%x", a.Workchain(), a.Data())
}
