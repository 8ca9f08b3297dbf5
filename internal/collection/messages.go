package collection

import (
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Operation codes understood by the collection contract.
const (
	OpMint        uint32 = 1
	OpBatchMint   uint32 = 2
	OpChangeOwner uint32 = 3
)

// Exit codes returned by the collection contract.
const (
	ExitCodeUnauthorized    int32 = 401
	ExitCodeIndexOutOfRange int32 = 402
	ExitCodeUnknownOp       int32 = 0xffff
)

var (
	ErrMissingItemOwner   = errors.New("item owner address is required")
	ErrMissingItemContent = errors.New("item content is required")
	ErrValueTooLow        = errors.New("attached value must exceed the item amount")
)

// MintOptions describes a single mint request.
type MintOptions struct {
	// Value is attached to the message sent to the collection.
	Value tlb.Coins
	// QueryID is echoed by the contract; take it from a QueryIDSource.
	QueryID   uint64
	ItemIndex uint64
	// Amount is forwarded by the collection to fund the new item.
	Amount      tlb.Coins
	ItemOwner   *address.Address
	ItemContent *cell.Cell
}

func (o MintOptions) validate() error {
	if o.ItemOwner == nil {
		return ErrMissingItemOwner
	}
	if o.ItemContent == nil {
		return ErrMissingItemContent
	}
	if o.Value.Nano().Cmp(o.Amount.Nano()) <= 0 {
		return fmt.Errorf("%w: value %s, amount %s", ErrValueTooLow, o.Value, o.Amount)
	}
	return nil
}

// BuildMintBody serializes the mint message body:
//
//	op:uint32 query_id:uint64 item_index:uint64 amount:Coins ^[owner:MsgAddress ^content]
func BuildMintBody(o MintOptions) (*cell.Cell, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	item := cell.BeginCell()
	if err := item.StoreAddr(o.ItemOwner); err != nil {
		return nil, fmt.Errorf("store item owner: %w", err)
	}
	if err := item.StoreRef(o.ItemContent); err != nil {
		return nil, fmt.Errorf("store item content: %w", err)
	}

	b := cell.BeginCell().
		MustStoreUInt(uint64(OpMint), 32).
		MustStoreUInt(o.QueryID, 64).
		MustStoreUInt(o.ItemIndex, 64)
	if err := b.StoreBigCoins(o.Amount.Nano()); err != nil {
		return nil, fmt.Errorf("store amount: %w", err)
	}
	if err := b.StoreRef(item.EndCell()); err != nil {
		return nil, fmt.Errorf("store item: %w", err)
	}
	return b.EndCell(), nil
}

// BuildChangeOwnerBody serializes op:uint32 query_id:uint64 new_owner:MsgAddress.
func BuildChangeOwnerBody(queryID uint64, newOwner *address.Address) (*cell.Cell, error) {
	if newOwner == nil {
		return nil, ErrMissingOwner
	}
	b := cell.BeginCell().
		MustStoreUInt(uint64(OpChangeOwner), 32).
		MustStoreUInt(queryID, 64)
	if err := b.StoreAddr(newOwner); err != nil {
		return nil, fmt.Errorf("store new owner: %w", err)
	}
	return b.EndCell(), nil
}
