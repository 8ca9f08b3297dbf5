package collection

import (
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// RoyaltyParams is the fraction Factor/Base of each sale paid to Address.
// Factor <= Base is expected but not checked here; the contract owns that rule.
type RoyaltyParams struct {
	Factor  uint16           `json:"royalty_factor"`
	Base    uint16           `json:"royalty_base"`
	Address *address.Address `json:"royalty_address"`
}

// Config is the initial storage of a collection contract.
type Config struct {
	Owner             *address.Address
	NextItemIndex     uint64
	CollectionContent *cell.Cell
	// CommonContent is the prefix shared by off-chain item URIs; empty for on-chain metadata.
	CommonContent *cell.Cell
	ItemCode      *cell.Cell
	Royalty       RoyaltyParams
}

var (
	ErrMissingOwner   = errors.New("collection owner address is required")
	ErrMissingContent = errors.New("collection content is required")
	ErrMissingCode    = errors.New("item code is required")
	ErrMissingRoyalty = errors.New("royalty address is required")
)

// ConfigToCell serializes the collection storage:
//
//	owner:MsgAddress next_item_index:uint64
//	^[collection_content:^Cell common_content:^Cell]
//	nft_item_code:^Cell
//	royalty_params:^[factor:uint16 base:uint16 address:MsgAddress]
func ConfigToCell(cfg Config) (*cell.Cell, error) {
	switch {
	case cfg.Owner == nil:
		return nil, ErrMissingOwner
	case cfg.CollectionContent == nil:
		return nil, ErrMissingContent
	case cfg.ItemCode == nil:
		return nil, ErrMissingCode
	case cfg.Royalty.Address == nil:
		return nil, ErrMissingRoyalty
	}

	common := cfg.CommonContent
	if common == nil {
		common = cell.BeginCell().EndCell()
	}

	contentCell := cell.BeginCell().
		MustStoreRef(cfg.CollectionContent).
		MustStoreRef(common).
		EndCell()

	royalty, err := RoyaltyToCell(cfg.Royalty)
	if err != nil {
		return nil, err
	}

	b := cell.BeginCell()
	if err := b.StoreAddr(cfg.Owner); err != nil {
		return nil, fmt.Errorf("store owner: %w", err)
	}
	if err := b.StoreUInt(cfg.NextItemIndex, 64); err != nil {
		return nil, fmt.Errorf("store next item index: %w", err)
	}
	if err := b.StoreRef(contentCell); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	if err := b.StoreRef(cfg.ItemCode); err != nil {
		return nil, fmt.Errorf("store item code: %w", err)
	}
	if err := b.StoreRef(royalty); err != nil {
		return nil, fmt.Errorf("store royalty: %w", err)
	}
	return b.EndCell(), nil
}

// RoyaltyToCell serializes royalty params as the contract stores them.
func RoyaltyToCell(r RoyaltyParams) (*cell.Cell, error) {
	b := cell.BeginCell().
		MustStoreUInt(uint64(r.Factor), 16).
		MustStoreUInt(uint64(r.Base), 16)
	if err := b.StoreAddr(r.Address); err != nil {
		return nil, fmt.Errorf("store royalty address: %w", err)
	}
	return b.EndCell(), nil
}
