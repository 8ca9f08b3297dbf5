package collection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
)

var (
	// ErrNotDeployed is returned by queries against an inactive collection account.
	ErrNotDeployed = errors.New("collection is not deployed")
	// ErrIndexOutOfRange is returned for item indexes above nextItemIndex.
	// Indexes 0..nextItemIndex inclusive are valid, so the next slot can be
	// queried before it is minted.
	ErrIndexOutOfRange = errors.New("item index out of range")
	ErrNoStateInit     = errors.New("collection was opened by address and cannot be deployed")
	// ErrRoyaltyOverflow is returned when royalty_params yields a value outside uint16.
	ErrRoyaltyOverflow = errors.New("royalty value out of uint16 range")
)

// Client is a typed facade over one collection contract.
type Client struct {
	address *address.Address
	init    *tlb.StateInit
}

// NewFromConfig derives the collection address from its code and initial storage.
func NewFromConfig(cfg Config, code *cell.Cell, workchain int32) (*Client, error) {
	if code == nil {
		return nil, fmt.Errorf("collection code: %w", ErrMissingCode)
	}
	data, err := ConfigToCell(cfg)
	if err != nil {
		return nil, fmt.Errorf("collection config: %w", err)
	}
	init := &tlb.StateInit{Code: code, Data: data}
	addr, err := chain.ContractAddress(workchain, init)
	if err != nil {
		return nil, err
	}
	return &Client{address: addr, init: init}, nil
}

// NewFromAddress opens an already deployed collection.
func NewFromAddress(addr *address.Address) *Client {
	return &Client{address: addr}
}

func (c *Client) Address() *address.Address { return c.address }

// StateInit is nil for clients opened by address.
func (c *Client) StateInit() *tlb.StateInit { return c.init }

// SendDeploy sends the StateInit with an empty body. A repeated deploy targets
// the same address; the network decides what happens to it.
func (c *Client) SendDeploy(ctx context.Context, via chain.Sender, value tlb.Coins) (*chain.Result, error) {
	if c.init == nil {
		return nil, ErrNoStateInit
	}
	res, err := via.Send(ctx, chain.Message{
		To:        c.address,
		Value:     value,
		Bounce:    false,
		StateInit: c.init,
		Body:      cell.BeginCell().EndCell(),
	})
	if err != nil {
		return nil, fmt.Errorf("send deploy: %w", err)
	}
	return res, nil
}

// SendMint asks the collection to deploy an item. Ownership is checked by the
// contract; a non-owner sender shows up as exit code 401 in the result.
func (c *Client) SendMint(ctx context.Context, via chain.Sender, opts MintOptions) (*chain.Result, error) {
	body, err := BuildMintBody(opts)
	if err != nil {
		return nil, fmt.Errorf("build mint body: %w", err)
	}
	res, err := via.Send(ctx, chain.Message{
		To:     c.address,
		Value:  opts.Value,
		Bounce: true,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("send mint: %w", err)
	}
	return res, nil
}

// SendChangeOwner transfers collection ownership to newOwner.
func (c *Client) SendChangeOwner(ctx context.Context, via chain.Sender, value tlb.Coins, queryID uint64, newOwner *address.Address) (*chain.Result, error) {
	body, err := BuildChangeOwnerBody(queryID, newOwner)
	if err != nil {
		return nil, fmt.Errorf("build change owner body: %w", err)
	}
	res, err := via.Send(ctx, chain.Message{
		To:     c.address,
		Value:  value,
		Bounce: true,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("send change owner: %w", err)
	}
	return res, nil
}

// Data is the result of get_collection_data.
type Data struct {
	NextItemIndex     uint64
	Owner             *address.Address
	CollectionContent *cell.Cell
}

// GetCollectionData returns the owner, the next item index and the content cell.
func (c *Client) GetCollectionData(ctx context.Context, g chain.Getter) (*Data, error) {
	st, err := c.run(ctx, g, "get_collection_data")
	if err != nil {
		return nil, err
	}
	next, err := st.Int(0)
	if err != nil {
		return nil, fmt.Errorf("decode next item index: %w", err)
	}
	if !next.IsUint64() {
		return nil, fmt.Errorf("decode next item index: %s does not fit uint64", next)
	}
	content, err := st.Cell(1)
	if err != nil {
		return nil, fmt.Errorf("decode collection content: %w", err)
	}
	owner, err := st.Address(2)
	if err != nil {
		return nil, fmt.Errorf("decode owner: %w", err)
	}
	return &Data{
		NextItemIndex:     next.Uint64(),
		Owner:             owner,
		CollectionContent: content,
	}, nil
}

// GetRoyaltyParams returns the royalty fraction and recipient.
func (c *Client) GetRoyaltyParams(ctx context.Context, g chain.Getter) (*RoyaltyParams, error) {
	st, err := c.run(ctx, g, "royalty_params")
	if err != nil {
		return nil, err
	}
	factor, err := st.Int(0)
	if err != nil {
		return nil, fmt.Errorf("decode royalty factor: %w", err)
	}
	base, err := st.Int(1)
	if err != nil {
		return nil, fmt.Errorf("decode royalty base: %w", err)
	}
	addr, err := st.Address(2)
	if err != nil {
		return nil, fmt.Errorf("decode royalty address: %w", err)
	}
	f, err := toUint16(factor)
	if err != nil {
		return nil, fmt.Errorf("decode royalty factor: %w", err)
	}
	b, err := toUint16(base)
	if err != nil {
		return nil, fmt.Errorf("decode royalty base: %w", err)
	}
	return &RoyaltyParams{Factor: f, Base: b, Address: addr}, nil
}

func toUint16(v *big.Int) (uint16, error) {
	if !v.IsUint64() || v.Uint64() > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s", ErrRoyaltyOverflow, v)
	}
	return uint16(v.Uint64()), nil
}

// GetItemAddressByIndex returns the derived address of item index. Valid
// indexes are 0..nextItemIndex inclusive: the next slot can be queried before
// it is minted and keeps its address afterwards.
func (c *Client) GetItemAddressByIndex(ctx context.Context, g chain.Getter, index uint64) (*address.Address, error) {
	data, err := c.GetCollectionData(ctx, g)
	if err != nil {
		return nil, err
	}
	if index > data.NextItemIndex {
		return nil, fmt.Errorf("%w: %d > next item index %d", ErrIndexOutOfRange, index, data.NextItemIndex)
	}

	st, err := c.run(ctx, g, "get_nft_address_by_index", new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	addr, err := st.Address(0)
	if err != nil {
		return nil, fmt.Errorf("decode item address: %w", err)
	}
	return addr, nil
}

func (c *Client) run(ctx context.Context, g chain.Getter, method string, args ...any) (chain.Stack, error) {
	st, err := g.RunGetMethod(ctx, c.address, method, args...)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotActive) {
			return nil, fmt.Errorf("%s %s: %w", method, c.address, ErrNotDeployed)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return st, nil
}
