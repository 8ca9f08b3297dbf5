package sandbox

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
)

// Operation and exit codes of the standard NFT contracts.
const (
	opMint        = 1
	opChangeOwner = 3

	exitTypeCheck         int32 = 7
	exitUnauthorized      int32 = 401
	exitIndexOutOfRange   int32 = 402
	exitNotFromCollection int32 = 405
	exitUnknownOp         int32 = 0xffff
)

var (
	// CollectionCode and ItemCode stand in for compiled contract code when no
	// build artifacts are available.
	CollectionCode = placeholderCode("nft-collection")
	ItemCode       = placeholderCode("nft-item")
)

func placeholderCode(tag string) *cell.Cell {
	return cell.BeginCell().MustStoreSlice([]byte(tag), uint(len(tag))*8).EndCell()
}

// RegisterNFT binds the collection and item models to the given code cells.
func (b *Blockchain) RegisterNFT(collectionCode, itemCode *cell.Cell) {
	b.Register(collectionCode, NFTCollection{})
	b.Register(itemCode, NFTItem{})
}

// NFTCollection models the standard NFT collection contract: owner-only
// minting by index, ownership transfer and the collection get methods.
type NFTCollection struct{}

type collectionState struct {
	owner    *address.Address
	next     uint64
	content  *cell.Cell
	itemCode *cell.Cell
	royalty  *cell.Cell
}

func loadCollectionState(data *cell.Cell) (*collectionState, error) {
	if data == nil {
		return nil, fmt.Errorf("collection data is empty")
	}
	s := data.BeginParse()
	owner, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	next, err := s.LoadUInt(64)
	if err != nil {
		return nil, fmt.Errorf("load next item index: %w", err)
	}
	content, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	itemCode, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("load item code: %w", err)
	}
	royalty, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("load royalty: %w", err)
	}
	return &collectionState{owner: owner, next: next, content: content, itemCode: itemCode, royalty: royalty}, nil
}

func (st *collectionState) toCell() *cell.Cell {
	return cell.BeginCell().
		MustStoreAddr(st.owner).
		MustStoreUInt(st.next, 64).
		MustStoreRef(st.content).
		MustStoreRef(st.itemCode).
		MustStoreRef(st.royalty).
		EndCell()
}

func itemInit(index uint64, collection *address.Address, code *cell.Cell) (*tlb.StateInit, *address.Address, error) {
	data := cell.BeginCell().
		MustStoreUInt(index, 64).
		MustStoreAddr(collection).
		EndCell()
	init := &tlb.StateInit{Code: code, Data: data}
	addr, err := chain.ContractAddress(collection.Workchain(), init)
	if err != nil {
		return nil, nil, err
	}
	return init, addr, nil
}

func (NFTCollection) Receive(env Env, msg Inbound) Outcome {
	if msg.Bounced || msg.Body == nil || msg.Body.BitsSize() < 32 {
		return Outcome{}
	}
	st, err := loadCollectionState(env.Data)
	if err != nil {
		return Outcome{ExitCode: ExitCodeCellUnderflow}
	}

	body := msg.Body.BeginParse()
	op, _ := body.LoadUInt(32)
	if _, err := body.LoadUInt(64); err != nil {
		return Outcome{ExitCode: ExitCodeCellUnderflow}
	}

	switch op {
	case opMint:
		if !chain.SameAddress(msg.From, st.owner) {
			return Outcome{ExitCode: exitUnauthorized}
		}
		index, err := body.LoadUInt(64)
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		if index > st.next {
			return Outcome{ExitCode: exitIndexOutOfRange}
		}
		amount, err := body.LoadBigCoins()
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		itemMsg, err := body.LoadRefCell()
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		init, addr, err := itemInit(index, env.Self, st.itemCode)
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		if index == st.next {
			st.next++
		}
		return Outcome{
			Data: st.toCell(),
			Out: []chain.Message{{
				To:        addr,
				Value:     tlb.FromNanoTON(amount),
				Bounce:    true,
				StateInit: init,
				Body:      itemMsg,
			}},
		}

	case opChangeOwner:
		if !chain.SameAddress(msg.From, st.owner) {
			return Outcome{ExitCode: exitUnauthorized}
		}
		owner, err := body.LoadAddr()
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		st.owner = owner
		return Outcome{Data: st.toCell()}
	}

	return Outcome{ExitCode: exitUnknownOp}
}

func (NFTCollection) Get(env Env, method string, args []any) (chain.Stack, int32) {
	st, err := loadCollectionState(env.Data)
	if err != nil {
		return nil, ExitCodeCellUnderflow
	}

	switch method {
	case "get_collection_data":
		content, err := st.content.BeginParse().LoadRefCell()
		if err != nil {
			return nil, ExitCodeCellUnderflow
		}
		return chain.Stack{new(big.Int).SetUint64(st.next), content, chain.AddressSlice(st.owner)}, 0

	case "get_nft_address_by_index":
		if len(args) < 1 {
			return nil, exitTypeCheck
		}
		index, ok := args[0].(*big.Int)
		if !ok || !index.IsUint64() {
			return nil, exitTypeCheck
		}
		_, addr, err := itemInit(index.Uint64(), env.Self, st.itemCode)
		if err != nil {
			return nil, ExitCodeCellUnderflow
		}
		return chain.Stack{chain.AddressSlice(addr)}, 0

	case "royalty_params":
		s := st.royalty.BeginParse()
		factor, err := s.LoadUInt(16)
		if err != nil {
			return nil, ExitCodeCellUnderflow
		}
		base, err := s.LoadUInt(16)
		if err != nil {
			return nil, ExitCodeCellUnderflow
		}
		addr, err := s.LoadAddr()
		if err != nil {
			return nil, ExitCodeCellUnderflow
		}
		return chain.Stack{new(big.Int).SetUint64(factor), new(big.Int).SetUint64(base), chain.AddressSlice(addr)}, 0

	case "get_nft_content":
		// On-chain item content is returned as is.
		if len(args) < 2 {
			return nil, exitTypeCheck
		}
		c, ok := args[1].(*cell.Cell)
		if !ok {
			return nil, exitTypeCheck
		}
		return chain.Stack{c}, 0
	}

	return nil, ExitCodeMethodNotFound
}

// NFTItem models the standard NFT item contract up to initialization by its
// collection.
type NFTItem struct{}

type itemState struct {
	index      uint64
	collection *address.Address
	owner      *address.Address
	content    *cell.Cell
}

func loadItemState(data *cell.Cell) (*itemState, error) {
	s := data.BeginParse()
	index, err := s.LoadUInt(64)
	if err != nil {
		return nil, err
	}
	collection, err := s.LoadAddr()
	if err != nil {
		return nil, err
	}
	st := &itemState{index: index, collection: collection}
	if s.BitsLeft() == 0 && s.RefsNum() == 0 {
		return st, nil
	}
	if st.owner, err = s.LoadAddr(); err != nil {
		return nil, err
	}
	if st.content, err = s.LoadRefCell(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *itemState) initialized() bool { return st.owner != nil }

func (NFTItem) Receive(env Env, msg Inbound) Outcome {
	if msg.Bounced {
		return Outcome{}
	}
	st, err := loadItemState(env.Data)
	if err != nil {
		return Outcome{ExitCode: ExitCodeCellUnderflow}
	}

	if !st.initialized() {
		if !chain.SameAddress(msg.From, st.collection) {
			return Outcome{ExitCode: exitNotFromCollection}
		}
		if msg.Body == nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		body := msg.Body.BeginParse()
		owner, err := body.LoadAddr()
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		content, err := body.LoadRefCell()
		if err != nil {
			return Outcome{ExitCode: ExitCodeCellUnderflow}
		}
		return Outcome{Data: cell.BeginCell().
			MustStoreUInt(st.index, 64).
			MustStoreAddr(st.collection).
			MustStoreAddr(owner).
			MustStoreRef(content).
			EndCell()}
	}

	if msg.Body == nil || msg.Body.BitsSize() < 32 {
		return Outcome{}
	}
	return Outcome{ExitCode: exitUnknownOp}
}

func (NFTItem) Get(env Env, method string, _ []any) (chain.Stack, int32) {
	if method != "get_nft_data" {
		return nil, ExitCodeMethodNotFound
	}
	st, err := loadItemState(env.Data)
	if err != nil {
		return nil, ExitCodeCellUnderflow
	}
	if !st.initialized() {
		return chain.Stack{big.NewInt(0), new(big.Int).SetUint64(st.index), chain.AddressSlice(st.collection), nil, nil}, 0
	}
	return chain.Stack{
		big.NewInt(-1),
		new(big.Int).SetUint64(st.index),
		chain.AddressSlice(st.collection),
		chain.AddressSlice(st.owner),
		st.content,
	}, 0
}
