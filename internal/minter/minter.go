// Package minter deploys NFT collections, mints items and answers collection
// queries, keeping a ledger of what was sent.
package minter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/collection"
	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/metrics"
	"github.com/ryanbastic/go-nftcollection/internal/notify"
	"github.com/ryanbastic/go-nftcollection/internal/storage"
)

// RoyaltyBase is the denominator of a royalty percentage.
const RoyaltyBase = 100

// DefaultItemMetadata describes items minted without explicit metadata.
var DefaultItemMetadata = content.Metadata{
	Name:        "OnChain",
	Description: "Holds onchain metadata",
	Image:       "https://raw.githubusercontent.com/Cosmodude/Nexton/main/Nexton_Logo.jpg",
}

var (
	// ErrMintRejected is returned when the collection was seen rejecting a mint.
	ErrMintRejected = errors.New("mint rejected by collection")
	ErrDeployFailed = errors.New("collection deploy failed")
)

// Codes holds the compiled collection and item contracts.
type Codes struct {
	Collection *cell.Cell
	Item       *cell.Cell
}

// Options configures a Service. Zero values fall back to the defaults of the
// deployment script.
type Options struct {
	Network     string
	Workchain   int32
	DeployValue tlb.Coins
	MintValue   tlb.Coins
	MintAmount  tlb.Coins
	QueryIDs    collection.QueryIDSource
	// ExplorerURL links an address in logs and webhooks; optional.
	ExplorerURL func(addr string) string
}

func (o *Options) defaults() {
	if o.Network == "" {
		o.Network = "testnet"
	}
	if o.DeployValue.Nano().Sign() == 0 {
		o.DeployValue = tlb.MustFromTON("0.05")
	}
	if o.MintValue.Nano().Sign() == 0 {
		o.MintValue = tlb.MustFromTON("0.04")
	}
	if o.MintAmount.Nano().Sign() == 0 {
		o.MintAmount = tlb.MustFromTON("0.014")
	}
	if o.QueryIDs == nil {
		o.QueryIDs = collection.RandomQueryIDs()
	}
}

// Service ties the collection client to a network, the ledger and webhooks.
type Service struct {
	getter   chain.Getter
	waiter   chain.DeployWaiter
	codes    Codes
	store    storage.LedgerStore
	notifier *notify.Notifier
	opts     Options
	logger   *slog.Logger
}

// New creates a Service. notifier may be nil.
func New(getter chain.Getter, waiter chain.DeployWaiter, codes Codes, store storage.LedgerStore,
	notifier *notify.Notifier, opts Options, logger *slog.Logger) *Service {
	opts.defaults()
	return &Service{
		getter:   getter,
		waiter:   waiter,
		codes:    codes,
		store:    store,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

func (s *Service) explorerURL(addr *address.Address) string {
	if s.opts.ExplorerURL == nil {
		return ""
	}
	return s.opts.ExplorerURL(addr.String())
}

// DeployRequest describes a new collection.
type DeployRequest struct {
	Metadata       content.Metadata
	RoyaltyPercent uint16
	// Owner and RoyaltyAddress default to the sender.
	Owner          *address.Address
	RoyaltyAddress *address.Address
	// Value defaults to Options.DeployValue.
	Value tlb.Coins
}

// DeployResult is a deployed collection.
type DeployResult struct {
	Address     *address.Address
	Deployment  *storage.Deployment
	Result      *chain.Result
	ExplorerURL string
}

// Collection derives the client for req without sending anything.
func (s *Service) Collection(req DeployRequest, sender *address.Address) (*collection.Client, error) {
	collContent, err := content.BuildCollectionContentCell(req.Metadata)
	if err != nil {
		return nil, err
	}
	owner := req.Owner
	if owner == nil {
		owner = sender
	}
	royaltyAddr := req.RoyaltyAddress
	if royaltyAddr == nil {
		royaltyAddr = owner
	}

	return collection.NewFromConfig(collection.Config{
		Owner:             owner,
		NextItemIndex:     0,
		CollectionContent: collContent,
		ItemCode:          s.codes.Item,
		Royalty: collection.RoyaltyParams{
			Factor:  req.RoyaltyPercent,
			Base:    RoyaltyBase,
			Address: royaltyAddr,
		},
	}, s.codes.Collection, s.opts.Workchain)
}

// DeployCollection deploys a collection owned by the sender, waits until it is
// active and records it. Deploying the same collection again targets the same
// address and keeps the existing ledger entry.
func (s *Service) DeployCollection(ctx context.Context, via chain.Sender, req DeployRequest) (*DeployResult, error) {
	client, err := s.Collection(req, via.Address())
	if err != nil {
		return nil, err
	}
	addr := client.Address()

	value := req.Value
	if value.Nano().Sign() == 0 {
		value = s.opts.DeployValue
	}

	res, err := client.SendDeploy(ctx, via, value)
	if err != nil {
		metrics.ObserveDeploy(metrics.DeployFailed)
		return nil, fmt.Errorf("%w: %w", ErrDeployFailed, err)
	}
	if tx, ok := res.Outcome(addr); ok && tx.Aborted {
		metrics.ObserveDeploy(metrics.DeployFailed)
		return nil, fmt.Errorf("%w: exit code %d", ErrDeployFailed, tx.ExitCode)
	}

	if err := s.waiter.WaitForDeploy(ctx, addr); err != nil {
		metrics.ObserveDeploy(metrics.DeployTimeout)
		return nil, fmt.Errorf("wait for deploy of %s: %w", addr, err)
	}
	metrics.ObserveDeploy(metrics.DeployDeployed)

	collContent, err := content.BuildCollectionContentCell(req.Metadata)
	if err != nil {
		return nil, err
	}
	d, err := s.store.RecordDeployment(ctx, storage.Deployment{
		Address:        chain.Key(addr),
		Network:        s.opts.Network,
		Owner:          chain.Key(ownerOf(req, via)),
		Name:           req.Metadata.Name,
		Description:    req.Metadata.Description,
		Image:          req.Metadata.Image,
		RoyaltyFactor:  req.RoyaltyPercent,
		RoyaltyBase:    RoyaltyBase,
		RoyaltyAddress: chain.Key(royaltyOf(req, via)),
		ContentBOC:     collContent.ToBOC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record deployment: %w", err)
	}

	out := &DeployResult{
		Address:     addr,
		Deployment:  d,
		Result:      res,
		ExplorerURL: s.explorerURL(addr),
	}
	s.logger.Info("collection deployed", "collection", addr.String(), "explorer", out.ExplorerURL)

	if s.notifier != nil {
		s.notifier.NotifyDeployed(notify.CollectionDeployed{
			Collection:     addr.String(),
			Network:        d.Network,
			Owner:          d.Owner,
			Name:           d.Name,
			RoyaltyFactor:  d.RoyaltyFactor,
			RoyaltyBase:    d.RoyaltyBase,
			RoyaltyAddress: d.RoyaltyAddress,
			ExplorerURL:    out.ExplorerURL,
			DeployedAt:     d.DeployedAt,
		})
	}
	return out, nil
}

func ownerOf(req DeployRequest, via chain.Sender) *address.Address {
	if req.Owner != nil {
		return req.Owner
	}
	return via.Address()
}

func royaltyOf(req DeployRequest, via chain.Sender) *address.Address {
	if req.RoyaltyAddress != nil {
		return req.RoyaltyAddress
	}
	return ownerOf(req, via)
}

// MintRequest describes one item.
type MintRequest struct {
	// Index defaults to the collection's next item index.
	Index *uint64
	// Owner defaults to the sender.
	Owner *address.Address
	// Metadata defaults to DefaultItemMetadata.
	Metadata content.Metadata
	Value    tlb.Coins
	Amount   tlb.Coins
}

// MintResult is the outcome of a mint. ExitCode is meaningful only when
// Observed is set; on a live network only the wallet transaction is seen.
type MintResult struct {
	Collection  *address.Address
	ItemIndex   uint64
	ItemAddress *address.Address
	QueryID     uint64
	ExitCode    int32
	Observed    bool
	Mint        *storage.Mint
	Result      *chain.Result
}

// Mint sends a mint message to the collection at collAddr and records it.
// An observed non-zero exit code returns the result together with
// ErrMintRejected.
func (s *Service) Mint(ctx context.Context, via chain.Sender, collAddr *address.Address, req MintRequest) (*MintResult, error) {
	client := collection.NewFromAddress(collAddr)

	var index uint64
	if req.Index != nil {
		index = *req.Index
	} else {
		data, err := client.GetCollectionData(ctx, s.getter)
		if err != nil {
			return nil, err
		}
		index = data.NextItemIndex
	}

	itemAddr, err := client.GetItemAddressByIndex(ctx, s.getter, index)
	if err != nil {
		return nil, err
	}

	meta := req.Metadata
	if meta == (content.Metadata{}) {
		meta = DefaultItemMetadata
	}
	itemContent, err := content.BuildItemContentCell(meta)
	if err != nil {
		return nil, err
	}

	owner := req.Owner
	if owner == nil {
		owner = via.Address()
	}
	value, amount := req.Value, req.Amount
	if value.Nano().Sign() == 0 {
		value = s.opts.MintValue
	}
	if amount.Nano().Sign() == 0 {
		amount = s.opts.MintAmount
	}

	queryID := s.opts.QueryIDs.Next()
	res, err := client.SendMint(ctx, via, collection.MintOptions{
		Value:       value,
		QueryID:     queryID,
		ItemIndex:   index,
		Amount:      amount,
		ItemOwner:   owner,
		ItemContent: itemContent,
	})
	if err != nil {
		return nil, err
	}

	out := &MintResult{
		Collection:  collAddr,
		ItemIndex:   index,
		ItemAddress: itemAddr,
		QueryID:     queryID,
		Result:      res,
	}
	var txHash string
	if tx, ok := res.Find(chain.Match{From: via.Address(), To: collAddr}); ok {
		out.ExitCode, out.Observed = tx.ExitCode, true
		txHash = fmt.Sprintf("%x", tx.Hash)
	} else if len(res.Transactions) > 0 {
		txHash = fmt.Sprintf("%x", res.Transactions[0].Hash)
	}
	metrics.ObserveMint(out.ExitCode, out.Observed)

	record := storage.Mint{
		Collection:  chain.Key(collAddr),
		ItemIndex:   index,
		ItemAddress: chain.Key(itemAddr),
		Owner:       chain.Key(owner),
		QueryID:     queryID,
		Name:        meta.Name,
		Description: meta.Description,
		Image:       meta.Image,
		TxHash:      txHash,
	}
	if out.Observed {
		code := out.ExitCode
		record.ExitCode = &code
	}
	m, err := s.store.RecordMint(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("record mint: %w", err)
	}
	out.Mint = m

	if out.Observed && out.ExitCode != 0 {
		s.logger.Warn("mint rejected", "collection", collAddr.String(), "index", index, "exit_code", out.ExitCode)
		return out, fmt.Errorf("%w: exit code %d", ErrMintRejected, out.ExitCode)
	}

	s.logger.Info("item minted",
		"collection", collAddr.String(),
		"index", index,
		"item", itemAddr.String(),
		"query_id", queryID,
		"observed", out.Observed,
	)
	if s.notifier != nil {
		ev := notify.ItemMinted{
			Collection:  collAddr.String(),
			ItemIndex:   index,
			ItemAddress: itemAddr.String(),
			Owner:       owner.String(),
			QueryID:     queryID,
			MintedAt:    m.CreatedAt,
		}
		if out.Observed {
			ev.ExitCode = m.ExitCode
		}
		s.notifier.NotifyMinted(ev)
	}
	return out, nil
}

// ChangeOwner transfers the collection to newOwner. Only the current owner
// may do so; the contract answers others with exit code 401.
func (s *Service) ChangeOwner(ctx context.Context, via chain.Sender, collAddr, newOwner *address.Address) (*chain.Result, error) {
	res, err := collection.NewFromAddress(collAddr).
		SendChangeOwner(ctx, via, s.opts.MintValue, s.opts.QueryIDs.Next(), newOwner)
	if err != nil {
		return nil, err
	}
	if tx, ok := res.Find(chain.Match{From: via.Address(), To: collAddr}); ok && tx.ExitCode != 0 {
		return res, fmt.Errorf("change owner of %s: exit code %d", collAddr, tx.ExitCode)
	}
	return res, nil
}

// CollectionInfo is get_collection_data with the content decoded.
type CollectionInfo struct {
	Address       *address.Address
	NextItemIndex uint64
	Owner         *address.Address
	Content       *cell.Cell
	// Metadata is nil when the content is not on-chain.
	Metadata *content.Metadata
}

func (s *Service) CollectionData(ctx context.Context, collAddr *address.Address) (*CollectionInfo, error) {
	data, err := collection.NewFromAddress(collAddr).GetCollectionData(ctx, s.getter)
	if err != nil {
		return nil, err
	}
	info := &CollectionInfo{
		Address:       collAddr,
		NextItemIndex: data.NextItemIndex,
		Owner:         data.Owner,
		Content:       data.CollectionContent,
	}
	if meta, err := content.Parse(data.CollectionContent); err == nil {
		info.Metadata = &meta
	} else {
		s.logger.Debug("collection content not decoded", "collection", collAddr.String(), "error", err)
	}
	return info, nil
}

func (s *Service) RoyaltyParams(ctx context.Context, collAddr *address.Address) (*collection.RoyaltyParams, error) {
	return collection.NewFromAddress(collAddr).GetRoyaltyParams(ctx, s.getter)
}

func (s *Service) ItemAddress(ctx context.Context, collAddr *address.Address, index uint64) (*address.Address, error) {
	return collection.NewFromAddress(collAddr).GetItemAddressByIndex(ctx, s.getter, index)
}

// Deployment returns the ledger entry of a collection deployed by this service.
func (s *Service) Deployment(ctx context.Context, collAddr *address.Address) (*storage.Deployment, error) {
	return s.store.GetDeployment(ctx, chain.Key(collAddr))
}

// Mints pages through the mints recorded for a collection.
func (s *Service) Mints(ctx context.Context, collAddr *address.Address, cursor string, limit int) (*storage.Page, error) {
	return s.store.ListMints(ctx, chain.Key(collAddr), cursor, limit)
}

// Ping checks the ledger.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
