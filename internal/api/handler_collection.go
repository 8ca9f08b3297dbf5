package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/xssnick/tonutils-go/address"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
	"github.com/ryanbastic/go-nftcollection/internal/storage"
)

// --- Huma Input/Output types ---

type DeployCollectionBody struct {
	Name           string `json:"name" doc:"Collection name" required:"true" minLength:"1"`
	Description    string `json:"description" doc:"Collection description" required:"true" minLength:"1"`
	Image          string `json:"image,omitempty" doc:"Collection image URL"`
	RoyaltyPercent uint16 `json:"royalty_percent" doc:"Royalty numerator over a base of 100" required:"true"`
	Owner          string `json:"owner,omitempty" doc:"Collection owner; defaults to the service wallet"`
	RoyaltyAddress string `json:"royalty_address,omitempty" doc:"Royalty recipient; defaults to the owner"`
}

type DeployCollectionInput struct {
	Body DeployCollectionBody
}

type TransactionResponse struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	LT       uint64 `json:"lt"`
	Hash     string `json:"hash"`
	Deploy   bool   `json:"deploy"`
	Success  bool   `json:"success"`
	Aborted  bool   `json:"aborted"`
	ExitCode int32  `json:"exit_code"`
}

type DeployCollectionResponse struct {
	Address      string                `json:"address" doc:"User-friendly collection address"`
	RawAddress   string                `json:"raw_address" doc:"Collection address as workchain:hex"`
	ExplorerURL  string                `json:"explorer_url,omitempty"`
	DeployedAt   time.Time             `json:"deployed_at"`
	Transactions []TransactionResponse `json:"transactions"`
}

type DeployCollectionOutput struct {
	Body DeployCollectionResponse
}

type CollectionPath struct {
	Address string `path:"address" doc:"Collection address, user-friendly or raw"`
}

type GetCollectionInput struct {
	CollectionPath
}

type CollectionResponse struct {
	Address       string            `json:"address"`
	RawAddress    string            `json:"raw_address"`
	NextItemIndex uint64            `json:"next_item_index"`
	Owner         string            `json:"owner"`
	Metadata      *content.Metadata `json:"metadata,omitempty" doc:"Decoded on-chain content; absent for other layouts"`
	ContentBOC    []byte            `json:"content_boc" doc:"Collection content cell, base64 BOC"`
	Deployment    *DeploymentInfo   `json:"deployment,omitempty" doc:"Ledger entry when deployed by this service"`
}

type DeploymentInfo struct {
	Network    string    `json:"network"`
	DeployedAt time.Time `json:"deployed_at"`
}

type GetCollectionOutput struct {
	Body CollectionResponse
}

type GetRoyaltyInput struct {
	CollectionPath
}

type RoyaltyResponse struct {
	Factor  uint16 `json:"royalty_factor"`
	Base    uint16 `json:"royalty_base"`
	Address string `json:"royalty_address"`
}

type GetRoyaltyOutput struct {
	Body RoyaltyResponse
}

type GetItemAddressInput struct {
	CollectionPath
	Index uint64 `path:"index" doc:"Item index, at most the next item index"`
}

type ItemAddressResponse struct {
	Index      uint64 `json:"index"`
	Address    string `json:"address"`
	RawAddress string `json:"raw_address"`
}

type GetItemAddressOutput struct {
	Body ItemAddressResponse
}

type MintItemBody struct {
	Index       *uint64 `json:"index,omitempty" doc:"Item index; defaults to the next item index"`
	Owner       string  `json:"owner,omitempty" doc:"Item owner; defaults to the service wallet"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
}

type MintItemInput struct {
	CollectionPath
	Body MintItemBody
}

type MintResponse struct {
	Collection  string `json:"collection"`
	ItemIndex   uint64 `json:"item_index"`
	ItemAddress string `json:"item_address"`
	QueryID     uint64 `json:"query_id"`
	Observed    bool   `json:"observed" doc:"Whether the collection's outcome was seen"`
	ExitCode    *int32 `json:"exit_code,omitempty"`
}

type MintItemOutput struct {
	Body MintResponse
}

type ListMintsInput struct {
	CollectionPath
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"1000"`
}

type ListMintsResponse struct {
	Mints      []storage.Mint `json:"mints"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

type ListMintsOutput struct {
	Body ListMintsResponse
}

// --- Handler ---

// CollectionHandler serves collection deploys, mints and queries. Sends go
// out from sender; without one, only queries are served.
type CollectionHandler struct {
	svc    *minter.Service
	sender chain.Sender
	logger *slog.Logger
}

func NewCollectionHandler(svc *minter.Service, sender chain.Sender, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{svc: svc, sender: sender, logger: logger}
}

func registerCollectionRoutes(api huma.API, h *CollectionHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "deploy-collection",
		Method:        http.MethodPost,
		Path:          "/v1/collections",
		Summary:       "Deploy a collection owned by the service wallet",
		Tags:          []string{"collections"},
		DefaultStatus: http.StatusCreated,
	}, h.DeployCollection)

	huma.Register(api, huma.Operation{
		OperationID: "get-collection",
		Method:      http.MethodGet,
		Path:        "/v1/collections/{address}",
		Summary:     "Get collection data",
		Tags:        []string{"collections"},
	}, h.GetCollection)

	huma.Register(api, huma.Operation{
		OperationID: "get-royalty",
		Method:      http.MethodGet,
		Path:        "/v1/collections/{address}/royalty",
		Summary:     "Get royalty parameters",
		Tags:        []string{"collections"},
	}, h.GetRoyalty)

	huma.Register(api, huma.Operation{
		OperationID: "get-item-address",
		Method:      http.MethodGet,
		Path:        "/v1/collections/{address}/items/{index}/address",
		Summary:     "Get the address of an item by index",
		Tags:        []string{"items"},
	}, h.GetItemAddress)

	huma.Register(api, huma.Operation{
		OperationID:   "mint-item",
		Method:        http.MethodPost,
		Path:          "/v1/collections/{address}/items",
		Summary:       "Mint an item",
		Tags:          []string{"items"},
		DefaultStatus: http.StatusCreated,
	}, h.MintItem)

	huma.Register(api, huma.Operation{
		OperationID: "list-mints",
		Method:      http.MethodGet,
		Path:        "/v1/collections/{address}/mints",
		Summary:     "List mints recorded for a collection",
		Tags:        []string{"items"},
	}, h.ListMints)
}

// parseAddress accepts user-friendly and raw workchain:hex forms.
func parseAddress(field, s string) (*address.Address, error) {
	if s == "" {
		return nil, nil
	}
	if a, err := address.ParseAddr(s); err == nil {
		return a, nil
	}
	if a, err := address.ParseRawAddr(s); err == nil {
		return a, nil
	}
	return nil, huma.Error400BadRequest(fmt.Sprintf("invalid %s address %q", field, s))
}

func (p CollectionPath) collection() (*address.Address, error) {
	a, err := parseAddress("collection", p.Address)
	if err == nil && a == nil {
		return nil, huma.Error400BadRequest("collection address is required")
	}
	return a, err
}

func (h *CollectionHandler) requireSender() error {
	if h.sender == nil {
		return huma.Error503ServiceUnavailable("no wallet configured")
	}
	return nil
}

func (h *CollectionHandler) DeployCollection(ctx context.Context, input *DeployCollectionInput) (*DeployCollectionOutput, error) {
	if err := h.requireSender(); err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", input.Body.Owner)
	if err != nil {
		return nil, err
	}
	royaltyAddr, err := parseAddress("royalty", input.Body.RoyaltyAddress)
	if err != nil {
		return nil, err
	}

	res, err := h.svc.DeployCollection(ctx, h.sender, minter.DeployRequest{
		Metadata: content.Metadata{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Image:       input.Body.Image,
		},
		RoyaltyPercent: input.Body.RoyaltyPercent,
		Owner:          owner,
		RoyaltyAddress: royaltyAddr,
	})
	if err != nil {
		return nil, problem(h.logger, "deploy collection", err)
	}

	return &DeployCollectionOutput{Body: DeployCollectionResponse{
		Address:      res.Address.String(),
		RawAddress:   chain.Key(res.Address),
		ExplorerURL:  res.ExplorerURL,
		DeployedAt:   res.Deployment.DeployedAt,
		Transactions: transactions(res.Result),
	}}, nil
}

func (h *CollectionHandler) GetCollection(ctx context.Context, input *GetCollectionInput) (*GetCollectionOutput, error) {
	addr, err := input.collection()
	if err != nil {
		return nil, err
	}
	info, err := h.svc.CollectionData(ctx, addr)
	if err != nil {
		return nil, problem(h.logger, "get collection", err)
	}

	resp := CollectionResponse{
		Address:       addr.String(),
		RawAddress:    chain.Key(addr),
		NextItemIndex: info.NextItemIndex,
		Owner:         info.Owner.String(),
		Metadata:      info.Metadata,
		ContentBOC:    info.Content.ToBOC(),
	}
	if d, err := h.svc.Deployment(ctx, addr); err == nil {
		resp.Deployment = &DeploymentInfo{Network: d.Network, DeployedAt: d.DeployedAt}
	}
	return &GetCollectionOutput{Body: resp}, nil
}

func (h *CollectionHandler) GetRoyalty(ctx context.Context, input *GetRoyaltyInput) (*GetRoyaltyOutput, error) {
	addr, err := input.collection()
	if err != nil {
		return nil, err
	}
	r, err := h.svc.RoyaltyParams(ctx, addr)
	if err != nil {
		return nil, problem(h.logger, "get royalty", err)
	}
	return &GetRoyaltyOutput{Body: RoyaltyResponse{
		Factor:  r.Factor,
		Base:    r.Base,
		Address: r.Address.String(),
	}}, nil
}

func (h *CollectionHandler) GetItemAddress(ctx context.Context, input *GetItemAddressInput) (*GetItemAddressOutput, error) {
	addr, err := input.collection()
	if err != nil {
		return nil, err
	}
	item, err := h.svc.ItemAddress(ctx, addr, input.Index)
	if err != nil {
		return nil, problem(h.logger, "get item address", err)
	}
	return &GetItemAddressOutput{Body: ItemAddressResponse{
		Index:      input.Index,
		Address:    item.String(),
		RawAddress: chain.Key(item),
	}}, nil
}

func (h *CollectionHandler) MintItem(ctx context.Context, input *MintItemInput) (*MintItemOutput, error) {
	if err := h.requireSender(); err != nil {
		return nil, err
	}
	addr, err := input.collection()
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", input.Body.Owner)
	if err != nil {
		return nil, err
	}

	res, err := h.svc.Mint(ctx, h.sender, addr, minter.MintRequest{
		Index: input.Body.Index,
		Owner: owner,
		Metadata: content.Metadata{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Image:       input.Body.Image,
		},
	})
	if err != nil {
		return nil, problem(h.logger, "mint item", err)
	}

	resp := MintResponse{
		Collection:  addr.String(),
		ItemIndex:   res.ItemIndex,
		ItemAddress: res.ItemAddress.String(),
		QueryID:     res.QueryID,
		Observed:    res.Observed,
	}
	if res.Observed {
		code := res.ExitCode
		resp.ExitCode = &code
	}
	return &MintItemOutput{Body: resp}, nil
}

func (h *CollectionHandler) ListMints(ctx context.Context, input *ListMintsInput) (*ListMintsOutput, error) {
	addr, err := input.collection()
	if err != nil {
		return nil, err
	}
	page, err := h.svc.Mints(ctx, addr, input.Cursor, input.Limit)
	if err != nil {
		return nil, problem(h.logger, "list mints", err)
	}
	return &ListMintsOutput{Body: ListMintsResponse{
		Mints:      page.Mints,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func transactions(res *chain.Result) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		t := TransactionResponse{
			To:       tx.To.String(),
			LT:       tx.LT,
			Hash:     fmt.Sprintf("%x", tx.Hash),
			Deploy:   tx.Deploy,
			Success:  tx.Success,
			Aborted:  tx.Aborted,
			ExitCode: tx.ExitCode,
		}
		if tx.From != nil {
			t.From = tx.From.String()
		}
		out = append(out, t)
	}
	return out
}
