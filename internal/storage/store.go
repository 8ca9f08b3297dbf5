package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("not found")

// Deployment is a collection deployed by this service. Addresses are stored
// in raw "workchain:hex" form.
type Deployment struct {
	Address        string    `json:"address"`
	Network        string    `json:"network"`
	Owner          string    `json:"owner"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Image          string    `json:"image"`
	RoyaltyFactor  uint16    `json:"royalty_factor"`
	RoyaltyBase    uint16    `json:"royalty_base"`
	RoyaltyAddress string    `json:"royalty_address"`
	ContentBOC     []byte    `json:"content_boc"`
	DeployedAt     time.Time `json:"deployed_at"`
}

// Mint is one mint message sent to a collection.
type Mint struct {
	AddedID     int64     `json:"-"`
	ID          uuid.UUID `json:"id"`
	Collection  string    `json:"collection"`
	ItemIndex   uint64    `json:"item_index"`
	ItemAddress string    `json:"item_address"`
	Owner       string    `json:"owner"`
	QueryID     uint64    `json:"query_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	// ExitCode is the collection's exit code, nil when the outcome was not observed.
	ExitCode  *int32    `json:"exit_code,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one page of mints in insertion order.
type Page struct {
	Mints      []Mint
	NextCursor string
	HasMore    bool
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// LedgerStore records what the service sent to the chain.
type LedgerStore interface {
	// RecordDeployment inserts a deployment or refreshes an existing one.
	RecordDeployment(ctx context.Context, d Deployment) (*Deployment, error)

	GetDeployment(ctx context.Context, address string) (*Deployment, error)

	// RecordMint stores a mint. A zero ID is replaced by a new UUID.
	RecordMint(ctx context.Context, m Mint) (*Mint, error)

	// ListMints pages through the mints of collection ordered by insertion.
	ListMints(ctx context.Context, collection string, cursor string, limit int) (*Page, error)

	Ping(ctx context.Context) error
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}
