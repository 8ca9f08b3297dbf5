package notify

import "time"

// Event names, also used as the JSON-RPC method.
const (
	EventCollectionDeployed = "collection.deployed"
	EventItemMinted         = "item.minted"
)

// Events lists every event a subscriber may ask for.
var Events = []string{EventCollectionDeployed, EventItemMinted}

// CollectionDeployed is the payload of collection.deployed.
type CollectionDeployed struct {
	Collection     string    `json:"collection"`
	Network        string    `json:"network"`
	Owner          string    `json:"owner"`
	Name           string    `json:"name"`
	RoyaltyFactor  uint16    `json:"royalty_factor"`
	RoyaltyBase    uint16    `json:"royalty_base"`
	RoyaltyAddress string    `json:"royalty_address"`
	ExplorerURL    string    `json:"explorer_url,omitempty"`
	DeployedAt     time.Time `json:"deployed_at"`
}

// ItemMinted is the payload of item.minted. ExitCode is nil when the
// collection's outcome was not observed.
type ItemMinted struct {
	Collection  string    `json:"collection"`
	ItemIndex   uint64    `json:"item_index"`
	ItemAddress string    `json:"item_address"`
	Owner       string    `json:"owner"`
	QueryID     uint64    `json:"query_id"`
	ExitCode    *int32    `json:"exit_code,omitempty"`
	MintedAt    time.Time `json:"minted_at"`
}
