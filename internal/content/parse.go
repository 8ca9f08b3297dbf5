package content

import (
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/ton/nft"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// ErrNotOnchain is returned by Parse for content cells that use another layout.
var ErrNotOnchain = errors.New("content is not on-chain")

// Parse decodes an on-chain content cell back into Metadata.
func Parse(c *cell.Cell) (Metadata, error) {
	if c == nil {
		return Metadata{}, fmt.Errorf("parse content: %w", ErrNotOnchain)
	}

	parsed, err := nft.ContentFromCell(c)
	if err != nil {
		return Metadata{}, fmt.Errorf("parse content: %w", err)
	}

	switch v := parsed.(type) {
	case *nft.ContentOnchain:
		return Metadata{Name: v.Name, Description: v.Description, Image: v.Image}, nil
	case *nft.ContentSemichain:
		return Metadata{Name: v.Name, Description: v.Description, Image: v.Image}, nil
	default:
		return Metadata{}, fmt.Errorf("parse content %T: %w", parsed, ErrNotOnchain)
	}
}
