package content

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

const (
	// OnchainPrefix tags a content cell whose attributes live in an on-chain dictionary.
	OnchainPrefix = 0x00
	// SnakePrefix tags an attribute value stored as snake data.
	SnakePrefix = 0x00

	// MaxValueLen bounds a single attribute value in bytes. Longer values are
	// rejected rather than truncated.
	MaxValueLen = 32 * 1024
)

// Attribute names recognised by the collection and item contracts.
const (
	AttrName        = "name"
	AttrDescription = "description"
	AttrImage       = "image"
)

var (
	ErrEmptyName        = errors.New("metadata name is empty")
	ErrEmptyDescription = errors.New("metadata description is empty")
	ErrValueTooLarge    = errors.New("metadata value exceeds maximum length")
)

// Metadata is the human-readable description of a collection or an item.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Validate checks the fields every content cell must carry.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return ErrEmptyName
	}
	if m.Description == "" {
		return ErrEmptyDescription
	}
	for _, v := range []string{m.Name, m.Description, m.Image} {
		if len(v) > MaxValueLen {
			return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(v))
		}
	}
	return nil
}

// BuildCollectionContentCell encodes collection metadata as an on-chain content cell.
func BuildCollectionContentCell(m Metadata) (*cell.Cell, error) {
	c, err := build(m)
	if err != nil {
		return nil, fmt.Errorf("build collection content: %w", err)
	}
	return c, nil
}

// BuildItemContentCell encodes the metadata of a single item. The layout is the
// same as for the collection; the item contract stores it verbatim.
func BuildItemContentCell(m Metadata) (*cell.Cell, error) {
	c, err := build(m)
	if err != nil {
		return nil, fmt.Errorf("build item content: %w", err)
	}
	return c, nil
}

// AttributeKey returns the dictionary key of an attribute: sha256 of its name.
func AttributeKey(name string) *big.Int {
	h := sha256.Sum256([]byte(name))
	return new(big.Int).SetBytes(h[:])
}

func build(m Metadata) (*cell.Cell, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	dict := cell.NewDict(256)
	attrs := []struct {
		name  string
		value string
	}{
		{AttrName, m.Name},
		{AttrDescription, m.Description},
		{AttrImage, m.Image},
	}
	for _, a := range attrs {
		v, err := snakeValue(a.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a.name, err)
		}
		// dictionary values are references to the snake cell
		leaf := cell.BeginCell()
		if err := leaf.StoreRef(v); err != nil {
			return nil, fmt.Errorf("store %s ref: %w", a.name, err)
		}
		if err := dict.SetIntKey(AttributeKey(a.name), leaf.EndCell()); err != nil {
			return nil, fmt.Errorf("set %s: %w", a.name, err)
		}
	}

	root := cell.BeginCell()
	if err := root.StoreUInt(OnchainPrefix, 8); err != nil {
		return nil, err
	}
	if err := root.StoreDict(dict); err != nil {
		return nil, fmt.Errorf("store attributes: %w", err)
	}
	return root.EndCell(), nil
}

func snakeValue(v string) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreUInt(SnakePrefix, 8); err != nil {
		return nil, err
	}
	if err := b.StoreStringSnake(v); err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}
