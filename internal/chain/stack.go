package chain

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Stack is the result tuple of a get method, in tonutils-go representation:
// *big.Int for integers, *cell.Cell and *cell.Slice for cells, nil for null.
type Stack []any

func (s Stack) at(i int) (any, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("stack index %d out of range (len %d)", i, len(s))
	}
	return s[i], nil
}

// Int returns the integer at position i.
func (s Stack) Int(i int) (*big.Int, error) {
	v, err := s.at(i)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("stack[%d]: expected int, got %T", i, v)
	}
	return n, nil
}

// Cell returns the cell at position i. Slices are converted to cells.
func (s Stack) Cell(i int) (*cell.Cell, error) {
	v, err := s.at(i)
	if err != nil {
		return nil, err
	}
	switch c := v.(type) {
	case *cell.Cell:
		return c, nil
	case *cell.Slice:
		return c.ToCell()
	default:
		return nil, fmt.Errorf("stack[%d]: expected cell, got %T", i, v)
	}
}

// Slice returns the slice at position i. Cells are opened for parsing.
func (s Stack) Slice(i int) (*cell.Slice, error) {
	v, err := s.at(i)
	if err != nil {
		return nil, err
	}
	switch c := v.(type) {
	case *cell.Slice:
		return c.Copy(), nil
	case *cell.Cell:
		return c.BeginParse(), nil
	default:
		return nil, fmt.Errorf("stack[%d]: expected slice, got %T", i, v)
	}
}

// Address loads a MsgAddress from the slice at position i.
func (s Stack) Address(i int) (*address.Address, error) {
	sl, err := s.Slice(i)
	if err != nil {
		return nil, err
	}
	addr, err := sl.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("stack[%d]: load address: %w", i, err)
	}
	return addr, nil
}

// AddressSlice wraps an address into a slice the way get methods return it.
func AddressSlice(addr *address.Address) *cell.Slice {
	return cell.BeginCell().MustStoreAddr(addr).EndCell().BeginParse()
}
