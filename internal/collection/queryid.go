package collection

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// QueryIDSource hands out query ids for outgoing messages.
type QueryIDSource interface {
	Next() uint64
}

// QueryIDFunc adapts a function to QueryIDSource.
type QueryIDFunc func() uint64

func (f QueryIDFunc) Next() uint64 { return f() }

// SequentialQueryIDs returns start, start+1, ... Safe for concurrent use.
func SequentialQueryIDs(start uint64) QueryIDSource {
	var n atomic.Uint64
	n.Store(start)
	return QueryIDFunc(func() uint64 {
		return n.Add(1) - 1
	})
}

// RandomQueryIDs derives ids from random UUIDs.
func RandomQueryIDs() QueryIDSource {
	return QueryIDFunc(func() uint64 {
		id := uuid.New()
		return binary.BigEndian.Uint64(id[:8])
	})
}
