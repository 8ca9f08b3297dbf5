package chain

import (
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
)

// Transaction is the observable outcome of one message delivery.
type Transaction struct {
	LT       uint64
	Hash     []byte
	From     *address.Address
	To       *address.Address
	Value    tlb.Coins
	Op       uint32
	HasOp    bool
	Bounced  bool
	Deploy   bool
	Success  bool
	Aborted  bool
	ExitCode int32
}

// Result collects the transactions caused by a single send.
type Result struct {
	Transactions []Transaction
}

// Match selects transactions; nil fields match anything.
type Match struct {
	From     *address.Address
	To       *address.Address
	Op       *uint32
	Deploy   *bool
	Success  *bool
	Aborted  *bool
	ExitCode *int32
}

func (m Match) matches(tx *Transaction) bool {
	if m.From != nil && !SameAddress(m.From, tx.From) {
		return false
	}
	if m.To != nil && !SameAddress(m.To, tx.To) {
		return false
	}
	if m.Op != nil && (!tx.HasOp || tx.Op != *m.Op) {
		return false
	}
	if m.Deploy != nil && tx.Deploy != *m.Deploy {
		return false
	}
	if m.Success != nil && tx.Success != *m.Success {
		return false
	}
	if m.Aborted != nil && tx.Aborted != *m.Aborted {
		return false
	}
	if m.ExitCode != nil && tx.ExitCode != *m.ExitCode {
		return false
	}
	return true
}

// Find returns the first transaction that satisfies m.
func (r *Result) Find(m Match) (*Transaction, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Transactions {
		if m.matches(&r.Transactions[i]) {
			return &r.Transactions[i], true
		}
	}
	return nil, false
}

// Has reports whether any transaction satisfies m.
func (r *Result) Has(m Match) bool {
	_, ok := r.Find(m)
	return ok
}

// Outcome returns the first transaction delivered to addr.
func (r *Result) Outcome(addr *address.Address) (*Transaction, bool) {
	return r.Find(Match{To: addr})
}

func Bool(v bool) *bool { return &v }

func Int32(v int32) *int32 { return &v }

func Uint32(v uint32) *uint32 { return &v }
