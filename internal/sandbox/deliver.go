package sandbox

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
)

const bouncedPrefix = 0xffffffff

type pending struct {
	from    *address.Address
	msg     chain.Message
	bounced bool
}

// process runs msg and every message it causes to completion. The caller
// holds b.mu.
func (b *Blockchain) process(from *address.Address, msg chain.Message) *chain.Result {
	res := &chain.Result{}
	queue := []pending{{from: from, msg: msg}}
	for len(queue) > 0 {
		if len(res.Transactions) >= maxTraceLength {
			b.logger.Warn("trace limit reached, dropping messages", "dropped", len(queue))
			break
		}
		p := queue[0]
		queue = queue[1:]

		tx, out := b.deliver(p)
		tx.Hash = txHash(&tx)
		res.Transactions = append(res.Transactions, tx)
		b.txs = append(b.txs, tx)
		queue = append(queue, out...)

		b.logger.Debug("transaction",
			"lt", tx.LT,
			"from", tx.From.String(),
			"to", tx.To.String(),
			"value", tx.Value.String(),
			"op", tx.Op,
			"deploy", tx.Deploy,
			"success", tx.Success,
			"exit_code", tx.ExitCode,
		)
	}
	return res
}

func (b *Blockchain) deliver(p pending) (chain.Transaction, []pending) {
	acc := b.accountFor(p.msg.To)
	b.lt++

	tx := chain.Transaction{
		LT:      b.lt,
		From:    p.from,
		To:      p.msg.To,
		Value:   p.msg.Value,
		Bounced: p.bounced,
	}
	if p.msg.Body != nil && p.msg.Body.BitsSize() >= 32 {
		if op, err := p.msg.Body.BeginParse().LoadUInt(32); err == nil {
			tx.Op, tx.HasOp = uint32(op), true
		}
	}
	acc.balance.Add(acc.balance, p.msg.Value.Nano())

	if !acc.active && p.msg.StateInit != nil && p.msg.StateInit.Code != nil {
		addr, err := chain.ContractAddress(acc.addr.Workchain(), p.msg.StateInit)
		if err == nil && chain.SameAddress(addr, acc.addr) {
			acc.code, acc.data, acc.active = p.msg.StateInit.Code, p.msg.StateInit.Data, true
			tx.Deploy = true
		}
	}

	if !acc.active {
		if p.msg.Bounce && !p.bounced {
			return tx, b.abort(acc, &tx, p, ExitCodeUninitialized)
		}
		tx.Success = true
		return tx, nil
	}

	c, ok := b.contractFor(acc)
	if !ok {
		// Wallets and accounts without registered behaviour accept everything.
		tx.Success = true
		return tx, nil
	}

	if acc.balance.Cmp(b.gasFee) < 0 {
		return tx, b.abort(acc, &tx, p, ExitCodeNoGas)
	}
	acc.balance.Sub(acc.balance, b.gasFee)

	out := c.Receive(
		Env{Self: acc.addr, Data: acc.data, Balance: tlb.FromNanoTON(new(big.Int).Set(acc.balance))},
		Inbound{From: p.from, Value: p.msg.Value, Bounce: p.msg.Bounce, Bounced: p.bounced, Body: p.msg.Body},
	)
	if out.ExitCode != 0 {
		return tx, b.abort(acc, &tx, p, out.ExitCode)
	}

	total := new(big.Int)
	for _, m := range out.Out {
		total.Add(total, m.Value.Nano())
	}
	if total.Cmp(acc.balance) > 0 {
		return tx, b.abort(acc, &tx, p, ExitCodeNotEnoughFunds)
	}
	acc.balance.Sub(acc.balance, total)
	if out.Data != nil {
		acc.data = out.Data
	}
	tx.Success = true

	next := make([]pending, 0, len(out.Out))
	for _, m := range out.Out {
		next = append(next, pending{from: acc.addr, msg: m})
	}
	return tx, next
}

// abort marks tx failed, undoes a deploy made by the same message and bounces
// the remaining value when the message asked for it.
func (b *Blockchain) abort(acc *account, tx *chain.Transaction, p pending, code int32) []pending {
	tx.Success = false
	tx.Aborted = true
	tx.ExitCode = code
	if tx.Deploy {
		acc.active, acc.code, acc.data = false, nil, nil
		tx.Deploy = false
	}

	if !p.msg.Bounce || p.bounced {
		return nil
	}

	refund := new(big.Int).Sub(p.msg.Value.Nano(), b.gasFee)
	if refund.Sign() <= 0 || refund.Cmp(acc.balance) > 0 {
		return nil
	}
	acc.balance.Sub(acc.balance, refund)

	return []pending{{
		from:    acc.addr,
		bounced: true,
		msg: chain.Message{
			To:    p.from,
			Value: tlb.FromNanoTON(refund),
			Body:  bouncedBody(p.msg.Body),
		},
	}}
}

// bouncedBody is 0xffffffff followed by the leading bits of the original body.
func bouncedBody(orig *cell.Cell) *cell.Cell {
	b := cell.BeginCell().MustStoreUInt(bouncedPrefix, 32)
	if orig == nil {
		return b.EndCell()
	}
	s := orig.BeginParse()
	n := s.BitsLeft()
	if n > 256 {
		n = 256
	}
	if data, err := s.LoadSlice(n); err == nil {
		b.MustStoreSlice(data, n)
	}
	return b.EndCell()
}

func txHash(tx *chain.Transaction) []byte {
	h := sha256.New()
	var lt [8]byte
	binary.BigEndian.PutUint64(lt[:], tx.LT)
	h.Write(lt[:])
	if tx.From != nil {
		h.Write(tx.From.Data())
	}
	h.Write(tx.To.Data())
	h.Write(tx.Value.Nano().Bytes())
	return h.Sum(nil)
}
