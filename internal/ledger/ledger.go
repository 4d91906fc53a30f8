// Package ledger reconstructs token balances by replaying transfer events.
package ledger

import (
	"bytes"
	"math"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"seer-airdrop/internal/domain"
)

// Ledger maps holder -> token -> signed balance. Balances are derived only
// from replayed events; the zero address accumulates minus the minted supply.
type Ledger struct {
	balances map[common.Address]map[common.Address]*big.Int
	applied  int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

// Replay builds a ledger from events with timestamp <= cutoff. Event order
// does not affect the result.
func Replay(events []*domain.TransferEvent, cutoff int64) *Ledger {
	l := New()
	l.Apply(events, math.MinInt64, cutoff)
	return l
}

// Apply adds the events with after < timestamp <= cutoff and returns how many
// were applied. Applying (T, T'] on top of Replay(events, T) equals
// Replay(events, T').
func (l *Ledger) Apply(events []*domain.TransferEvent, after, cutoff int64) int {
	n := 0
	for _, e := range events {
		if e == nil || e.Value == nil || e.Timestamp <= after || e.Timestamp > cutoff {
			continue
		}
		l.entry(e.From, e.Token).Sub(l.entry(e.From, e.Token), e.Value)
		l.entry(e.To, e.Token).Add(l.entry(e.To, e.Token), e.Value)
		n++
	}
	l.applied += n
	return n
}

func (l *Ledger) entry(holder, token common.Address) *big.Int {
	tokens, ok := l.balances[holder]
	if !ok {
		tokens = make(map[common.Address]*big.Int)
		l.balances[holder] = tokens
	}
	b, ok := tokens[token]
	if !ok {
		b = new(big.Int)
		tokens[token] = b
	}
	return b
}

// Applied returns the total number of events applied so far.
func (l *Ledger) Applied() int {
	return l.applied
}

// Balance returns a copy of the raw signed balance; missing entries are 0.
func (l *Ledger) Balance(holder, token common.Address) *big.Int {
	if b, ok := l.balances[holder][token]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Raw returns a copy of every entry, including the zero address and
// non-positive balances.
func (l *Ledger) Raw() map[common.Address]map[common.Address]*big.Int {
	out := make(map[common.Address]map[common.Address]*big.Int, len(l.balances))
	for holder, tokens := range l.balances {
		m := make(map[common.Address]*big.Int, len(tokens))
		for token, b := range tokens {
			m[token] = new(big.Int).Set(b)
		}
		out[holder] = m
	}
	return out
}

// Holdings is the holder-facing view: the zero address and non-positive
// balances are dropped, as are holders left with no token.
func (l *Ledger) Holdings() map[common.Address]map[common.Address]*big.Int {
	out := make(map[common.Address]map[common.Address]*big.Int)
	for holder, tokens := range l.balances {
		if holder == domain.ZeroAddress {
			continue
		}
		for token, b := range tokens {
			if b.Sign() <= 0 {
				continue
			}
			m, ok := out[holder]
			if !ok {
				m = make(map[common.Address]*big.Int)
				out[holder] = m
			}
			m[token] = new(big.Int).Set(b)
		}
	}
	return out
}

// Holders returns the holders of Holdings in ascending address order.
func (l *Ledger) Holders() []common.Address {
	h := l.Holdings()
	out := make([]common.Address, 0, len(h))
	for holder := range h {
		out = append(out, holder)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
