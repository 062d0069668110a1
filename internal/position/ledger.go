package position

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Ledger stores positions in an arena addressed through a key -> slot index.
type Ledger struct {
	slots []Info
	keys  []Key
	index map[Key]int

	recording bool
	journal   []change
}

type change struct {
	key     Key
	prev    Info
	existed bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{index: make(map[Key]int)}
}

// Get returns a copy of the position stored under key.
func (l *Ledger) Get(key Key) (Info, bool) {
	slot, ok := l.index[key]
	if !ok {
		return Info{}, false
	}
	return l.slots[slot].Clone(), true
}

// Keys returns the keys of every stored position in insertion order.
func (l *Ledger) Keys() []Key {
	keys := make([]Key, 0, len(l.index))
	for _, key := range l.keys {
		if _, ok := l.index[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Update credits accrued fees to the position and applies liquidityDelta. The
// position is created on first use.
func (l *Ledger) Update(key Key, liquidityDelta *big.Int, feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) (Info, error) {
	current, ok := l.lookup(key)
	if !ok {
		current = emptyInfo()
	}
	next, err := current.accrue(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128)
	if err != nil {
		return Info{}, err
	}
	l.put(key, next)
	return next.Clone(), nil
}

// Credit adds amounts to the tokens owed of an existing position.
func (l *Ledger) Credit(key Key, amount0, amount1 *uint256.Int) {
	current, ok := l.lookup(key)
	if !ok {
		return
	}
	next := current.Clone()
	next.TokensOwed0.Add(next.TokensOwed0, amount0)
	next.TokensOwed1.Add(next.TokensOwed1, amount1)
	l.put(key, next)
}

// Collect debits up to the requested amounts from tokens owed and returns what was taken.
func (l *Ledger) Collect(key Key, requested0, requested1 *uint256.Int) (*uint256.Int, *uint256.Int) {
	current, ok := l.lookup(key)
	if !ok {
		return new(uint256.Int), new(uint256.Int)
	}
	amount0 := minUint(requested0, current.TokensOwed0)
	amount1 := minUint(requested1, current.TokensOwed1)
	if amount0.IsZero() && amount1.IsZero() {
		return amount0, amount1
	}
	next := current.Clone()
	next.TokensOwed0.Sub(next.TokensOwed0, amount0)
	next.TokensOwed1.Sub(next.TokensOwed1, amount1)
	l.put(key, next)
	return amount0, amount1
}

// Begin starts recording changes so they can be undone with Rollback.
func (l *Ledger) Begin() {
	l.recording = true
	l.journal = l.journal[:0]
}

// Commit keeps every change made since Begin.
func (l *Ledger) Commit() {
	l.recording = false
	l.journal = l.journal[:0]
}

// Rollback undoes every change made since Begin.
func (l *Ledger) Rollback() {
	l.recording = false
	for i := len(l.journal) - 1; i >= 0; i-- {
		c := l.journal[i]
		if c.existed {
			l.write(c.key, c.prev)
			continue
		}
		if slot, ok := l.index[c.key]; ok {
			delete(l.index, c.key)
			l.slots = l.slots[:slot]
			l.keys = l.keys[:slot]
		}
	}
	l.journal = l.journal[:0]
}

func (l *Ledger) lookup(key Key) (Info, bool) {
	slot, ok := l.index[key]
	if !ok {
		return Info{}, false
	}
	return l.slots[slot], true
}

func (l *Ledger) put(key Key, info Info) {
	if l.recording {
		prev, existed := l.lookup(key)
		if existed {
			prev = prev.Clone()
		}
		l.journal = append(l.journal, change{key: key, prev: prev, existed: existed})
	}
	l.write(key, info)
}

func (l *Ledger) write(key Key, info Info) {
	if slot, ok := l.index[key]; ok {
		l.slots[slot] = info
		return
	}
	l.index[key] = len(l.slots)
	l.slots = append(l.slots, info)
	l.keys = append(l.keys, key)
}

func minUint(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}
