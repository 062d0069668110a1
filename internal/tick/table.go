package tick

import (
	"math/big"
	"slices"

	"liquidityEngine/internal/clmath"
)

// Table stores tick data in a flat arena addressed through a tick -> slot index.
// Initialized ticks are additionally kept in ascending order for neighbour lookup.
type Table struct {
	slots       []Info
	index       map[int32]int
	free        []int
	initialized []int32

	recording bool
	journal   []change
}

type change struct {
	tick    int32
	prev    Info
	existed bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[int32]int)}
}

// Get returns a copy of the data stored at tick.
func (t *Table) Get(tick int32) (Info, bool) {
	info, ok := t.lookup(tick)
	if !ok {
		return Info{}, false
	}
	return info.Clone(), true
}

// Len returns the number of allocated ticks.
func (t *Table) Len() int {
	return len(t.index)
}

// Initialized returns the initialized ticks in ascending order.
func (t *Table) Initialized() []int32 {
	return slices.Clone(t.initialized)
}

// NextInitialized returns the nearest initialized tick at or below tick when lte is
// set, otherwise the nearest one strictly above. When none exists the price range
// bound in that direction is returned with ok false.
func (t *Table) NextInitialized(tick int32, lte bool) (int32, bool) {
	if lte {
		pos, found := slices.BinarySearch(t.initialized, tick)
		if found {
			return tick, true
		}
		if pos == 0 {
			return clmath.MinTick, false
		}
		return t.initialized[pos-1], true
	}
	pos, found := slices.BinarySearch(t.initialized, tick)
	if found {
		pos++
	}
	if pos >= len(t.initialized) {
		return clmath.MaxTick, false
	}
	return t.initialized[pos], true
}

// LiquidityNetSum returns the sum of liquidityNet over every tick.
func (t *Table) LiquidityNetSum() *big.Int {
	sum := new(big.Int)
	for _, slot := range t.index {
		sum.Add(sum, t.slots[slot].LiquidityNet)
	}
	return sum
}

// Begin starts recording changes so they can be undone with Rollback.
func (t *Table) Begin() {
	t.recording = true
	t.journal = t.journal[:0]
}

// Commit keeps every change made since Begin.
func (t *Table) Commit() {
	t.recording = false
	t.journal = t.journal[:0]
}

// Rollback undoes every change made since Begin, newest first.
func (t *Table) Rollback() {
	t.recording = false
	for i := len(t.journal) - 1; i >= 0; i-- {
		c := t.journal[i]
		if c.existed {
			t.write(c.tick, c.prev)
		} else {
			t.drop(c.tick)
		}
	}
	t.journal = t.journal[:0]
}

func (t *Table) lookup(tick int32) (Info, bool) {
	slot, ok := t.index[tick]
	if !ok {
		return Info{}, false
	}
	return t.slots[slot], true
}

func (t *Table) record(tick int32) {
	if !t.recording {
		return
	}
	prev, existed := t.lookup(tick)
	if existed {
		prev = prev.Clone()
	}
	t.journal = append(t.journal, change{tick: tick, prev: prev, existed: existed})
}

func (t *Table) put(tick int32, info Info) {
	t.record(tick)
	t.write(tick, info)
}

func (t *Table) remove(tick int32) {
	t.record(tick)
	t.drop(tick)
}

func (t *Table) write(tick int32, info Info) {
	slot, ok := t.index[tick]
	if !ok {
		if n := len(t.free); n > 0 {
			slot = t.free[n-1]
			t.free = t.free[:n-1]
			t.slots[slot] = info
		} else {
			slot = len(t.slots)
			t.slots = append(t.slots, info)
		}
		t.index[tick] = slot
	} else {
		t.slots[slot] = info
	}

	pos, found := slices.BinarySearch(t.initialized, tick)
	switch {
	case info.Initialized && !found:
		t.initialized = slices.Insert(t.initialized, pos, tick)
	case !info.Initialized && found:
		t.initialized = slices.Delete(t.initialized, pos, pos+1)
	}
}

func (t *Table) drop(tick int32) {
	slot, ok := t.index[tick]
	if !ok {
		return
	}
	delete(t.index, tick)
	t.slots[slot] = Info{}
	t.free = append(t.free, slot)
	if pos, found := slices.BinarySearch(t.initialized, tick); found {
		t.initialized = slices.Delete(t.initialized, pos, pos+1)
	}
}
