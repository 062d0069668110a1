package vault

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

type balanceKey struct {
	token  common.Address
	holder common.Address
}

type journalEntry struct {
	key  balanceKey
	prev *uint256.Int
}

// Vault is an in-memory token ledger shared by every pool of an engine. Changes
// made after Snapshot can be undone with RevertToSnapshot.
type Vault struct {
	mu        sync.Mutex
	balances  map[balanceKey]*uint256.Int
	journal   []journalEntry
	snapshots []int
}

// New returns an empty vault.
func New() *Vault {
	return &Vault{balances: make(map[balanceKey]*uint256.Int)}
}

// Mint credits amount of token to holder out of thin air.
func (v *Vault) Mint(token, holder common.Address, amount *uint256.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := balanceKey{token: token, holder: holder}
	v.set(key, new(uint256.Int).Add(v.balance(key), amount))
}

// Transfer moves amount of token from one holder to another.
func (v *Vault) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.IsZero() {
		return nil
	}
	fromKey := balanceKey{token: token, holder: from}
	fromBalance := v.balance(fromKey)
	if fromBalance.Lt(amount) {
		return fmt.Errorf("transfer %s of %s: %w", amount.ToBig(), token.Hex(), ErrInsufficientBalance)
	}
	v.set(fromKey, new(uint256.Int).Sub(fromBalance, amount))

	toKey := balanceKey{token: token, holder: to}
	v.set(toKey, new(uint256.Int).Add(v.balance(toKey), amount))
	return nil
}

// BalanceOf returns the balance of token held by holder.
func (v *Vault) BalanceOf(token, holder common.Address) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance(balanceKey{token: token, holder: holder}).Clone()
}

// Snapshot returns an identifier for the current state.
func (v *Vault) Snapshot() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshots = append(v.snapshots, len(v.journal))
	return len(v.snapshots) - 1
}

// RevertToSnapshot undoes every change made since the snapshot was taken and
// invalidates it together with every later snapshot.
func (v *Vault) RevertToSnapshot(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id < 0 || id >= len(v.snapshots) {
		return
	}
	mark := v.snapshots[id]
	for i := len(v.journal) - 1; i >= mark; i-- {
		entry := v.journal[i]
		if entry.prev == nil {
			delete(v.balances, entry.key)
		} else {
			v.balances[entry.key] = entry.prev
		}
	}
	v.journal = v.journal[:mark]
	v.snapshots = v.snapshots[:id]
	v.trim()
}

// ReleaseSnapshot keeps the changes made since the snapshot and invalidates it
// together with every later snapshot.
func (v *Vault) ReleaseSnapshot(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id < 0 || id >= len(v.snapshots) {
		return
	}
	v.snapshots = v.snapshots[:id]
	v.trim()
}

func (v *Vault) trim() {
	if len(v.snapshots) == 0 {
		v.journal = v.journal[:0]
	}
}

func (v *Vault) balance(key balanceKey) *uint256.Int {
	if b, ok := v.balances[key]; ok {
		return b
	}
	return new(uint256.Int)
}

func (v *Vault) set(key balanceKey, amount *uint256.Int) {
	if len(v.snapshots) > 0 {
		// a nil prev marks a balance that did not exist yet
		v.journal = append(v.journal, journalEntry{key: key, prev: v.balances[key]})
	}
	v.balances[key] = amount
}
