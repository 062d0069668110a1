package dex

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidityEngine/internal/model"
)

// addressCache is a concurrency-safe map keyed by contract address.
type addressCache[T any] struct {
	mu      sync.RWMutex
	entries map[common.Address]T
}

func (c *addressCache[T]) get(address common.Address) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[address]
	return v, ok
}

func (c *addressCache[T]) put(address common.Address, v T) {
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[common.Address]T)
	}
	c.entries[address] = v
	c.mu.Unlock()
}

// PoolMetaCache maps pool addresses to their immutable configuration.
type PoolMetaCache struct {
	cache addressCache[model.PoolMeta]
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{}
}

func (c *PoolMetaCache) Get(pool common.Address) (model.PoolMeta, bool) {
	return c.cache.get(pool)
}

// Set records meta for pool. Fields left empty in meta keep their cached value.
func (c *PoolMetaCache) Set(pool common.Address, meta model.PoolMeta) {
	if prev, ok := c.cache.get(pool); ok {
		meta = meta.Merge(prev)
	}
	c.cache.put(pool, meta)
}

// TokenMetaCache maps token addresses to their display metadata.
type TokenMetaCache struct {
	cache addressCache[model.TokenMeta]
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{}
}

func (c *TokenMetaCache) Get(token common.Address) (model.TokenMeta, bool) {
	return c.cache.get(token)
}

func (c *TokenMetaCache) Set(token common.Address, meta model.TokenMeta) {
	c.cache.put(token, meta)
}

// Decimals returns the cached decimals for token, or fallback when unknown.
func (c *TokenMetaCache) Decimals(token common.Address, fallback uint8) uint8 {
	if c == nil {
		return fallback
	}
	if meta, ok := c.Get(token); ok {
		return meta.Decimals
	}
	return fallback
}
