// Package cache keeps the last known balance of each queried address so the
// CLI can still answer, marked as cached, when every node is unreachable.
package cache

import (
	"sync"
	"time"

	"github.com/mrz1836/dnawallet/internal/chain"
)

// DefaultMaxAge is how long an entry may serve as a fallback.
const DefaultMaxAge = 24 * time.Hour

// BalanceCache stores the last fetched balances.
type BalanceCache struct {
	mu      sync.RWMutex     `json:"-"`
	Entries map[string]Entry `json:"entries"`
}

// Entry is one cached balance. Value is the base-unit decimal string.
type Entry struct {
	Chain     chain.Type `json:"chain"`
	Address   string     `json:"address"`
	Ticker    string     `json:"ticker"`
	Value     string     `json:"value"`
	Decimals  int32      `json:"decimals"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// New creates an empty cache.
func New() *BalanceCache {
	return &BalanceCache{Entries: make(map[string]Entry)}
}

// Key identifies an address balance of one ticker on one chain.
func Key(t chain.Type, address, ticker string) string {
	return string(t) + ":" + address + ":" + ticker
}

// Get returns the entry and its age.
func (c *BalanceCache) Get(t chain.Type, address, ticker string) (Entry, bool, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.Entries[Key(t, address, ticker)]
	if !ok {
		return Entry{}, false, 0
	}
	return e, true, time.Since(e.UpdatedAt)
}

// Put stores a freshly fetched balance.
func (c *BalanceCache) Put(t chain.Type, b *chain.Balance) {
	if b == nil || b.Value == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries[Key(t, b.Address, b.Ticker)] = Entry{
		Chain:     t,
		Address:   b.Address,
		Ticker:    b.Ticker,
		Value:     b.Value.Dec(),
		Decimals:  b.Decimals,
		UpdatedAt: time.Now().UTC(),
	}
}

// Len returns the number of entries.
func (c *BalanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Entries)
}

// Prune removes entries older than maxAge and returns how many were removed.
func (c *BalanceCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for k, e := range c.Entries {
		if e.UpdatedAt.Before(cutoff) {
			delete(c.Entries, k)
			removed++
		}
	}
	return removed
}
