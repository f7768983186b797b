package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// DefaultMemoryEntries bounds the in-memory layer. Step artifacts are small
// JSON documents; the bound exists to keep long-lived processes flat.
const DefaultMemoryEntries = 1024

// Memory is the mandatory in-memory cache layer, an LRU keyed by
// fingerprint. It is safe for concurrent use.
type Memory struct {
	lru *lru.Cache[Fingerprint, *transport.Result]
}

// NewMemory creates an in-memory layer holding up to maxEntries results.
// A non-positive maxEntries uses DefaultMemoryEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	// lru.New only fails on a non-positive size, which is guarded above.
	c, _ := lru.New[Fingerprint, *transport.Result](maxEntries)
	return &Memory{lru: c}
}

// Get returns the cached result for fp, if present.
func (m *Memory) Get(fp Fingerprint) (*transport.Result, bool) {
	return m.lru.Get(fp)
}

// Put stores res under fp.
func (m *Memory) Put(fp Fingerprint, res *transport.Result) {
	m.lru.Add(fp, res)
}
