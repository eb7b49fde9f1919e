// Package cache memoizes search results in two tiers: a small
// in-process TTL cache for hot queries and an SQLite-backed store that
// survives restarts and doubles as a movie catalog.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"filmseek/movie"
)

const (
	// DefaultMemoryTTL bounds staleness of the in-process tier.
	DefaultMemoryTTL = 10 * time.Minute
	// DefaultMemorySize bounds distinct (query, limit) pairs held.
	DefaultMemorySize = 256
)

// Memory is the in-process cache tier. Safe for concurrent use.
type Memory struct {
	lru *expirable.LRU[string, []movie.Record]
}

// NewMemory creates a Memory cache. Non-positive size or ttl fall back
// to the defaults.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []movie.Record](size, nil, ttl)}
}

// Get returns cached results for the query and limit, if fresh.
func (m *Memory) Get(query string, maxResults int) ([]movie.Record, bool) {
	return m.lru.Get(memoryKey(query, maxResults))
}

// Set caches results for the query and limit.
func (m *Memory) Set(query string, maxResults int, records []movie.Record) {
	m.lru.Add(memoryKey(query, maxResults), records)
}

// Len reports held entries, expired ones included until eviction.
func (m *Memory) Len() int { return m.lru.Len() }

// Purge drops every entry.
func (m *Memory) Purge() { m.lru.Purge() }

func memoryKey(query string, maxResults int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(query)), maxResults)
}
