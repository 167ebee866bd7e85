// Package cache implementa la caché de disponibles del camino de lectura.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

type memEntry struct {
	available int64
	expires   time.Time
}

// Memory es una caché en proceso con expiración por entrada.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[entity.StockKey]memEntry
	gens    map[entity.StockKey]uint64
	now     func() time.Time
}

var _ inventory.AvailabilityCache = (*Memory)(nil)

// NewMemory crea la caché; ttl <= 0 deja las entradas vigentes hasta su invalidación.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[entity.StockKey]memEntry),
		gens:    make(map[entity.StockKey]uint64),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key entity.StockKey) (int64, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return 0, false
	}
	return e.available, true
}

func (m *Memory) Generation(_ context.Context, key entity.StockKey) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gens[key], true
}

// Set descarta el valor si la clave se invalidó después de leer gen.
func (m *Memory) Set(_ context.Context, key entity.StockKey, available int64, gen uint64) {
	e := memEntry{available: available}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[key] != gen {
		return
	}
	m.entries[key] = e
}

func (m *Memory) Invalidate(_ context.Context, keys ...entity.StockKey) {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
		m.gens[k]++
	}
	m.mu.Unlock()
}

// Len cuenta las entradas guardadas, vigentes o no.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
