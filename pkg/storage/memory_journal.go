package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
)

// MemoryJournal keeps the journal in maps. Entries are copied in and out
// so callers never share state with the journal.
type MemoryJournal struct {
	mu      sync.RWMutex
	orders  map[uint64]OrderEntry
	cloids  map[uuid.UUID]uint64
	pending map[uuid.UUID]OrderEntry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		orders:  make(map[uint64]OrderEntry),
		cloids:  make(map[uuid.UUID]uint64),
		pending: make(map[uuid.UUID]OrderEntry),
	}
}

func (m *MemoryJournal) Record(entry *OrderEntry) error {
	if err := entry.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.Oid == nil {
		m.pending[*entry.Cloid] = copyEntry(entry)
		return nil
	}
	if prev, ok := m.orders[*entry.Oid]; ok && prev.Cloid != nil &&
		(entry.Cloid == nil || *prev.Cloid != *entry.Cloid) {
		delete(m.cloids, *prev.Cloid)
	}
	m.orders[*entry.Oid] = copyEntry(entry)
	if entry.Cloid != nil {
		m.cloids[*entry.Cloid] = *entry.Oid
		delete(m.pending, *entry.Cloid)
	}
	return nil
}

func (m *MemoryJournal) Resolve(ref exchange.OidOrCloid) (uint64, bool, error) {
	if oid, ok := ref.Oid(); ok {
		return oid, true, nil
	}
	cloid, _ := ref.Cloid()

	m.mu.RLock()
	defer m.mu.RUnlock()
	oid, ok := m.cloids[cloid]
	return oid, ok, nil
}

func (m *MemoryJournal) Lookup(ref exchange.OidOrCloid) (*OrderEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.lookupLocked(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	out := copyEntry(&entry)
	return &out, nil
}

func (m *MemoryJournal) lookupLocked(ref exchange.OidOrCloid) (OrderEntry, bool) {
	if oid, ok := ref.Oid(); ok {
		e, found := m.orders[oid]
		return e, found
	}
	cloid, _ := ref.Cloid()
	if oid, ok := m.cloids[cloid]; ok {
		e, found := m.orders[oid]
		return e, found
	}
	e, found := m.pending[cloid]
	return e, found
}

func (m *MemoryJournal) Delete(ref exchange.OidOrCloid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookupLocked(ref)
	if !ok {
		return nil
	}
	if entry.Oid != nil {
		delete(m.orders, *entry.Oid)
	}
	if entry.Cloid != nil {
		delete(m.cloids, *entry.Cloid)
		delete(m.pending, *entry.Cloid)
	}
	return nil
}

// List returns entries with known oids in oid order, then pending ones.
func (m *MemoryJournal) List(coin string) ([]*OrderEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	oids := make([]uint64, 0, len(m.orders))
	for oid := range m.orders {
		oids = append(oids, oid)
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })

	var out []*OrderEntry
	for _, oid := range oids {
		if e := m.orders[oid]; coin == "" || e.Coin == coin {
			c := copyEntry(&e)
			out = append(out, &c)
		}
	}
	for _, e := range m.pending {
		if coin == "" || e.Coin == coin {
			c := copyEntry(&e)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MemoryJournal) LastOid() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last uint64
	for oid := range m.orders {
		if oid > last {
			last = oid
		}
	}
	return last, nil
}

func (m *MemoryJournal) Close() error { return nil }

func copyEntry(e *OrderEntry) OrderEntry {
	out := *e
	if e.Oid != nil {
		oid := *e.Oid
		out.Oid = &oid
	}
	if e.Cloid != nil {
		cloid := *e.Cloid
		out.Cloid = &cloid
	}
	return out
}

var _ Journal = (*MemoryJournal)(nil)
