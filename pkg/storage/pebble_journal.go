package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
)

type PebbleJournal struct {
	db *pebble.DB
}

func NewPebbleJournal(path string) (*PebbleJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", path, err)
	}
	return &PebbleJournal{db: db}, nil
}

func (s *PebbleJournal) Close() error { return s.db.Close() }

// Record persists an entry. An entry with both ids moves out of the pending
// space and gets a cloid index row, in one batch.
func (s *PebbleJournal) Record(entry *OrderEntry) error {
	if err := entry.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal order entry: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()

	if entry.Oid == nil {
		if err := b.Set(pendingKey(*entry.Cloid), data, nil); err != nil {
			return fmt.Errorf("failed to stage pending order: %w", err)
		}
	} else {
		prev, err := s.get(orderKey(*entry.Oid), entry.Ref())
		switch {
		case err == nil:
			if prev.Cloid != nil && (entry.Cloid == nil || *prev.Cloid != *entry.Cloid) {
				if err := b.Delete(cloidKey(*prev.Cloid), nil); err != nil {
					return fmt.Errorf("failed to stage stale cloid delete: %w", err)
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := b.Set(orderKey(*entry.Oid), data, nil); err != nil {
			return fmt.Errorf("failed to stage order: %w", err)
		}
		if entry.Cloid != nil {
			var v [8]byte
			binary.BigEndian.PutUint64(v[:], *entry.Oid)
			if err := b.Set(cloidKey(*entry.Cloid), v[:], nil); err != nil {
				return fmt.Errorf("failed to stage cloid index: %w", err)
			}
			if err := b.Delete(pendingKey(*entry.Cloid), nil); err != nil {
				return fmt.Errorf("failed to stage pending delete: %w", err)
			}
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (s *PebbleJournal) Resolve(ref exchange.OidOrCloid) (uint64, bool, error) {
	if oid, ok := ref.Oid(); ok {
		return oid, true, nil
	}
	cloid, _ := ref.Cloid()

	val, closer, err := s.db.Get(cloidKey(cloid))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cloid index: %w", err)
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, false, fmt.Errorf("corrupt cloid index for %s", ref)
	}
	return binary.BigEndian.Uint64(val), true, nil
}

func (s *PebbleJournal) Lookup(ref exchange.OidOrCloid) (*OrderEntry, error) {
	oid, ok, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.get(orderKey(oid), ref)
	}

	cloid, _ := ref.Cloid()
	return s.get(pendingKey(cloid), ref)
}

func (s *PebbleJournal) get(key []byte, ref exchange.OidOrCloid) (*OrderEntry, error) {
	data, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer closer.Close()

	var entry OrderEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &entry, nil
}

func (s *PebbleJournal) Delete(ref exchange.OidOrCloid) error {
	entry, err := s.Lookup(ref)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if entry.Oid != nil {
		if err := b.Delete(orderKey(*entry.Oid), nil); err != nil {
			return fmt.Errorf("failed to stage order delete: %w", err)
		}
	}
	if entry.Cloid != nil {
		if err := b.Delete(cloidKey(*entry.Cloid), nil); err != nil {
			return fmt.Errorf("failed to stage cloid delete: %w", err)
		}
		if err := b.Delete(pendingKey(*entry.Cloid), nil); err != nil {
			return fmt.Errorf("failed to stage pending delete: %w", err)
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *PebbleJournal) List(coin string) ([]*OrderEntry, error) {
	var out []*OrderEntry
	for _, prefix := range []string{prefixOrder, prefixPending} {
		entries, err := s.scan([]byte(prefix), coin)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (s *PebbleJournal) scan(prefix []byte, coin string) ([]*OrderEntry, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var entries []*OrderEntry
	for iter.First(); iter.Valid(); iter.Next() {
		var entry OrderEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue // Skip invalid entries
		}
		if coin == "" || entry.Coin == coin {
			entries = append(entries, &entry)
		}
	}
	return entries, iter.Error()
}

// LastOid reads the last order key; keys are zero-padded so the last one
// holds the highest oid.
func (s *PebbleJournal) LastOid() (uint64, error) {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	oid, err := strconv.ParseUint(strings.TrimPrefix(string(iter.Key()), prefixOrder), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt order key %q: %w", iter.Key(), err)
	}
	return oid, nil
}

var _ Journal = (*PebbleJournal)(nil)
