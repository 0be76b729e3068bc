package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
)

var ErrNotFound = errors.New("order not found")

// OrderStatus tracks an order through its life on the exchange.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending" // submitted, no oid yet
	StatusOpen     OrderStatus = "open"
	StatusFilled   OrderStatus = "filled"
	StatusCanceled OrderStatus = "canceled"
	StatusRejected OrderStatus = "rejected"
)

// OrderEntry is what the journal remembers about one order.
type OrderEntry struct {
	User      string      `json:"user,omitempty"` // lowercase hex; set by the simulator
	Coin      string      `json:"coin"`
	Oid       *uint64     `json:"oid,omitempty"`   // set once the exchange assigns it
	Cloid     *uuid.UUID  `json:"cloid,omitempty"` // set if placed with a client id
	IsBuy     bool        `json:"isBuy"`
	LimitPx   string      `json:"limitPx"`
	Sz        string      `json:"sz"`
	Status    OrderStatus `json:"status"`
	UpdatedAt int64       `json:"updatedAt"` // Unix milliseconds
}

// Ref returns the most specific reference to the order: its oid when
// known, otherwise its cloid.
func (e *OrderEntry) Ref() exchange.OidOrCloid {
	if e.Oid != nil {
		return exchange.NewOid(*e.Oid)
	}
	if e.Cloid != nil {
		return exchange.NewCloid(*e.Cloid)
	}
	return exchange.OidOrCloid{}
}

func (e *OrderEntry) validate() error {
	if e.Oid == nil && e.Cloid == nil {
		return fmt.Errorf("order entry needs an oid or a cloid")
	}
	return nil
}

// Journal records orders by oid and keeps a cloid → oid index so either
// kind of reference can be resolved.
type Journal interface {
	// Record inserts or replaces an entry. Recording an entry that carries
	// both ids binds the cloid to the oid.
	Record(entry *OrderEntry) error
	// Lookup returns ErrNotFound when nothing matches ref.
	Lookup(ref exchange.OidOrCloid) (*OrderEntry, error)
	// Resolve maps ref to an exchange oid. An oid resolves to itself.
	Resolve(ref exchange.OidOrCloid) (uint64, bool, error)
	Delete(ref exchange.OidOrCloid) error
	// List returns entries for coin, or all entries when coin is empty.
	List(coin string) ([]*OrderEntry, error)
	// LastOid returns the highest oid recorded, or 0.
	LastOid() (uint64, error)
	Close() error
}
