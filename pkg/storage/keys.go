package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
)

// Journal key schema for Pebble storage
//
//   ord:<oid>     → OrderEntry (oid zero-padded to 20 digits so keys sort numerically)
//   cl:<cloid>    → oid, 8 bytes big-endian (cloid in 0x form)
//   pend:<cloid>  → OrderEntry submitted with a cloid, no oid assigned yet

const (
	prefixOrder   = "ord:"
	prefixCloid   = "cl:"
	prefixPending = "pend:"
)

// orderKey returns the key for an order with a known oid
// Format: "ord:{oid:020d}"
func orderKey(oid uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, oid))
}

// cloidKey returns the index key binding a cloid to its oid
// Format: "cl:0x{hex}"
func cloidKey(cloid uuid.UUID) []byte {
	return []byte(prefixCloid + exchange.CloidToHex(cloid))
}

// pendingKey returns the key for an order still waiting for its oid
// Format: "pend:0x{hex}"
func pendingKey(cloid uuid.UUID) []byte {
	return []byte(prefixPending + exchange.CloidToHex(cloid))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
