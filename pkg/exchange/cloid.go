package exchange

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// cloidPrefix marks a client order id on the wire.
const cloidPrefix = "0x"

// NewCloidFunc generates client order ids. Tests may replace it.
var NewCloidFunc = uuid.New

// NewRandomCloid returns a fresh random client order id.
func NewRandomCloid() uuid.UUID { return NewCloidFunc() }

// CloidToHex renders a client order id in its canonical wire form:
// "0x" followed by 32 lowercase hex digits, no dashes.
func CloidToHex(cloid uuid.UUID) string {
	return cloidPrefix + hex.EncodeToString(cloid[:])
}

// ParseCloid parses a client order id. The 0x prefix is optional and the
// remainder may be dashed or undashed.
func ParseCloid(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimPrefix(s, cloidPrefix))
}
