package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

type refKind uint8

const (
	refOid refKind = iota
	refCloid
)

// maxExactFloat is the largest integer a float64 holds without rounding.
const maxExactFloat = 1 << 53

// OidOrCloid references an order either by the exchange-assigned order id
// or by the client order id it was placed with.
//
// On the wire the two variants share no tag: an oid is a JSON number and a
// cloid is a JSON string ("0x" + 32 hex digits). The zero value is Oid(0).
type OidOrCloid struct {
	kind  refKind
	oid   uint64
	cloid uuid.UUID
}

// NewOid references an order by exchange order id.
func NewOid(oid uint64) OidOrCloid {
	return OidOrCloid{kind: refOid, oid: oid}
}

// NewCloid references an order by client order id.
func NewCloid(cloid uuid.UUID) OidOrCloid {
	return OidOrCloid{kind: refCloid, cloid: cloid}
}

// Oid returns the exchange order id and true if r is the oid variant.
func (r OidOrCloid) Oid() (uint64, bool) {
	return r.oid, r.kind == refOid
}

// Cloid returns the client order id and true if r is the cloid variant.
func (r OidOrCloid) Cloid() (uuid.UUID, bool) {
	return r.cloid, r.kind == refCloid
}

// IsCloid reports whether r is a client order id.
func (r OidOrCloid) IsCloid() bool { return r.kind == refCloid }

// String returns the wire text of r: the decimal oid or the 0x-prefixed cloid.
func (r OidOrCloid) String() string {
	if r.kind == refCloid {
		return CloidToHex(r.cloid)
	}
	return strconv.FormatUint(r.oid, 10)
}

// Encode returns the wire value of r, either a uint64 or a string.
func (r OidOrCloid) Encode() any {
	if r.kind == refCloid {
		return CloidToHex(r.cloid)
	}
	return r.oid
}

func (r OidOrCloid) MarshalJSON() ([]byte, error) {
	if r.kind == refCloid {
		return json.Marshal(CloidToHex(r.cloid))
	}
	return strconv.AppendUint(nil, r.oid, 10), nil
}

// UnmarshalJSON picks the variant from the shape of the literal alone:
// numbers are oids, strings are cloids.
func (r *OidOrCloid) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty value", ErrUnsupportedOidShape)
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCloid, err)
		}
		ref, err := decodeCloid(s)
		if err != nil {
			return err
		}
		*r = ref
		return nil

	case c == '-' || (c >= '0' && c <= '9'):
		ref, err := decodeOid(string(data))
		if err != nil {
			return err
		}
		*r = ref
		return nil

	default:
		return fmt.Errorf("%w: got %s", ErrUnsupportedOidShape, shapeOf(data))
	}
}

// DecodeOidOrCloid converts a generic decoded wire value into a reference.
// It accepts the values encoding/json produces for an untyped field
// (string, float64 or json.Number) as well as native Go integers.
func DecodeOidOrCloid(v any) (OidOrCloid, error) {
	switch x := v.(type) {
	case OidOrCloid:
		return x, nil
	case string:
		return decodeCloid(x)
	case json.Number:
		return decodeOid(x.String())
	case float64:
		return decodeOidFloat(x)
	case float32:
		return decodeOidFloat(float64(x))
	case uint64:
		return NewOid(x), nil
	case uint:
		return NewOid(uint64(x)), nil
	case uint32:
		return NewOid(uint64(x)), nil
	case uint16:
		return NewOid(uint64(x)), nil
	case uint8:
		return NewOid(uint64(x)), nil
	case int64:
		return decodeOidSigned(x)
	case int:
		return decodeOidSigned(int64(x))
	case int32:
		return decodeOidSigned(int64(x))
	case int16:
		return decodeOidSigned(int64(x))
	case int8:
		return decodeOidSigned(int64(x))
	default:
		return OidOrCloid{}, fmt.Errorf("%w: got %T", ErrUnsupportedOidShape, v)
	}
}

// ParseRef reads a reference typed by a person, e.g. a command-line flag.
// Text that parses as a uint64 is an oid, anything else must be a cloid.
// The two cannot collide: a uint64 has at most 20 digits and a cloid has 32.
func ParseRef(s string) (OidOrCloid, error) {
	if oid, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NewOid(oid), nil
	}
	return decodeCloid(s)
}

func decodeOid(text string) (OidOrCloid, error) {
	oid, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return OidOrCloid{}, fmt.Errorf("%w: %s", ErrInvalidOid, text)
	}
	return NewOid(oid), nil
}

func decodeOidFloat(f float64) (OidOrCloid, error) {
	if f < 0 || f > maxExactFloat || f != math.Trunc(f) {
		return OidOrCloid{}, fmt.Errorf("%w: %v", ErrInvalidOid, f)
	}
	return NewOid(uint64(f)), nil
}

func decodeOidSigned(n int64) (OidOrCloid, error) {
	if n < 0 {
		return OidOrCloid{}, fmt.Errorf("%w: %d", ErrInvalidOid, n)
	}
	return NewOid(uint64(n)), nil
}

func decodeCloid(s string) (OidOrCloid, error) {
	cloid, err := ParseCloid(s)
	if err != nil {
		return OidOrCloid{}, fmt.Errorf("%w %q: %w", ErrInvalidCloid, s, err)
	}
	return NewCloid(cloid), nil
}

func shapeOf(data []byte) string {
	switch data[0] {
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "invalid literal"
	}
}
