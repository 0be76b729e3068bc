package exchange

import "errors"

var (
	// ErrInvalidOid is returned when a wire number is negative, fractional,
	// or does not fit in 64 bits.
	ErrInvalidOid = errors.New("invalid oid number")

	// ErrInvalidCloid is returned when a wire string is not a UUID once the
	// optional 0x prefix is stripped.
	ErrInvalidCloid = errors.New("invalid cloid")

	// ErrUnsupportedOidShape is returned for wire values that are neither a
	// number nor a string.
	ErrUnsupportedOidShape = errors.New("oid must be number or string")

	ErrUnknownAsset   = errors.New("unknown asset")
	ErrFloatPrecision = errors.New("float loses precision on the wire")
	ErrUnknownAction  = errors.New("unknown action type")
)
