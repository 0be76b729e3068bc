package exchange

import (
	"fmt"

	"github.com/google/uuid"
)

// ClientCancelRequest cancels an order by exchange order id.
type ClientCancelRequest struct {
	Asset string
	Oid   uint64
}

// ClientCancelRequestCloid cancels an order by client order id.
type ClientCancelRequestCloid struct {
	Asset string
	Cloid uuid.UUID
}

type CancelRequest struct {
	Asset uint32 `json:"a"`
	Oid   uint64 `json:"o"`
}

type CancelRequestCloid struct {
	Asset uint32 `json:"asset"`
	Cloid string `json:"cloid"` // "0x" + 32 hex digits
}

// NewCancel picks the cancel flavour that matches the reference: a
// ClientCancelRequest for an oid, a ClientCancelRequestCloid for a cloid.
func NewCancel(asset string, ref OidOrCloid) any {
	if cloid, ok := ref.Cloid(); ok {
		return ClientCancelRequestCloid{Asset: asset, Cloid: cloid}
	}
	oid, _ := ref.Oid()
	return ClientCancelRequest{Asset: asset, Oid: oid}
}

func (c ClientCancelRequest) Convert(assets AssetResolver) (CancelRequest, error) {
	asset, ok := assets.AssetIndex(c.Asset)
	if !ok {
		return CancelRequest{}, fmt.Errorf("%w: %s", ErrUnknownAsset, c.Asset)
	}
	return CancelRequest{Asset: asset, Oid: c.Oid}, nil
}

func (c ClientCancelRequestCloid) Convert(assets AssetResolver) (CancelRequestCloid, error) {
	asset, ok := assets.AssetIndex(c.Asset)
	if !ok {
		return CancelRequestCloid{}, fmt.Errorf("%w: %s", ErrUnknownAsset, c.Asset)
	}
	return CancelRequestCloid{Asset: asset, Cloid: CloidToHex(c.Cloid)}, nil
}

// Ref returns the reference the cancel targets.
func (c CancelRequest) Ref() OidOrCloid { return NewOid(c.Oid) }

// Ref returns the reference the cancel targets.
func (c CancelRequestCloid) Ref() (OidOrCloid, error) {
	return decodeCloid(c.Cloid)
}
