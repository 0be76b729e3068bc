package exchange

import "fmt"

// ClientModifyRequest replaces the open order referenced by Oid with Order.
type ClientModifyRequest struct {
	Oid   OidOrCloid
	Order ClientOrderRequest
}

// ModifyRequest is the wire form of ClientModifyRequest.
type ModifyRequest struct {
	Oid   OidOrCloid   `json:"oid"`
	Order OrderRequest `json:"order"`
}

// Convert renders the replacement order for the wire; the reference is
// carried over unchanged.
func (m ClientModifyRequest) Convert(assets AssetResolver) (ModifyRequest, error) {
	order, err := m.Order.Convert(assets)
	if err != nil {
		return ModifyRequest{}, fmt.Errorf("modify %s: %w", m.Oid, err)
	}
	return ModifyRequest{Oid: m.Oid, Order: order}, nil
}
