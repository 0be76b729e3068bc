package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
)

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// Meta fetches the perp universe.
func (c *Client) Meta(ctx context.Context) (*exchange.Universe, error) {
	var meta exchange.Meta
	if err := c.post(ctx, "/info", infoRequest{Type: "meta"}, &meta); err != nil {
		return nil, err
	}
	if len(meta.Universe) == 0 {
		return nil, fmt.Errorf("empty asset universe")
	}
	return exchange.NewUniverse(meta.Universe), nil
}

// OrderStatus queries one order of user by oid or cloid. The reference
// travels in the "oid" field either way; its JSON shape tells them apart.
func (c *Client) OrderStatus(ctx context.Context, user common.Address, ref exchange.OidOrCloid) (*exchange.OrderStatusResponse, error) {
	req := exchange.OrderStatusRequest{Type: "orderStatus", User: strings.ToLower(user.Hex()), Oid: ref}

	var resp exchange.OrderStatusResponse
	if err := c.post(ctx, "/info", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OpenOrders lists the resting orders of user.
func (c *Client) OpenOrders(ctx context.Context, user common.Address) ([]exchange.BasicOrder, error) {
	var orders []exchange.BasicOrder
	if err := c.post(ctx, "/info", infoRequest{Type: "openOrders", User: strings.ToLower(user.Hex())}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
