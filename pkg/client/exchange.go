package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uhyunpark/hlsdk/pkg/crypto"
	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/storage"
)

var ErrNoSigner = errors.New("client has no private key")

// ExchangePayload is the body of POST /exchange.
type ExchangePayload struct {
	Action       json.RawMessage  `json:"action"`
	Nonce        uint64           `json:"nonce"`
	Signature    crypto.Signature `json:"signature"`
	VaultAddress *string          `json:"vaultAddress"`
}

// Result is a decoded "ok" answer from the exchange endpoint.
type Result struct {
	Type     string
	Statuses []exchange.Status
}

// Order places orders. Orders carrying a cloid are journaled as pending
// before submission and bound to their oid once the exchange answers.
func (c *Client) Order(ctx context.Context, orders ...exchange.ClientOrderRequest) (*Result, error) {
	assets, err := c.Assets(ctx)
	if err != nil {
		return nil, err
	}

	wire := make([]exchange.OrderRequest, len(orders))
	for i, o := range orders {
		if wire[i], err = o.Convert(assets); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		if o.Cloid != nil {
			c.record(orderEntry(o, wire[i], nil, storage.StatusPending))
		}
	}

	res, err := c.send(ctx, exchange.NewBulkOrder(wire...))
	if err != nil {
		return nil, err
	}

	for i, st := range res.Statuses {
		if i >= len(orders) {
			break
		}
		switch oid, ok := st.Oid(); {
		case ok:
			status := storage.StatusOpen
			if st.Filled != nil {
				status = storage.StatusFilled
			}
			c.record(orderEntry(orders[i], wire[i], &oid, status))
		case st.Error != "" && orders[i].Cloid != nil:
			c.record(orderEntry(orders[i], wire[i], nil, storage.StatusRejected))
		}
	}
	return res, nil
}

// Modify replaces the order referenced by req.Oid. The reference is sent
// exactly as given: the exchange accepts either kind.
func (c *Client) Modify(ctx context.Context, req exchange.ClientModifyRequest) (*Result, error) {
	return c.BatchModify(ctx, req)
}

// BatchModify sends one modify action for a single request, batchModify
// otherwise.
func (c *Client) BatchModify(ctx context.Context, reqs ...exchange.ClientModifyRequest) (*Result, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no modify requests")
	}
	assets, err := c.Assets(ctx)
	if err != nil {
		return nil, err
	}

	wire := make([]exchange.ModifyRequest, len(reqs))
	for i, r := range reqs {
		if wire[i], err = r.Convert(assets); err != nil {
			return nil, err
		}
	}

	var action exchange.Action
	if len(wire) == 1 {
		action = exchange.NewModify(wire[0])
	} else {
		action = exchange.NewBatchModify(wire...)
	}

	res, err := c.send(ctx, action)
	if err != nil {
		return nil, err
	}

	for i, r := range reqs {
		// single modifies answer without statuses; batch items may fail alone
		if i < len(res.Statuses) && res.Statuses[i].Error != "" {
			c.logger.Warnw("modify_rejected", "oid", r.Oid.String(), "err", res.Statuses[i].Error)
			continue
		}
		c.logger.Infow("modify_submitted", "oid", r.Oid.String(), "coin", r.Order.Asset, "px", wire[i].Order.LimitPx, "sz", wire[i].Order.Sz)
		c.updateModified(r, wire[i].Order)
	}
	return res, nil
}

// Cancel cancels by exchange order id.
func (c *Client) Cancel(ctx context.Context, reqs ...exchange.ClientCancelRequest) (*Result, error) {
	assets, err := c.Assets(ctx)
	if err != nil {
		return nil, err
	}

	wire := make([]exchange.CancelRequest, len(reqs))
	for i, r := range reqs {
		if wire[i], err = r.Convert(assets); err != nil {
			return nil, err
		}
	}

	res, err := c.send(ctx, exchange.NewBulkCancel(wire...))
	if err != nil {
		return nil, err
	}
	c.markCanceled(res, len(reqs), func(i int) exchange.OidOrCloid { return exchange.NewOid(reqs[i].Oid) })
	return res, nil
}

// CancelByCloid cancels by client order id.
func (c *Client) CancelByCloid(ctx context.Context, reqs ...exchange.ClientCancelRequestCloid) (*Result, error) {
	assets, err := c.Assets(ctx)
	if err != nil {
		return nil, err
	}

	wire := make([]exchange.CancelRequestCloid, len(reqs))
	for i, r := range reqs {
		if wire[i], err = r.Convert(assets); err != nil {
			return nil, err
		}
	}

	res, err := c.send(ctx, exchange.NewBulkCancelCloid(wire...))
	if err != nil {
		return nil, err
	}
	c.markCanceled(res, len(reqs), func(i int) exchange.OidOrCloid { return exchange.NewCloid(reqs[i].Cloid) })
	return res, nil
}

// CancelRef cancels whatever ref points at. A cloid the journal already
// bound to an oid is cancelled by oid.
func (c *Client) CancelRef(ctx context.Context, asset string, ref exchange.OidOrCloid) (*Result, error) {
	if c.journal != nil && ref.IsCloid() {
		oid, ok, err := c.journal.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
		}
		if ok {
			ref = exchange.NewOid(oid)
		}
	}

	switch req := exchange.NewCancel(asset, ref).(type) {
	case exchange.ClientCancelRequest:
		return c.Cancel(ctx, req)
	case exchange.ClientCancelRequestCloid:
		return c.CancelByCloid(ctx, req)
	default:
		return nil, fmt.Errorf("unexpected cancel request %T", req)
	}
}

// SignAction encodes and signs an action without sending it.
func (c *Client) SignAction(action exchange.Action) (*ExchangePayload, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}

	raw, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s action: %w", action.ActionType(), err)
	}

	nonce := c.nonces.Next()
	sig, err := c.actions.SignAction(c.signer, raw, nonce, c.vault)
	if err != nil {
		return nil, err
	}

	payload := &ExchangePayload{Action: raw, Nonce: nonce, Signature: sig}
	if c.vault != nil {
		v := strings.ToLower(c.vault.Hex())
		payload.VaultAddress = &v
	}
	return payload, nil
}

func (c *Client) send(ctx context.Context, action exchange.Action) (*Result, error) {
	payload, err := c.SignAction(action)
	if err != nil {
		return nil, err
	}

	var resp exchange.Response
	if err := c.post(ctx, "/exchange", payload, &resp); err != nil {
		return nil, err
	}
	return decodeResult(resp)
}

func decodeResult(resp exchange.Response) (*Result, error) {
	if resp.Status != exchange.StatusOK {
		var msg string
		if err := json.Unmarshal(resp.Response, &msg); err != nil {
			msg = string(resp.Response)
		}
		return nil, &APIError{Message: msg}
	}

	var body exchange.ResponseBody
	if err := json.Unmarshal(resp.Response, &body); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	res := &Result{Type: body.Type}
	if body.Data != nil {
		res.Statuses = body.Data.Statuses
	}
	return res, nil
}

// ==============================
// Journal bookkeeping
// ==============================

func orderEntry(o exchange.ClientOrderRequest, w exchange.OrderRequest, oid *uint64, status storage.OrderStatus) *storage.OrderEntry {
	e := &storage.OrderEntry{
		Coin:      o.Asset,
		Oid:       oid,
		IsBuy:     o.IsBuy,
		LimitPx:   w.LimitPx,
		Sz:        w.Sz,
		Status:    status,
		UpdatedAt: time.Now().UnixMilli(),
	}
	if o.Cloid != nil {
		cloid := *o.Cloid
		e.Cloid = &cloid
	}
	return e
}

func (c *Client) record(e *storage.OrderEntry) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(e); err != nil {
		c.logger.Warnw("journal_record_failed", "ref", e.Ref().String(), "err", err)
	}
}

func (c *Client) updateModified(r exchange.ClientModifyRequest, w exchange.OrderRequest) {
	if c.journal == nil {
		return
	}
	entry, err := c.journal.Lookup(r.Oid)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warnw("journal_lookup_failed", "ref", r.Oid.String(), "err", err)
		}
		return
	}
	entry.LimitPx = w.LimitPx
	entry.Sz = w.Sz
	entry.IsBuy = w.IsBuy
	entry.UpdatedAt = time.Now().UnixMilli()
	c.record(entry)
}

func (c *Client) markCanceled(res *Result, n int, ref func(int) exchange.OidOrCloid) {
	if c.journal == nil {
		return
	}
	for i, st := range res.Statuses {
		if i >= n || !st.Success {
			continue
		}
		entry, err := c.journal.Lookup(ref(i))
		if err != nil {
			continue
		}
		entry.Status = storage.StatusCanceled
		entry.UpdatedAt = time.Now().UnixMilli()
		c.record(entry)
	}
}
