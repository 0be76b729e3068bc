package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/storage"
)

// Per-order error messages, worded the way the exchange words them.
var (
	errCancelMissing  = errors.New("Order was never placed, already canceled, or filled.")
	errModifyMissing  = errors.New("Cannot modify canceled or filled order")
	errDuplicateCloid = errors.New("Duplicate cloid")
	errAssetMismatch  = errors.New("Asset does not match the order")
	errInvalidNonce   = errors.New("Invalid nonce: must be greater than the last one used")
)

// apply executes one verified action for user. The returned error becomes
// an "err" response; per-order failures are reported in the statuses.
func (s *Server) apply(signer, user common.Address, nonce uint64, action exchange.Action) (exchange.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nonce <= s.lastNonces[signer] {
		return exchange.Response{}, errInvalidNonce
	}
	s.lastNonces[signer] = nonce

	owner := userKey(user)
	s.logger.Infow("action_received", "type", action.ActionType(), "user", owner, "nonce", nonce)

	switch a := action.(type) {
	case *exchange.BulkOrder:
		statuses := make([]exchange.Status, len(a.Orders))
		for i, o := range a.Orders {
			statuses[i] = s.place(owner, o)
		}
		return okResponse("order", statuses)

	case *exchange.Modify:
		st := s.modify(owner, a.ModifyRequest)
		if st.Error != "" {
			return exchange.Response{}, errors.New(st.Error)
		}
		return okResponse("default", nil)

	case *exchange.BatchModify:
		statuses := make([]exchange.Status, len(a.Modifies))
		for i, m := range a.Modifies {
			statuses[i] = s.modify(owner, m)
		}
		return okResponse("order", statuses)

	case *exchange.BulkCancel:
		statuses := make([]exchange.Status, len(a.Cancels))
		for i, c := range a.Cancels {
			statuses[i] = s.cancel(owner, c.Asset, c.Ref())
		}
		return okResponse("cancel", statuses)

	case *exchange.BulkCancelCloid:
		statuses := make([]exchange.Status, len(a.Cancels))
		for i, c := range a.Cancels {
			ref, err := c.Ref()
			if err != nil {
				statuses[i] = exchange.Status{Error: err.Error()}
				continue
			}
			statuses[i] = s.cancel(owner, c.Asset, ref)
		}
		return okResponse("cancel", statuses)
	}

	return exchange.Response{}, fmt.Errorf("%w: %s", exchange.ErrUnknownAction, action.ActionType())
}

func (s *Server) place(owner string, o exchange.OrderRequest) exchange.Status {
	order, err := o.ToClient(s.assets)
	if err != nil {
		return exchange.Status{Error: err.Error()}
	}

	if order.Cloid != nil {
		_, err := s.journal.Lookup(exchange.NewCloid(*order.Cloid))
		switch {
		case err == nil:
			return exchange.Status{Error: errDuplicateCloid.Error()}
		case !errors.Is(err, storage.ErrNotFound):
			return s.internalError("journal_lookup_failed", err)
		}
	}

	oid := s.lastOid + 1
	entry := &storage.OrderEntry{
		User:      owner,
		Coin:      order.Asset,
		Oid:       &oid,
		Cloid:     order.Cloid,
		IsBuy:     o.IsBuy,
		LimitPx:   o.LimitPx,
		Sz:        o.Sz,
		Status:    storage.StatusOpen,
		UpdatedAt: s.clock.Now().UnixMilli(),
	}
	if err := s.journal.Record(entry); err != nil {
		return s.internalError("journal_record_failed", err)
	}
	s.lastOid = oid
	s.publish(entry)

	return exchange.Status{Resting: &exchange.RestingOrder{Oid: oid, Cloid: cloidString(entry)}}
}

// modify replaces price, size and side of an open order in place. The
// order keeps its oid and cloid.
func (s *Server) modify(owner string, m exchange.ModifyRequest) exchange.Status {
	entry, err := s.openOrder(owner, m.Oid)
	if err != nil {
		return s.orderError(err, errModifyMissing)
	}

	order, err := m.Order.ToClient(s.assets)
	if err != nil {
		return exchange.Status{Error: err.Error()}
	}
	if order.Asset != entry.Coin {
		return exchange.Status{Error: errAssetMismatch.Error()}
	}

	entry.IsBuy = m.Order.IsBuy
	entry.LimitPx = m.Order.LimitPx
	entry.Sz = m.Order.Sz
	entry.UpdatedAt = s.clock.Now().UnixMilli()
	if err := s.journal.Record(entry); err != nil {
		return s.internalError("journal_record_failed", err)
	}
	s.publish(entry)

	return exchange.Status{Resting: &exchange.RestingOrder{Oid: *entry.Oid, Cloid: cloidString(entry)}}
}

func (s *Server) cancel(owner string, asset uint32, ref exchange.OidOrCloid) exchange.Status {
	entry, err := s.openOrder(owner, ref)
	if err != nil {
		return s.orderError(err, errCancelMissing)
	}
	if coin, ok := s.assets.Coin(asset); !ok || coin != entry.Coin {
		return exchange.Status{Error: errAssetMismatch.Error()}
	}

	entry.Status = storage.StatusCanceled
	entry.UpdatedAt = s.clock.Now().UnixMilli()
	if err := s.journal.Record(entry); err != nil {
		return s.internalError("journal_record_failed", err)
	}
	s.publish(entry)

	return exchange.Status{Success: true}
}

// openOrder finds an open order of owner. Orders of other users look
// exactly like missing ones.
func (s *Server) openOrder(owner string, ref exchange.OidOrCloid) (*storage.OrderEntry, error) {
	entry, err := s.journal.Lookup(ref)
	if err != nil {
		return nil, err
	}
	if entry.User != owner || entry.Oid == nil || entry.Status != storage.StatusOpen {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

func (s *Server) orderError(err, missing error) exchange.Status {
	if errors.Is(err, storage.ErrNotFound) {
		return exchange.Status{Error: missing.Error()}
	}
	return s.internalError("journal_lookup_failed", err)
}

func (s *Server) internalError(event string, err error) exchange.Status {
	s.logger.Errorw(event, "err", err)
	return exchange.Status{Error: "internal error"}
}

func (s *Server) publish(e *storage.OrderEntry) {
	s.logger.Infow("order_update", "user", e.User, "oid", *e.Oid, "coin", e.Coin, "status", e.Status)
	s.hub.BroadcastToChannel("orderUpdates:"+e.User, WSMessage{
		Channel: "orderUpdates",
		Data:    []exchange.OrderUpdate{orderUpdate(e)},
	})
}

func okResponse(typ string, statuses []exchange.Status) (exchange.Response, error) {
	body := exchange.ResponseBody{Type: typ}
	if statuses != nil {
		body.Data = &exchange.ResponseData{Statuses: statuses}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return exchange.Response{}, err
	}
	return exchange.Response{Status: exchange.StatusOK, Response: raw}, nil
}

func errResponse(msg string) exchange.Response {
	raw, _ := json.Marshal(msg)
	return exchange.Response{Status: exchange.StatusErr, Response: raw}
}

func cloidString(e *storage.OrderEntry) *string {
	if e.Cloid == nil {
		return nil
	}
	s := exchange.CloidToHex(*e.Cloid)
	return &s
}

func basicOrder(e *storage.OrderEntry) exchange.BasicOrder {
	side := "A"
	if e.IsBuy {
		side = "B"
	}
	var oid uint64
	if e.Oid != nil {
		oid = *e.Oid
	}
	return exchange.BasicOrder{
		Coin:      e.Coin,
		Side:      side,
		LimitPx:   e.LimitPx,
		Sz:        e.Sz,
		Oid:       oid,
		Timestamp: e.UpdatedAt,
		OrigSz:    e.Sz,
		Cloid:     cloidString(e),
	}
}

func orderUpdate(e *storage.OrderEntry) exchange.OrderUpdate {
	return exchange.OrderUpdate{
		Order:           basicOrder(e),
		Status:          string(e.Status),
		StatusTimestamp: e.UpdatedAt,
	}
}
