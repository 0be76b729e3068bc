package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response statuses of the exchange and info endpoints.
const (
	StatusOK  = "ok"
	StatusErr = "err"

	successStatus = "success"
)

// ==============================
// Exchange endpoint
// ==============================

// Response is the envelope every exchange call answers with. On "ok",
// Response holds a typed body; on "err" it holds an error string.
type Response struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// ResponseBody is the "ok" payload.
type ResponseBody struct {
	Type string        `json:"type"` // "order", "cancel", "default"
	Data *ResponseData `json:"data,omitempty"`
}

type ResponseData struct {
	Statuses []Status `json:"statuses"`
}

type RestingOrder struct {
	Oid   uint64  `json:"oid"`
	Cloid *string `json:"cloid,omitempty"`
}

type FilledOrder struct {
	TotalSz string  `json:"totalSz"`
	AvgPx   string  `json:"avgPx"`
	Oid     uint64  `json:"oid"`
	Cloid   *string `json:"cloid,omitempty"`
}

// Status is one per-order outcome: {"resting":..}, {"filled":..},
// {"error":".."} or the bare string "success".
type Status struct {
	Resting *RestingOrder
	Filled  *FilledOrder
	Error   string
	Success bool
}

type statusObject struct {
	Resting *RestingOrder `json:"resting,omitempty"`
	Filled  *FilledOrder  `json:"filled,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s.Success {
		return json.Marshal(successStatus)
	}
	return json.Marshal(statusObject{Resting: s.Resting, Filled: s.Filled, Error: s.Error})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str != successStatus {
			return fmt.Errorf("unknown status %q", str)
		}
		*s = Status{Success: true}
		return nil
	}

	var obj statusObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}
	*s = Status{Resting: obj.Resting, Filled: obj.Filled, Error: obj.Error}
	return nil
}

// Oid returns the exchange order id reported by a resting or filled status.
func (s Status) Oid() (uint64, bool) {
	switch {
	case s.Resting != nil:
		return s.Resting.Oid, true
	case s.Filled != nil:
		return s.Filled.Oid, true
	}
	return 0, false
}

// ==============================
// Info endpoint
// ==============================

// BasicOrder is an order as the info endpoint and the order feed report it.
type BasicOrder struct {
	Coin      string  `json:"coin"`
	Side      string  `json:"side"` // "B" = bid, "A" = ask
	LimitPx   string  `json:"limitPx"`
	Sz        string  `json:"sz"`
	Oid       uint64  `json:"oid"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
	OrigSz    string  `json:"origSz"`
	Cloid     *string `json:"cloid,omitempty"`
}

// Ref prefers the client order id when the order carries a valid one.
func (o BasicOrder) Ref() OidOrCloid {
	if o.Cloid != nil {
		if cloid, err := ParseCloid(*o.Cloid); err == nil {
			return NewCloid(cloid)
		}
	}
	return NewOid(o.Oid)
}

// OrderUpdate is one element of the orderUpdates feed.
type OrderUpdate struct {
	Order           BasicOrder `json:"order"`
	Status          string     `json:"status"` // "open", "filled", "canceled", ...
	StatusTimestamp int64      `json:"statusTimestamp"`
}

// OrderStatusResponse answers an orderStatus query; Order is nil when
// Status is "unknownOid".
type OrderStatusResponse struct {
	Status string       `json:"status"` // "order" or "unknownOid"
	Order  *OrderUpdate `json:"order,omitempty"`
}

// OrderStatusRequest queries one order by either kind of reference.
type OrderStatusRequest struct {
	Type string     `json:"type"` // "orderStatus"
	User string     `json:"user"`
	Oid  OidOrCloid `json:"oid"`
}

// Meta is the perp universe returned by a meta query.
type Meta struct {
	Universe []AssetMeta `json:"universe"`
}
