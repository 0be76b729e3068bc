package exchange

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Tif is a limit order's time in force.
type Tif string

const (
	TifAlo Tif = "Alo" // add liquidity only (post only)
	TifIoc Tif = "Ioc" // immediate or cancel
	TifGtc Tif = "Gtc" // good til cancelled
)

// Tpsl marks a trigger order as take profit or stop loss.
type Tpsl string

const (
	TpslTp Tpsl = "tp"
	TpslSl Tpsl = "sl"
)

// wirePrecision is the number of decimals prices and sizes carry on the wire.
const wirePrecision = 8

// ==============================
// Client (typed) orders
// ==============================

type ClientLimit struct {
	Tif Tif
}

type ClientTrigger struct {
	IsMarket  bool
	TriggerPx float64
	Tpsl      Tpsl
}

// ClientOrder holds exactly one of Limit or Trigger.
type ClientOrder struct {
	Limit   *ClientLimit
	Trigger *ClientTrigger
}

func NewLimitOrder(tif Tif) ClientOrder {
	return ClientOrder{Limit: &ClientLimit{Tif: tif}}
}

func NewTriggerOrder(isMarket bool, triggerPx float64, tpsl Tpsl) ClientOrder {
	return ClientOrder{Trigger: &ClientTrigger{IsMarket: isMarket, TriggerPx: triggerPx, Tpsl: tpsl}}
}

// ClientOrderRequest is an order as business logic describes it, before
// the coin is resolved and the numbers are rendered for the wire.
type ClientOrderRequest struct {
	Asset      string
	IsBuy      bool
	ReduceOnly bool
	LimitPx    float64
	Sz         float64
	Cloid      *uuid.UUID
	OrderType  ClientOrder
}

// ==============================
// Wire orders
// ==============================

type Limit struct {
	Tif Tif `json:"tif"`
}

type Trigger struct {
	IsMarket  bool   `json:"isMarket"`
	TriggerPx string `json:"triggerPx"`
	Tpsl      Tpsl   `json:"tpsl"`
}

// OrderType is {"limit":{...}} or {"trigger":{...}} on the wire.
type OrderType struct {
	Limit   *Limit   `json:"limit,omitempty"`
	Trigger *Trigger `json:"trigger,omitempty"`
}

// OrderRequest is the wire form of an order.
type OrderRequest struct {
	Asset      uint32    `json:"a"`           // asset index in the universe
	IsBuy      bool      `json:"b"`           // true = buy
	LimitPx    string    `json:"p"`           // decimal string
	Sz         string    `json:"s"`           // decimal string
	ReduceOnly bool      `json:"r"`           // only reduce an open position
	OrderType  OrderType `json:"t"`           // limit or trigger
	Cloid      *string   `json:"c,omitempty"` // "0x" + 32 hex digits
}

// FloatToWire renders x with at most 8 decimals and no trailing zeros.
// It refuses values that would change by rounding.
func FloatToWire(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", fmt.Errorf("%w: %v", ErrFloatPrecision, x)
	}

	s := strconv.FormatFloat(x, 'f', wirePrecision, 64)
	rounded, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFloatPrecision, x)
	}
	if math.Abs(rounded-x) >= 1e-12 {
		return "", fmt.Errorf("%w: %v rounds to %s", ErrFloatPrecision, x, s)
	}

	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0", nil
	}
	return s, nil
}

// Validate checks that exactly one order kind is set.
func (o ClientOrder) Validate() error {
	if (o.Limit == nil) == (o.Trigger == nil) {
		return fmt.Errorf("order must be exactly one of limit or trigger")
	}
	return nil
}

func (o ClientOrder) convert() (OrderType, error) {
	if err := o.Validate(); err != nil {
		return OrderType{}, err
	}
	if o.Limit != nil {
		return OrderType{Limit: &Limit{Tif: o.Limit.Tif}}, nil
	}

	px, err := FloatToWire(o.Trigger.TriggerPx)
	if err != nil {
		return OrderType{}, fmt.Errorf("trigger price: %w", err)
	}
	return OrderType{Trigger: &Trigger{
		IsMarket:  o.Trigger.IsMarket,
		TriggerPx: px,
		Tpsl:      o.Trigger.Tpsl,
	}}, nil
}

// Convert resolves the asset and renders the order for the wire.
func (o ClientOrderRequest) Convert(assets AssetResolver) (OrderRequest, error) {
	asset, ok := assets.AssetIndex(o.Asset)
	if !ok {
		return OrderRequest{}, fmt.Errorf("%w: %s", ErrUnknownAsset, o.Asset)
	}

	px, err := FloatToWire(o.LimitPx)
	if err != nil {
		return OrderRequest{}, fmt.Errorf("limit price: %w", err)
	}
	sz, err := FloatToWire(o.Sz)
	if err != nil {
		return OrderRequest{}, fmt.Errorf("size: %w", err)
	}
	orderType, err := o.OrderType.convert()
	if err != nil {
		return OrderRequest{}, err
	}

	req := OrderRequest{
		Asset:      asset,
		IsBuy:      o.IsBuy,
		LimitPx:    px,
		Sz:         sz,
		ReduceOnly: o.ReduceOnly,
		OrderType:  orderType,
	}
	if o.Cloid != nil {
		c := CloidToHex(*o.Cloid)
		req.Cloid = &c
	}
	return req, nil
}

// ToClient is the inverse of Convert.
func (o OrderRequest) ToClient(assets AssetResolver) (ClientOrderRequest, error) {
	coin, ok := assets.Coin(o.Asset)
	if !ok {
		return ClientOrderRequest{}, fmt.Errorf("%w: index %d", ErrUnknownAsset, o.Asset)
	}

	px, err := strconv.ParseFloat(o.LimitPx, 64)
	if err != nil {
		return ClientOrderRequest{}, fmt.Errorf("invalid limit price %q: %w", o.LimitPx, err)
	}
	sz, err := strconv.ParseFloat(o.Sz, 64)
	if err != nil {
		return ClientOrderRequest{}, fmt.Errorf("invalid size %q: %w", o.Sz, err)
	}

	out := ClientOrderRequest{
		Asset:      coin,
		IsBuy:      o.IsBuy,
		ReduceOnly: o.ReduceOnly,
		LimitPx:    px,
		Sz:         sz,
	}

	switch t := o.OrderType; {
	case t.Limit != nil && t.Trigger == nil:
		out.OrderType = NewLimitOrder(t.Limit.Tif)
	case t.Trigger != nil && t.Limit == nil:
		triggerPx, err := strconv.ParseFloat(t.Trigger.TriggerPx, 64)
		if err != nil {
			return ClientOrderRequest{}, fmt.Errorf("invalid trigger price %q: %w", t.Trigger.TriggerPx, err)
		}
		out.OrderType = NewTriggerOrder(t.Trigger.IsMarket, triggerPx, t.Trigger.Tpsl)
	default:
		return ClientOrderRequest{}, fmt.Errorf("order must be exactly one of limit or trigger")
	}

	if o.Cloid != nil {
		cloid, err := ParseCloid(*o.Cloid)
		if err != nil {
			return ClientOrderRequest{}, fmt.Errorf("%w %q: %w", ErrInvalidCloid, *o.Cloid, err)
		}
		out.Cloid = &cloid
	}
	return out, nil
}
