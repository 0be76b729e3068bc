package api

import (
	"encoding/json"

	"github.com/uhyunpark/hlsdk/pkg/crypto"
)

// Wire types of the simulator that are not shared with the client.

// ==============================
// REST Request Types
// ==============================

// ExchangeRequest is the body of POST /exchange. Action is kept raw: the
// signature covers its exact bytes.
type ExchangeRequest struct {
	Action       json.RawMessage  `json:"action"`
	Nonce        uint64           `json:"nonce"`
	Signature    crypto.Signature `json:"signature"`
	VaultAddress *string          `json:"vaultAddress"`
}

// InfoRequest is the body of POST /info. Oid is only read by orderStatus
// and is decoded as an oid-or-cloid reference.
type InfoRequest struct {
	Type string          `json:"type"` // "meta", "orderStatus", "openOrders"
	User string          `json:"user,omitempty"`
	Oid  json.RawMessage `json:"oid,omitempty"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscription names a feed, e.g. {"type":"orderUpdates","user":"0x.."}.
type WSSubscription struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// WSRequest is sent by clients to (un)subscribe or ping.
type WSRequest struct {
	Method       string          `json:"method"` // "subscribe", "unsubscribe", "ping"
	Subscription *WSSubscription `json:"subscription,omitempty"`
}

// WSMessage is the envelope of everything the server pushes.
type WSMessage struct {
	Channel string `json:"channel"` // "orderUpdates", "subscriptionResponse", "pong"
	Data    any    `json:"data,omitempty"`
}

// channel is the hub key of a subscription.
func (s WSSubscription) channel() string {
	if s.User == "" {
		return s.Type
	}
	return s.Type + ":" + s.User
}
