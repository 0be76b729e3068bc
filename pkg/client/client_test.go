package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hlsdk/params"
	"github.com/uhyunpark/hlsdk/pkg/crypto"
	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/storage"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// recorder is a fake exchange that stores the last body per path and
// answers with canned JSON.
type recorder struct {
	mu      sync.Mutex
	bodies  map[string][]byte
	answers map[string]string
	status  int
}

func newRecorder() *recorder {
	return &recorder{
		bodies:  make(map[string][]byte),
		answers: make(map[string]string),
		status:  http.StatusOK,
	}
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies[req.URL.Path] = body
	answer := r.answers[req.URL.Path]
	status := r.status
	r.mu.Unlock()

	w.WriteHeader(status)
	io.WriteString(w, answer)
}

func (r *recorder) answer(path string, status int, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[path] = body
	r.status = status
}

func (r *recorder) body(path string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[path]
}

func newTestClient(t *testing.T, rec *recorder, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(rec)
	t.Cleanup(ts.Close)

	opts = append([]Option{
		WithAssets(params.DefaultAssets()),
		WithClock(fixedClock{time.UnixMilli(1700000000000)}),
	}, opts...)
	c, err := New(params.Client{APIURL: ts.URL, Timeout: 5 * time.Second, PrivateKey: testKey}, opts...)
	require.NoError(t, err)
	return c
}

func TestModifySendsReferenceAsGiven(t *testing.T) {
	rec := newRecorder()
	rec.answer("/exchange", http.StatusOK, `{"status":"ok","response":{"type":"default"}}`)
	c := newTestClient(t, rec)

	cloid := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	order := exchange.ClientOrderRequest{
		Asset: "ETH", IsBuy: false, LimitPx: 3100.5, Sz: 0.25,
		OrderType: exchange.NewLimitOrder(exchange.TifAlo),
	}

	res, err := c.Modify(context.Background(), exchange.ClientModifyRequest{Oid: exchange.NewCloid(cloid), Order: order})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Type)

	var payload ExchangePayload
	require.NoError(t, json.Unmarshal(rec.body("/exchange"), &payload))
	assert.Equal(t, uint64(1700000000000), payload.Nonce)
	assert.Nil(t, payload.VaultAddress)
	assert.JSONEq(t,
		`{"type":"modify","oid":"0x123e4567e89b12d3a456426614174000","order":{"a":1,"b":false,"p":"3100.5","s":"0.25","r":false,"t":{"limit":{"tif":"Alo"}}}}`,
		string(payload.Action))

	signer, err := crypto.NewActionSigner(false).RecoverActionSigner(payload.Action, payload.Nonce, nil, payload.Signature)
	require.NoError(t, err)
	assert.Equal(t, c.Address(), signer)

	// numeric reference stays numeric
	_, err = c.Modify(context.Background(), exchange.ClientModifyRequest{Oid: exchange.NewOid(77738308), Order: order})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rec.body("/exchange"), &payload))
	assert.Contains(t, string(payload.Action), `"oid":77738308`)
	assert.Equal(t, uint64(1700000000001), payload.Nonce)
}

func TestBatchModifyAction(t *testing.T) {
	rec := newRecorder()
	rec.answer("/exchange", http.StatusOK, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":1}},{"error":"Cannot modify canceled or filled order"}]}}}`)
	c := newTestClient(t, rec)

	order := exchange.ClientOrderRequest{Asset: "BTC", IsBuy: true, LimitPx: 50000, Sz: 0.01, OrderType: exchange.NewLimitOrder(exchange.TifGtc)}
	res, err := c.BatchModify(context.Background(),
		exchange.ClientModifyRequest{Oid: exchange.NewOid(1), Order: order},
		exchange.ClientModifyRequest{Oid: exchange.NewCloid(uuid.New()), Order: order},
	)
	require.NoError(t, err)
	require.Len(t, res.Statuses, 2)
	assert.NotNil(t, res.Statuses[0].Resting)
	assert.Equal(t, "Cannot modify canceled or filled order", res.Statuses[1].Error)

	action, err := exchange.DecodeAction(mustPayload(t, rec).Action)
	require.NoError(t, err)
	batch, ok := action.(*exchange.BatchModify)
	require.True(t, ok)
	require.Len(t, batch.Modifies, 2)
	assert.False(t, batch.Modifies[0].Oid.IsCloid())
	assert.True(t, batch.Modifies[1].Oid.IsCloid())
}

func mustPayload(t *testing.T, rec *recorder) ExchangePayload {
	t.Helper()
	var p ExchangePayload
	require.NoError(t, json.Unmarshal(rec.body("/exchange"), &p))
	return p
}

func TestModifyRejectsBadOrderBeforeSending(t *testing.T) {
	rec := newRecorder()
	c := newTestClient(t, rec)

	_, err := c.Modify(context.Background(), exchange.ClientModifyRequest{
		Oid:   exchange.NewOid(1),
		Order: exchange.ClientOrderRequest{Asset: "DOGE", LimitPx: 1, Sz: 1, OrderType: exchange.NewLimitOrder(exchange.TifGtc)},
	})
	require.ErrorIs(t, err, exchange.ErrUnknownAsset)
	assert.Nil(t, rec.body("/exchange"))

	_, err = c.BatchModify(context.Background())
	assert.Error(t, err)
}

func TestExchangeErrors(t *testing.T) {
	rec := newRecorder()
	rec.answer("/exchange", http.StatusOK, `{"status":"err","response":"Order has invalid price."}`)
	c := newTestClient(t, rec)

	_, err := c.Cancel(context.Background(), exchange.ClientCancelRequest{Asset: "BTC", Oid: 5})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Order has invalid price.", apiErr.Message)

	rec.answer("/exchange", http.StatusBadRequest, `{"error":"invalid action","message":"bad oid"}`)
	_, err = c.Cancel(context.Background(), exchange.ClientCancelRequest{Asset: "BTC", Oid: 5})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Equal(t, "invalid action: bad oid", apiErr.Message)
}

func TestSignActionWithoutKey(t *testing.T) {
	c, err := New(params.Client{APIURL: "http://localhost:1"})
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, c.Address())

	_, err = c.SignAction(exchange.NewBulkCancel())
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestVaultAddressLowercased(t *testing.T) {
	_, err := New(params.Client{PrivateKey: testKey, VaultAddress: "not-an-address"})
	assert.Error(t, err)

	c, err := New(params.Client{PrivateKey: testKey, VaultAddress: "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"})
	require.NoError(t, err)

	p, err := c.SignAction(exchange.NewBulkCancel())
	require.NoError(t, err)
	require.NotNil(t, p.VaultAddress)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", *p.VaultAddress)

	vault := common.HexToAddress(*p.VaultAddress)
	signer, err := crypto.NewActionSigner(false).RecoverActionSigner(p.Action, p.Nonce, &vault, p.Signature)
	require.NoError(t, err)
	assert.Equal(t, c.Address(), signer)
}

func TestOrderBindsCloidInJournal(t *testing.T) {
	rec := newRecorder()
	rec.answer("/exchange", http.StatusOK, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.01","avgPx":"50000","oid":9}},{"error":"Insufficient margin"}]}}}`)
	journal := storage.NewMemoryJournal()
	c := newTestClient(t, rec, WithJournal(journal))

	filled, rejected := uuid.New(), uuid.New()
	_, err := c.Order(context.Background(),
		exchange.ClientOrderRequest{Asset: "BTC", IsBuy: true, LimitPx: 50000, Sz: 0.01, Cloid: &filled, OrderType: exchange.NewLimitOrder(exchange.TifIoc)},
		exchange.ClientOrderRequest{Asset: "BTC", IsBuy: true, LimitPx: 50000, Sz: 10, Cloid: &rejected, OrderType: exchange.NewLimitOrder(exchange.TifGtc)},
	)
	require.NoError(t, err)

	oid, ok, err := journal.Resolve(exchange.NewCloid(filled))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(9), oid)

	e, err := journal.Lookup(exchange.NewOid(9))
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFilled, e.Status)

	e, err = journal.Lookup(exchange.NewCloid(rejected))
	require.NoError(t, err)
	assert.Equal(t, storage.StatusRejected, e.Status)
	assert.Nil(t, e.Oid)
}

func TestCancelRefResolvesThroughJournal(t *testing.T) {
	rec := newRecorder()
	rec.answer("/exchange", http.StatusOK, `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`)
	journal := storage.NewMemoryJournal()
	c := newTestClient(t, rec, WithJournal(journal))

	bound, unknown := uuid.New(), uuid.New()
	oid := uint64(42)
	require.NoError(t, journal.Record(&storage.OrderEntry{Coin: "SOL", Oid: &oid, Cloid: &bound, Status: storage.StatusOpen}))

	_, err := c.CancelRef(context.Background(), "SOL", exchange.NewCloid(bound))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cancel","cancels":[{"a":2,"o":42}]}`, string(mustPayload(t, rec).Action))

	e, err := journal.Lookup(exchange.NewOid(42))
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCanceled, e.Status)

	_, err = c.CancelRef(context.Background(), "SOL", exchange.NewCloid(unknown))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"cancelByCloid","cancels":[{"asset":2,"cloid":"`+exchange.CloidToHex(unknown)+`"}]}`,
		string(mustPayload(t, rec).Action))
}

func TestInfoQueries(t *testing.T) {
	rec := newRecorder()
	c := newTestClient(t, rec)
	user := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	cloid := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

	rec.answer("/info", http.StatusOK, `{"status":"order","order":{"order":{"coin":"BTC","side":"B","limitPx":"50000","sz":"0.01","oid":7,"timestamp":1,"origSz":"0.01","cloid":"0x123e4567e89b12d3a456426614174000"},"status":"open","statusTimestamp":1}}`)
	st, err := c.OrderStatus(context.Background(), user, exchange.NewCloid(cloid))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"orderStatus","user":"0x00000000000000000000000000000000000000aa","oid":"0x123e4567e89b12d3a456426614174000"}`,
		string(rec.body("/info")))
	assert.Equal(t, exchange.NewCloid(cloid), st.Order.Order.Ref())

	rec.answer("/info", http.StatusOK, `[{"coin":"ETH","side":"A","limitPx":"3000","sz":"1","oid":8,"timestamp":2,"origSz":"1"}]`)
	orders, err := c.OpenOrders(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, exchange.NewOid(8), orders[0].Ref())
}

func TestAssetsLoadedFromMeta(t *testing.T) {
	rec := newRecorder()
	rec.answer("/info", http.StatusOK, `{"universe":[{"name":"ATOM","szDecimals":2},{"name":"BTC","szDecimals":5}]}`)
	ts := httptest.NewServer(rec)
	defer ts.Close()

	c, err := New(params.Client{APIURL: ts.URL + "/", Timeout: time.Second})
	require.NoError(t, err)

	assets, err := c.Assets(context.Background())
	require.NoError(t, err)
	idx, ok := assets.AssetIndex("BTC")
	assert.True(t, ok)
	assert.Equal(t, uint32(1), idx)
	assert.JSONEq(t, `{"type":"meta"}`, string(rec.body("/info")))
}

func TestFeedDeliversOrderUpdates(t *testing.T) {
	user := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	subscribed := make(chan string, 1)

	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req struct {
			Method       string `json:"method"`
			Subscription struct {
				Type string `json:"type"`
				User string `json:"user"`
			} `json:"subscription"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subscribed <- req.Subscription.Type + ":" + req.Subscription.User

		conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"subscriptionResponse","data":{}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"orderUpdates","data":[{"order":{"coin":"BTC","side":"B","limitPx":"1","sz":"1","oid":3,"timestamp":1,"origSz":"1"},"status":"canceled","statusTimestamp":5}]}`))
		conn.ReadMessage() // wait for close
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	feed, err := Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, feed.SubscribeOrderUpdates(user))
	assert.Equal(t, "orderUpdates:0x00000000000000000000000000000000000000aa", <-subscribed)

	select {
	case u := <-feed.Updates():
		assert.Equal(t, "canceled", u.Status)
		assert.Equal(t, uint64(3), u.Order.Oid)
	case <-ctx.Done():
		t.Fatal("no order update received")
	}

	require.NoError(t, feed.Close())
	_, open := <-feed.Updates()
	assert.False(t, open)
}
