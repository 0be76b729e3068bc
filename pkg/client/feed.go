package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/util"
)

const (
	pingInterval = 50 * time.Second
	writeWait    = 10 * time.Second
)

type wsSubscription struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

type wsRequest struct {
	Method       string          `json:"method"` // "subscribe", "unsubscribe", "ping"
	Subscription *wsSubscription `json:"subscription,omitempty"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Feed is a websocket subscription to order updates.
type Feed struct {
	conn    *websocket.Conn
	updates chan exchange.OrderUpdate
	logger  *zap.SugaredLogger

	writeMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// Dial connects to the websocket endpoint. The feed stops when ctx is
// cancelled or Close is called; Updates is closed afterwards.
func Dial(ctx context.Context, url string, logger *zap.SugaredLogger) (*Feed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		conn:    conn,
		updates: make(chan exchange.OrderUpdate, 64),
		logger:  util.SugarOrNop(logger),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go f.readLoop(ctx)
	go f.pingLoop(ctx)
	go func() {
		<-ctx.Done()
		f.conn.Close()
	}()

	f.logger.Infow("ws_connected", "url", url)
	return f, nil
}

// SubscribeOrderUpdates subscribes to order updates of user.
func (f *Feed) SubscribeOrderUpdates(user common.Address) error {
	return f.write(wsRequest{
		Method:       "subscribe",
		Subscription: &wsSubscription{Type: "orderUpdates", User: strings.ToLower(user.Hex())},
	})
}

func (f *Feed) Updates() <-chan exchange.OrderUpdate { return f.updates }

func (f *Feed) Close() error {
	f.writeMu.Lock()
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	f.writeMu.Unlock()

	f.cancel()
	<-f.done
	return nil
}

func (f *Feed) write(v any) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := f.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.write(wsRequest{Method: "ping"}); err != nil {
				f.logger.Warnw("ws_ping_failed", "err", err)
			}
		}
	}
}

func (f *Feed) readLoop(ctx context.Context) {
	defer close(f.done)
	defer close(f.updates)
	defer f.cancel()

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				f.logger.Warnw("ws_read_failed", "err", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Debugw("ws_bad_message", "err", err)
			continue
		}
		if msg.Channel != "orderUpdates" {
			continue
		}

		var updates []exchange.OrderUpdate
		if err := json.Unmarshal(msg.Data, &updates); err != nil {
			f.logger.Warnw("ws_bad_order_update", "err", err)
			continue
		}
		for _, u := range updates {
			select {
			case f.updates <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}
