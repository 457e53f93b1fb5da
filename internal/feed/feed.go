// Package feed adapts a venue websocket stream into authoritative
// entity updates for the sync cache. Delivery semantics (push vs.
// poll, reconnects) stay inside the websocket session; the cache only
// sees payloads.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/entity"
)

const _defaultBaseWsUrl = "wss://stream.binance.com:9443/ws"

const _subscribeID = 1

// Update is one authoritative entity payload from the remote feed.
type Update struct {
	Key     entity.Key
	Data    entity.Data
	Version int64
}

// MarketFeed maintains one websocket session and turns ticker events
// into market entity updates.
type MarketFeed struct {
	wss *ws.WebSocket
}

// New creates a feed against the given stream url. An empty url falls
// back to the default venue endpoint.
func New(ctx context.Context, url string) *MarketFeed {
	if url == "" {
		url = _defaultBaseWsUrl
	}
	return &MarketFeed{
		wss: ws.New(ctx, url),
	}
}

// Start opens the websocket session.
func (f *MarketFeed) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	return nil
}

// Close tears the session down.
func (f *MarketFeed) Close() {
	f.wss.Close()
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// SubscribeTicker subscribes the per-symbol ticker stream.
func (f *MarketFeed) SubscribeTicker(ctx context.Context, symbol string) error {
	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@ticker", strings.ToLower(symbol)),
				},
				ID: _subscribeID,
			}

			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[subscribeResponse](m)
			if !ok || resp.ID != _subscribeID {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe ticker, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

// Observe decodes ticker events and hands each resulting update to
// the handler until the context or the process shuts down.
func (f *MarketFeed) Observe(ctx context.Context, handler func(Update)) (unsubscribe func()) {
	ch, cancel := f.wss.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				payload, ok := ws.ReadMessage[TickerPayload](m)
				if !ok || payload.EventType != "24hrTicker" {
					continue
				}

				update, err := payload.Update()
				if err != nil {
					logs.Errorf("decode ticker, err: %+v", err)
					continue
				}

				handler(update)
			}
		}
	}()

	return cancel
}
