package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const okxPublicWSURL = "wss://ws.okx.com:8443/ws/v5/public"

// Ticker is a public-websocket price stream for a set of instruments.
// It is a monitoring surface only; the trading cycle never depends on it.
type Ticker struct {
	url          string
	pingInterval time.Duration
	conn         *websocket.Conn
}

// TickerUpdate is one mark-price update from the tickers channel.
type TickerUpdate struct {
	InstID    string
	Last      float64
	Timestamp time.Time
}

// NewTicker creates a ticker stream against the OKX public websocket.
func NewTicker(url string) *Ticker {
	if url == "" {
		url = okxPublicWSURL
	}
	return &Ticker{
		url:          url,
		pingInterval: 20 * time.Second,
	}
}

type wsRequest struct {
	Op   string          `json:"op"`
	Args []wsSubscribeTo `json:"args"`
}

type wsSubscribeTo struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsMessage struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		TS     string `json:"ts"`
	} `json:"data"`
}

// Connect dials the websocket and subscribes to the tickers channel of
// each instrument.
func (t *Ticker) Connect(ctx context.Context, instIDs []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", t.url, err)
	}
	t.conn = conn

	args := make([]wsSubscribeTo, 0, len(instIDs))
	for _, id := range instIDs {
		args = append(args, wsSubscribeTo{Channel: "tickers", InstID: id})
	}
	if err := conn.WriteJSON(wsRequest{Op: "subscribe", Args: args}); err != nil {
		conn.Close()
		return fmt.Errorf("subscribing: %w", err)
	}
	return nil
}

// Stream reads ticker updates until the context is cancelled, invoking
// handler for each update. The server drops idle connections, so a
// ping is written on a fixed interval.
func (t *Ticker) Stream(ctx context.Context, handler func(TickerUpdate)) error {
	if t.conn == nil {
		return fmt.Errorf("ticker not connected")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(t.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = t.conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			case <-ctx.Done():
				t.conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading ticker stream: %w", err)
		}
		if string(raw) == "pong" {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event != "" {
			continue
		}
		for _, d := range msg.Data {
			handler(TickerUpdate{
				InstID:    d.InstID,
				Last:      parseFloat(d.Last),
				Timestamp: time.UnixMilli(parseInt(d.TS)),
			})
		}
	}
}

// Close shuts the underlying connection.
func (t *Ticker) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
