package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsServer(t *testing.T, frames []string, hold bool) string {
	t.Helper()

	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if hold {
			// wait for the client to go away
			_, _, _ = conn.ReadMessage()
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketSourceAppliesPrices(t *testing.T) {
	t.Parallel()

	url := wsServer(t, []string{
		`{"type":"PRICE","time":"2026-01-24T09:30:00Z","instrument":"EUR_USD","bids":[{"price":"1.10000"}],"asks":[{"price":"1.10010"}]}`,
		`{"type":"HEARTBEAT","time":"2026-01-24T09:30:05Z"}` + "\n" +
			`{"type":"PRICE","time":"2026-01-24T09:30:06Z","instrument":"GBP_USD","bids":[{"price":"1.25000"}],"asks":[{"price":"1.25010"}]}`,
	}, false)

	ing, b, q := newIngestor(t)
	err := WebSocketSource{URL: url, ReadTimeout: 5 * time.Second}.Run(context.Background(), ing)
	require.NoError(t, err)

	ticks := popTicks(q)
	require.Len(t, ticks, 2)
	assert.Equal(t, "EURUSD", ticks[0].Instrument)
	assert.Equal(t, "GBPUSD", ticks[1].Instrument)
	assert.True(t, b.IsReady())
}

func TestWebSocketSourceStopsOnCancel(t *testing.T) {
	t.Parallel()

	url := wsServer(t, nil, true)
	ing, _, _ := newIngestor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WebSocketSource{URL: url}.Run(ctx, ing)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWebSocketSourceDialError(t *testing.T) {
	t.Parallel()

	ing, _, _ := newIngestor(t)
	err := WebSocketSource{URL: "ws://127.0.0.1:1/nope"}.Run(context.Background(), ing)
	assert.Error(t, err)
}
