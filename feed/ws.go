package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSource reads JSON price messages from a relay. A frame may carry
// several newline separated messages.
type WebSocketSource struct {
	URL         string
	Header      http.Header
	ReadTimeout time.Duration // 0 means 60s
}

// Run returns nil when the server closes the connection normally, ctx.Err()
// when ctx ends, and the read error otherwise. Reconnecting is left to the
// caller.
func (s WebSocketSource) Run(ctx context.Context, ing *Ingestor) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.URL, s.Header)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", s.URL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		// unblocks ReadMessage
		_ = conn.Close()
	})
	defer stop()

	timeout := s.ReadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		for _, line := range bytes.Split(msg, []byte("\n")) {
			_ = HandleMessage(ing, line)
		}
	}
}
