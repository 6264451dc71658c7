package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PriceMessage is one line of an OANDA v20 pricing stream. Relays that
// forward the stream over a websocket send the same shape.
type PriceMessage struct {
	Type       string `json:"type"`
	Time       string `json:"time"`
	Instrument string `json:"instrument"`

	Bids []struct {
		Price string `json:"price"`
	} `json:"bids"`

	Asks []struct {
		Price string `json:"price"`
	} `json:"asks"`
}

// HandleMessage decodes one JSON price message and applies it. HEARTBEAT and
// other non-PRICE messages are skipped without error.
func HandleMessage(ing *Ingestor, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var msg PriceMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return ing.reject(fmt.Errorf("bad json: %w (line=%q)", err, trimForErr(string(line))))
	}

	if !strings.EqualFold(msg.Type, "PRICE") {
		return nil
	}
	if msg.Instrument == "" || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return ing.reject(fmt.Errorf("incomplete price message (line=%q)", trimForErr(string(line))))
	}

	t := time.Now().UTC()
	if msg.Time != "" {
		parsed, err := time.Parse(time.RFC3339Nano, msg.Time)
		if err != nil {
			return ing.reject(fmt.Errorf("tick %s: bad time %q: %w", msg.Instrument, msg.Time, err))
		}
		t = parsed
	}
	return ing.ApplyStrings(msg.Instrument, t, msg.Bids[0].Price, msg.Asks[0].Price)
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
