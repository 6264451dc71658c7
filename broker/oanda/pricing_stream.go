package oanda

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rustyeddy/fxloop/feed"
)

// StreamPrices reads the v20 pricing stream for instruments ("EUR_USD") and
// feeds every PRICE line to ing. It returns ctx.Err() when ctx ends and an
// error when the server closes the stream; reconnecting is the caller's call.
func (c *Client) StreamPrices(ctx context.Context, instruments []string, ing *feed.Ingestor) error {
	if len(instruments) == 0 {
		return errors.New("oanda: missing instruments")
	}

	body, err := c.openStream(ctx, instruments)
	if err != nil {
		return err
	}
	defer body.Close()

	sc := bufio.NewScanner(body)
	// stream messages can be long; bump max token
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// bad lines are logged and counted by the ingestor
		_ = feed.HandleMessage(ing, sc.Bytes())
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("oanda pricing stream: %w", err)
	}
	return errors.New("oanda pricing stream closed by server")
}

func (c *Client) openStream(ctx context.Context, instruments []string) (io.ReadCloser, error) {
	u, err := url.Parse(c.cfg.StreamURL)
	if err != nil {
		return nil, err
	}
	u.Path = fmt.Sprintf("/v3/accounts/%s/pricing/stream", url.PathEscape(c.cfg.AccountID))
	q := u.Query()
	q.Set("instruments", strings.Join(instruments, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, fmt.Errorf("oanda pricing stream http %d: %s", resp.StatusCode, trimForErr(strings.TrimSpace(string(b))))
	}
	c.log.Infof("pricing stream open for %s", strings.Join(instruments, ","))
	return resp.Body, nil
}

// PriceSource adapts the pricing stream to feed.Source.
type PriceSource struct {
	Client      *Client
	Instruments []string
}

func (s PriceSource) Run(ctx context.Context, ing *feed.Ingestor) error {
	return s.Client.StreamPrices(ctx, s.Instruments, ing)
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
