// Package oanda talks to the OANDA v20 REST API: market order submission and
// the chunked pricing stream.
package oanda

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rustyeddy/fxloop/broker"
	"github.com/rustyeddy/fxloop/internal/logger"
	"resty.dev/v3"
)

type Client struct {
	cfg  Config
	rest *resty.Client
	http *http.Client
	log  logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	rest := resty.New().
		SetLogger(log).
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetHeader("Accept-Datetime-Format", "RFC3339").
		SetTimeout(cfg.Timeout)

	return &Client{
		cfg:  cfg,
		rest: rest,
		// the stream is long lived, so no client timeout; ctx ends it
		http: &http.Client{},
		log:  log,
	}, nil
}

func (c *Client) AccountID() string { return c.cfg.AccountID }

func (c *Client) Close() error {
	return c.rest.Close()
}

type orderRequest struct {
	Order marketOrder `json:"order"`
}

type marketOrder struct {
	Type         string `json:"type"`
	Instrument   string `json:"instrument"`
	Units        string `json:"units"`
	TimeInForce  string `json:"timeInForce"`
	PositionFill string `json:"positionFill"`
}

type transaction struct {
	ID     string `json:"id"`
	Price  string `json:"price,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type orderResponse struct {
	OrderCreateTransaction *transaction `json:"orderCreateTransaction"`
	OrderFillTransaction   *transaction `json:"orderFillTransaction"`
	OrderCancelTransaction *transaction `json:"orderCancelTransaction"`
	LastTransactionID      string       `json:"lastTransactionID"`
}

type errorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// OrderResult describes a filled market order.
type OrderResult struct {
	OrderID string
	FillID  string
	Price   string
}

// CreateMarketOrder submits a fill-or-kill market order. Positive units buy,
// negative units sell. A cancelled (unfilled) order wraps broker.ErrRejected.
func (c *Client) CreateMarketOrder(ctx context.Context, instrument string, units int64) (OrderResult, error) {
	if units == 0 {
		return OrderResult{}, fmt.Errorf("oanda: zero units for %s", instrument)
	}

	body := orderRequest{Order: marketOrder{
		Type:         "MARKET",
		Instrument:   instrument,
		Units:        strconv.FormatInt(units, 10),
		TimeInForce:  "FOK",
		PositionFill: "DEFAULT",
	}}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("accountID", c.cfg.AccountID).
		SetBody(body).
		SetResult(&orderResponse{}).
		SetError(&errorResponse{}).
		Post("/v3/accounts/{accountID}/orders")
	if err != nil {
		return OrderResult{}, fmt.Errorf("%w: can't send order", err)
	}
	defer resp.Body.Close()

	c.log.Debugf("order response %s status: %s, %s", instrument, resp.Status(), resp.Duration())

	if resp.IsError() {
		e, _ := resp.Error().(*errorResponse)
		if e == nil || e.ErrorMessage == "" {
			return OrderResult{}, fmt.Errorf("oanda order %s: %w: %s", instrument, broker.ErrRejected, resp.Status())
		}
		return OrderResult{}, fmt.Errorf("oanda order %s: %w: %s (%s)", instrument, broker.ErrRejected, e.ErrorMessage, e.ErrorCode)
	}

	r, _ := resp.Result().(*orderResponse)
	if r == nil || r.OrderCreateTransaction == nil {
		return OrderResult{}, fmt.Errorf("oanda order %s: unexpected response %s", instrument, resp.Status())
	}
	out := OrderResult{OrderID: r.OrderCreateTransaction.ID}
	if r.OrderCancelTransaction != nil {
		return out, fmt.Errorf("oanda order %s: %w: %s", instrument, broker.ErrRejected, r.OrderCancelTransaction.Reason)
	}
	if r.OrderFillTransaction != nil {
		out.FillID = r.OrderFillTransaction.ID
		out.Price = r.OrderFillTransaction.Price
	}
	return out, nil
}
