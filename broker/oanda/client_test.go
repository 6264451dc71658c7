package oanda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rustyeddy/fxloop/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		AccountID: "101-001-1",
		Token:     "test-token",
		BaseURL:   server.URL,
		StreamURL: server.URL,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestURLs(t *testing.T) {
	t.Parallel()

	api, stream, err := URLs("practice")
	require.NoError(t, err)
	assert.Equal(t, PracticeURL, api)
	assert.Equal(t, PracticeStreamURL, stream)

	api, stream, err = URLs(" LIVE ")
	require.NoError(t, err)
	assert.Equal(t, LiveURL, api)
	assert.Equal(t, LiveStreamURL, stream)

	_, _, err = URLs("sandbox")
	assert.Error(t, err)
}

func TestNewClientValidates(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{AccountID: "1"}, nil)
	assert.ErrorContains(t, err, "token")

	_, err = NewClient(Config{Token: "x"}, nil)
	assert.ErrorContains(t, err, "account")

	c, err := NewClient(Config{Token: "x", AccountID: "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, PracticeURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultRatePerSecond, c.cfg.RatePerSecond)
	assert.Equal(t, "1", c.AccountID())
}

func TestCreateMarketOrderFilled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/accounts/101-001-1/orders", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, marketOrder{
			Type:         "MARKET",
			Instrument:   "EUR_USD",
			Units:        "-2000",
			TimeInForce:  "FOK",
			PositionFill: "DEFAULT",
		}, req.Order)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"orderCreateTransaction": map[string]string{"id": "6368"},
			"orderFillTransaction":   map[string]string{"id": "6369", "price": "1.10000"},
			"lastTransactionID":      "6369",
		})
	})

	res, err := c.CreateMarketOrder(context.Background(), "EUR_USD", -2000)
	require.NoError(t, err)
	assert.Equal(t, OrderResult{OrderID: "6368", FillID: "6369", Price: "1.10000"}, res)
}

func TestCreateMarketOrderCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"orderCreateTransaction": map[string]string{"id": "7"},
			"orderCancelTransaction": map[string]string{"id": "8", "reason": "MARKET_HALTED"},
		})
	})

	res, err := c.CreateMarketOrder(context.Background(), "EUR_USD", 10)
	assert.ErrorIs(t, err, broker.ErrRejected)
	assert.ErrorContains(t, err, "MARKET_HALTED")
	assert.Equal(t, "7", res.OrderID)
}

func TestCreateMarketOrderHTTPError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"errorCode":    "INSUFFICIENT_MARGIN",
			"errorMessage": "not enough margin",
		})
	})

	_, err := c.CreateMarketOrder(context.Background(), "EUR_USD", 10)
	assert.ErrorIs(t, err, broker.ErrRejected)
	assert.ErrorContains(t, err, "not enough margin")
}

func TestCreateMarketOrderZeroUnits(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.CreateMarketOrder(context.Background(), "EUR_USD", 0)
	assert.Error(t, err)
}
