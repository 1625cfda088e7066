package marketclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/errcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coinBody = `{
	"id": "kaspa",
	"market_cap_rank": 24,
	"market_data": {
		"current_price": {"usd": 0.1234, "eur": 0.11},
		"market_cap": {"usd": 3000000000},
		"total_volume": {"usd": 45000000},
		"price_change_percentage_24h": -2.5,
		"circulating_supply": 24000000000,
		"last_updated": "2024-05-01T12:00:00.000Z"
	}
}`

const chartBody = `{"prices": [[1714564800000, 0.12], [1714568400000, 0.15], [1714572000000, 0.09]]}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(&Config{BaseURL: srv.URL, CoinID: "kaspa", CacheTTL: time.Minute})
	require.NoError(t, err)
	return c
}

func TestGetMarketData(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/coins/kaspa", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("tickers"))
		w.Write([]byte(coinBody))
	}))

	data, err := c.GetMarketData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "usd", data.Currency)
	assert.Equal(t, 0.1234, data.Price)
	assert.Equal(t, 3e9, data.MarketCap)
	assert.Equal(t, -2.5, data.PriceChange24h)
	assert.Equal(t, 24, data.Rank)
	assert.Equal(t, 2024, data.UpdatedAt.Year())

	_, err = c.GetMarketData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheExpires(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(coinBody))
	}))
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.GetMarketData(context.Background())
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = c.GetMarketData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestConcurrentCallersShareFetch(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(coinBody))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetMarketData(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetMarketChart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/kaspa/market_chart", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		w.Write([]byte(chartBody))
	}))

	chart, err := c.GetMarketChart(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, chart.Points, 3)
	assert.Equal(t, int64(1714564800), chart.Points[0].Time.Unix())
	low, high := chart.Range()
	assert.Equal(t, 0.09, low)
	assert.Equal(t, 0.15, high)
	assert.InDelta(t, -0.25, chart.Change(), 1e-9)

	for _, days := range []int{0, -1, 366} {
		_, err = c.GetMarketChart(context.Background(), days)
		assert.ErrorIs(t, err, errcode.ErrInvalidInput)
	}
}

func TestUpstreamErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := c.GetMarketData(context.Background())
	assert.ErrorIs(t, err, errcode.ErrUpstreamStatus)

	c = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market_data": {"current_price": {"eur": 1}}}`))
	}))
	_, err = c.GetMarketData(context.Background())
	assert.ErrorIs(t, err, errcode.ErrUpstreamResponse)

	_, err = New(&Config{})
	assert.ErrorIs(t, err, errcode.ErrConfiguration)
}
