package marketclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	lru "github.com/hashicorp/golang-lru"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultCacheTTL  = 30 * time.Second
	defaultCacheSize = 64
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
	vsCurrency       = "usd"
)

// Config describes the market data API.
type Config struct {
	BaseURL  string
	CoinID   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// Client fetches market data from a CoinGecko compatible API.  Answers are
// kept for CacheTTL and shared by all callers.
type Client struct {
	baseURL    string
	coinID     string
	ttl        time.Duration
	httpClient *http.Client
	cache      *lru.Cache
	now        func() time.Time

	// fetchMtx serializes misses so concurrent callers wait for a single
	// upstream request.
	fetchMtx sync.Mutex
}

func New(cfg *Config) (*Client, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.CoinID == "" {
		return nil, fmt.Errorf("%w: empty coin id", errcode.ErrConfiguration)
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimSuffix(c.BaseURL, "/"),
		coinID:     c.CoinID,
		ttl:        c.CacheTTL,
		httpClient: &http.Client{Timeout: c.Timeout},
		cache:      cache,
		now:        time.Now,
	}, nil
}

func (c *Client) cached(key string) (interface{}, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(*cacheEntry)
	if c.now().After(entry.expires) {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// load returns the cached value of key or calls fetch and caches its result.
func (c *Client) load(key string, fetch func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.cached(key); ok {
		return v, nil
	}

	c.fetchMtx.Lock()
	defer c.fetchMtx.Unlock()
	if v, ok := c.cached(key); ok {
		return v, nil
	}

	v, err := fetch()
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, &cacheEntry{value: v, expires: c.now().Add(c.ttl)})
	return v, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: market api returned %d", errcode.ErrUpstreamStatus, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", errcode.ErrUpstreamResponse, err)
	}
	return nil
}

type coinResponse struct {
	MarketCapRank int `json:"market_cap_rank"`
	MarketData    struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
		CirculatingSupply        float64            `json:"circulating_supply"`
		LastUpdated              time.Time          `json:"last_updated"`
	} `json:"market_data"`
}

// GetMarketData returns the market summary of the coin in USD.
func (c *Client) GetMarketData(ctx context.Context) (*model.MarketData, error) {
	v, err := c.load("market", func() (interface{}, error) {
		query := url.Values{}
		query.Set("localization", "false")
		query.Set("tickers", "false")
		query.Set("community_data", "false")
		query.Set("developer_data", "false")

		var res coinResponse
		if err := c.getJSON(ctx, "/coins/"+url.PathEscape(c.coinID), query, &res); err != nil {
			return nil, err
		}
		price, ok := res.MarketData.CurrentPrice[vsCurrency]
		if !ok {
			return nil, fmt.Errorf("%w: no %v price", errcode.ErrUpstreamResponse, vsCurrency)
		}
		data := &model.MarketData{
			Currency:          vsCurrency,
			Price:             price,
			MarketCap:         res.MarketData.MarketCap[vsCurrency],
			TotalVolume:       res.MarketData.TotalVolume[vsCurrency],
			PriceChange24h:    res.MarketData.PriceChangePercentage24h,
			CirculatingSupply: res.MarketData.CirculatingSupply,
			Rank:              res.MarketCapRank,
			UpdatedAt:         res.MarketData.LastUpdated,
		}
		if err := data.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", errcode.ErrUpstreamResponse, err)
		}
		log.Debugf("Fetched market data: price %v, market cap %v", data.Price, data.MarketCap)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.MarketData), nil
}

// GetMarketChart returns the USD price history over the last days.
func (c *Client) GetMarketChart(ctx context.Context, days int) (*model.MarketChart, error) {
	if days <= 0 || days > 365 {
		return nil, fmt.Errorf("%w: days must be within [1, 365], got %d", errcode.ErrInvalidInput, days)
	}
	v, err := c.load("chart:"+strconv.Itoa(days), func() (interface{}, error) {
		query := url.Values{}
		query.Set("vs_currency", vsCurrency)
		query.Set("days", strconv.Itoa(days))

		var res struct {
			Prices [][2]float64 `json:"prices"`
		}
		path := "/coins/" + url.PathEscape(c.coinID) + "/market_chart"
		if err := c.getJSON(ctx, path, query, &res); err != nil {
			return nil, err
		}
		chart := &model.MarketChart{
			Currency: vsCurrency,
			Days:     days,
			Points:   make([]model.PricePoint, 0, len(res.Prices)),
		}
		for _, p := range res.Prices {
			chart.Points = append(chart.Points, model.PricePoint{
				Time:  time.UnixMilli(int64(p[0])).UTC(),
				Price: p[1],
			})
		}
		return chart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.MarketChart), nil
}
