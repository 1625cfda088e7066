package chainclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	"github.com/abesuite/go-socks/socks"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxRetries    = 3
	defaultRetryBackoff  = 500 * time.Millisecond
	defaultStatsInterval = 30 * time.Second
	maxResponseBytes     = 1 << 20
)

// Config describes how to reach the REST indexer.
type Config struct {
	// BaseURL of the indexer, e.g. https://api.kaspa.org
	BaseURL string
	Timeout time.Duration

	// Proxy is the address of an optional SOCKS5 proxy.
	Proxy     string
	ProxyUser string
	ProxyPass string

	// RequestsPerSecond limits outbound calls, zero disables the limit.
	RequestsPerSecond float64
	Burst             int

	MaxRetries    int
	RetryBackoff  time.Duration
	StatsInterval time.Duration
}

// Client is a client of the REST indexer of the network.  It also keeps a
// snapshot of the network statistics refreshed by a background handler
// started with Start.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter

	statsMtx sync.RWMutex
	stats    *model.ChainStats

	quit    chan struct{}
	wg      sync.WaitGroup
	started bool
	quitMtx sync.Mutex

	// The notifications field stores a slice of callbacks to be executed on
	// certain events.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// New creates a client of the indexer described by cfg.  No request is made
// until a method is called or Start is invoked.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil chain client config", errcode.ErrConfiguration)
	}
	c := *cfg
	if c.BaseURL == "" {
		c.BaseURL = chaincfg.ActiveNetParams.RESTAPIURL
	}
	baseURL, err := url.Parse(strings.TrimSuffix(c.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid indexer url %q: %v", errcode.ErrConfiguration, c.BaseURL, err)
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		return nil, errors.New("max retries must not be negative")
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = defaultStatsInterval
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if c.RequestsPerSecond > 0 {
		burst := c.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
	}

	return &Client{
		cfg:        c,
		baseURL:    baseURL,
		httpClient: newHTTPClient(&c),
		limiter:    limiter,
		quit:       make(chan struct{}),
	}, nil
}

// newHTTPClient returns an HTTP client that dials through the configured
// SOCKS proxy, if any.
func newHTTPClient(cfg *Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		transport.Proxy = nil
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return proxy.Dial(network, addr)
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// validator is implemented by records that check themselves once decoded.
type validator interface {
	Validate() error
}

// statusError carries a non 2xx status returned by the indexer.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %d %s", errcode.ErrUpstreamStatus, e.code, e.body)
}

func (e *statusError) Unwrap() error {
	return errcode.ErrUpstreamStatus
}

func (e *statusError) retryable() bool {
	return e.code >= http.StatusInternalServerError || e.code == http.StatusTooManyRequests
}

// getJSON fetches path and decodes the body into out.  Transport errors and
// 5xx responses are retried with a linear backoff, 4xx responses are not.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return err
	}
	target := c.baseURL.ResolveReference(ref).String()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(attempt)
			log.Debugf("Retrying %v in %v (attempt %d): %v", path, backoff, attempt, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doGet(ctx, target, out)
		if lastErr == nil {
			return nil
		}
		var se *statusError
		if errors.As(lastErr, &se) && !se.retryable() {
			return lastErr
		}
		if errors.Is(lastErr, errcode.ErrUpstreamResponse) || ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("request %v failed after %d attempts: %w", path, c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) doGet(ctx context.Context, target string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
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
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", errcode.ErrUpstreamResponse, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errcode.ErrUpstreamResponse, err)
		}
	}
	return nil
}

// GetBlockDagInfo returns the current state of the DAG.
func (c *Client) GetBlockDagInfo(ctx context.Context) (*model.BlockDagInfo, error) {
	info := &model.BlockDagInfo{}
	if err := c.getJSON(ctx, "info/blockdag", info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetDAAScore returns the virtual DAA score of the network.
func (c *Client) GetDAAScore(ctx context.Context) (uint64, error) {
	info, err := c.GetBlockDagInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.VirtualDaaScore, nil
}

// GetNetworkHashRate returns the network hash rate in hashes per second
// derived from the current difficulty.
func (c *Client) GetNetworkHashRate(ctx context.Context) (float64, error) {
	info, err := c.GetBlockDagInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.NetworkHashRate(), nil
}

// GetCoinSupply returns the circulating and maximum supply in sompi.
func (c *Client) GetCoinSupply(ctx context.Context) (*model.CoinSupply, error) {
	supply := &model.CoinSupply{}
	if err := c.getJSON(ctx, "info/coinsupply", supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// GetBalance returns the balance of an address in sompi.
func (c *Client) GetBalance(ctx context.Context, addr string) (*model.AddressBalance, error) {
	if addr == "" || strings.ContainsAny(addr, "/?#") {
		return nil, fmt.Errorf("%w: %q", errcode.ErrInvalidAddress, addr)
	}
	balance := &model.AddressBalance{}
	if err := c.getJSON(ctx, "addresses/"+url.PathEscape(addr)+"/balance", balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// GetNodeInfo returns the description of the node behind the indexer.
func (c *Client) GetNodeInfo(ctx context.Context) (*model.NodeInfo, error) {
	info := &model.NodeInfo{}
	if err := c.getJSON(ctx, "info/kaspad", info); err != nil {
		return nil, err
	}
	return info, nil
}

// FetchStats refreshes the network statistics and returns the new snapshot.
func (c *Client) FetchStats(ctx context.Context) (*model.ChainStats, error) {
	info, err := c.GetBlockDagInfo(ctx)
	if err != nil {
		return nil, err
	}
	stats := model.NewChainStats(info, time.Now())
	c.statsMtx.Lock()
	c.stats = stats
	c.statsMtx.Unlock()
	return stats, nil
}

// Stats returns the latest snapshot, or nil if none has been fetched.
func (c *Client) Stats() *model.ChainStats {
	c.statsMtx.RLock()
	defer c.statsMtx.RUnlock()
	return c.stats
}
