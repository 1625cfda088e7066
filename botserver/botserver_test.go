package botserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/botjson"
	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/dal"
	"github.com/kasbot/kasbot-server/debounce"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/rewardmgr"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testAddress = "kaspa:qz7ulu4c25dh7fzec9zjyrmlhnkzrg4wmf89q7gzr3gfrsj3uz6xjceef60sd"

type fakeChain struct {
	stats     *model.ChainStats
	daaScore  uint64
	hashRate  float64
	err       error
	supplyErr error
}

func (f *fakeChain) FetchStats(ctx context.Context) (*model.ChainStats, error) {
	return f.stats, f.err
}

func (f *fakeChain) Stats() *model.ChainStats {
	return f.stats
}

func (f *fakeChain) GetDAAScore(ctx context.Context) (uint64, error) {
	return f.daaScore, f.err
}

func (f *fakeChain) GetNetworkHashRate(ctx context.Context) (float64, error) {
	return f.hashRate, f.err
}

func (f *fakeChain) GetCoinSupply(ctx context.Context) (*model.CoinSupply, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.supplyErr != nil {
		return nil, f.supplyErr
	}
	return &model.CoinSupply{CirculatingSupply: 2_400_000_000 * emission.SompiPerKaspa}, nil
}

func (f *fakeChain) GetBalance(ctx context.Context, addr string) (*model.AddressBalance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.AddressBalance{Address: addr, Balance: 150_000_000}, nil
}

type fakeMarket struct {
	mtx  sync.Mutex
	days []int
}

func (f *fakeMarket) GetMarketData(ctx context.Context) (*model.MarketData, error) {
	return &model.MarketData{Currency: "usd", Price: 0.1234, MarketCap: 3e9, PriceChange24h: -2.5, Rank: 12}, nil
}

func (f *fakeMarket) GetMarketChart(ctx context.Context, days int) (*model.MarketChart, error) {
	f.mtx.Lock()
	f.days = append(f.days, days)
	f.mtx.Unlock()
	now := time.Now()
	return &model.MarketChart{
		Currency: "usd",
		Days:     days,
		Points: []model.PricePoint{
			{Time: now.Add(-time.Hour), Price: 0.12},
			{Time: now, Price: 0.09},
		},
	}, nil
}

type fakeWallets struct{}

func (fakeWallets) EnsureWallet(ctx context.Context, tx *gorm.DB, username string) (*model.WalletInfo, bool, error) {
	return &model.WalletInfo{Address: testAddress}, true, nil
}

func (fakeWallets) Balance(ctx context.Context, tx *gorm.DB, username string) (*model.WalletInfo, error) {
	if username == "nobody" {
		return nil, errcode.ErrWalletNotFound
	}
	return &model.WalletInfo{Address: testAddress, Balance: 200_000_000}, nil
}

func (fakeWallets) Credentials(username string) (string, string) {
	return username, username
}

type fakeTips struct {
	err error
}

func (f *fakeTips) Tip(ctx context.Context, tx *gorm.DB, requestID string, from string, to string,
	amount float64) (*model.TipReceipt, error) {

	if f.err != nil {
		return nil, f.err
	}
	return &model.TipReceipt{FromUser: from, ToUser: to, Amount: uint64(amount * 1e8), TxIDs: []string{"a"}}, nil
}

func (f *fakeTips) Withdraw(ctx context.Context, tx *gorm.DB, requestID string, from string, address string,
	amount float64) (*model.TipReceipt, error) {

	if f.err != nil {
		return nil, f.err
	}
	return &model.TipReceipt{FromUser: from, ToAddress: address, Amount: uint64(amount * 1e8),
		TxIDs: []string{"b"}, Withdrawal: true}, nil
}

func (f *fakeTips) History(ctx context.Context, tx *gorm.DB, username string, page int,
	num int) ([]*model.TipReceipt, int64, error) {

	return []*model.TipReceipt{{FromUser: username, ToUser: "bob", Amount: 1e8, TxIDs: []string{"c"}}}, 1, nil
}

type rpcReply struct {
	Result json.RawMessage   `json:"result"`
	Error  *botjson.RPCError `json:"error"`
	ID     interface{}       `json:"id"`
}

func newTestServer(t *testing.T, cfg *Config) (*BotServer, *fakeChain) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{DisableTLS: true}
	}
	svr, err := NewBotServer(cfg)
	require.NoError(t, err)

	table, err := emission.KaspaMainnet(emission.BoundaryAdditive)
	require.NoError(t, err)
	chain := &fakeChain{
		stats: &model.ChainStats{
			BlockCount:   10,
			HeaderCount:  11,
			DAAScore:     100_000_000,
			Difficulty:   2e15,
			HashRate:     4e15,
			PruningPoint: "abc",
			FetchedAt:    time.Now(),
		},
		daaScore: 100_000_000,
		hashRate: 4e15,
	}
	svr.SetChainSource(chain)
	svr.SetRewardSource(rewardmgr.NewRewardManager(table, chain, 0))
	return svr, chain
}

func call(t *testing.T, url string, cmd interface{}) *rpcReply {
	t.Helper()
	body, err := botjson.MarshalCmd(1, cmd)
	require.NoError(t, err)
	return post(t, url, body)
}

func post(t *testing.T, url string, body []byte) *rpcReply {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply rpcReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return &reply
}

func TestMiningReward(t *testing.T) {
	svr, _ := newTestServer(t, nil)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewMiningRewardCmd("alice", "1 PH/s"))
	require.Nil(t, reply.Error)

	var result botjson.MiningRewardResult
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	assert.Equal(t, 1e15, result.HashRate)
	assert.InDelta(t, 0.25, result.HashShare, 1e-12)
	assert.Equal(t, uint64(100_000_000), result.DAAScore)
	assert.Len(t, result.Rewards, 7)
	assert.Contains(t, result.Text, "KAS / sec")

	reply = call(t, ts.URL, botjson.NewHashShareCmd("alice", "2 PH/s"))
	require.Nil(t, reply.Error)
	var share botjson.HashShareResult
	require.NoError(t, json.Unmarshal(reply.Result, &share))
	assert.InDelta(t, 0.5, share.HashShare, 1e-12)

	reply = call(t, ts.URL, botjson.NewMiningRewardCmd("alice", "lots"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrHashRateParse.Code, reply.Error.Code)

	reply = call(t, ts.URL, botjson.NewMiningRewardCmd("alice", strings.Repeat("1", 65)))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrHashRateParse.Code, reply.Error.Code)
}

func TestChainCommands(t *testing.T) {
	svr, chain := newTestServer(t, nil)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewStatsCmd("alice"))
	require.Nil(t, reply.Error)
	var stats botjson.StatsResult
	require.NoError(t, json.Unmarshal(reply.Result, &stats))
	assert.Equal(t, uint64(10), stats.BlockCount)
	assert.Equal(t, "abc", stats.PruningPoint)

	reply = call(t, ts.URL, botjson.NewSupplyCmd("alice"))
	require.Nil(t, reply.Error)
	var supply botjson.SupplyResult
	require.NoError(t, json.Unmarshal(reply.Result, &supply))
	assert.Equal(t, emission.KaspaTotalSupply, supply.TotalSupply)
	assert.Greater(t, supply.MintedRatio, 0.0)
	assert.Less(t, supply.MintedRatio, 1.0)
	assert.Equal(t, uint64(2_400_000_000*emission.SompiPerKaspa), supply.IndexerSupply)

	reply = call(t, ts.URL, botjson.NewMaxSupplyCmd("alice"))
	require.Nil(t, reply.Error)
	var maxSupply botjson.MaxSupplyResult
	require.NoError(t, json.Unmarshal(reply.Result, &maxSupply))
	assert.Equal(t, emission.KaspaTotalSupply, maxSupply.TotalSupply)

	reply = call(t, ts.URL, botjson.NewBalanceCmd("alice", testAddress))
	require.Nil(t, reply.Error)
	var balance botjson.BalanceResult
	require.NoError(t, json.Unmarshal(reply.Result, &balance))
	assert.Equal(t, uint64(150_000_000), balance.Balance)
	assert.Contains(t, balance.Text, "1.5 KAS")

	reply = call(t, ts.URL, botjson.NewBalanceCmd("alice", "bitcoin:nope"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrAddressInvalid.Code, reply.Error.Code)

	chain.err = fmt.Errorf("%w: 500", errcode.ErrUpstreamStatus)
	reply = call(t, ts.URL, botjson.NewDAAScoreCmd("alice"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrUpstreamUnavailable.Code, reply.Error.Code)
}

func TestSupplyWithoutIndexerSupply(t *testing.T) {
	svr, chain := newTestServer(t, nil)
	chain.supplyErr = fmt.Errorf("%w: 503", errcode.ErrUpstreamStatus)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewSupplyCmd("alice"))
	require.Nil(t, reply.Error)
	var supply botjson.SupplyResult
	require.NoError(t, json.Unmarshal(reply.Result, &supply))
	assert.Equal(t, uint64(100_000_000), supply.DAAScore)
	assert.Zero(t, supply.IndexerSupply)
	assert.Greater(t, supply.CirculatingSupply, uint64(0))
}

func TestMarketCommands(t *testing.T) {
	svr, _ := newTestServer(t, nil)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewPriceCmd("alice"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrServiceDisabled.Code, reply.Error.Code)

	market := &fakeMarket{}
	svr.SetMarketSource(market)

	reply = call(t, ts.URL, botjson.NewPriceCmd("alice"))
	require.Nil(t, reply.Error)
	var price botjson.PriceResult
	require.NoError(t, json.Unmarshal(reply.Result, &price))
	assert.Equal(t, 0.1234, price.Price)

	reply = call(t, ts.URL, botjson.NewMarketCapCmd("alice"))
	require.Nil(t, reply.Error)
	var marketCap botjson.MarketCapResult
	require.NoError(t, json.Unmarshal(reply.Result, &marketCap))
	assert.Equal(t, 12, marketCap.Rank)

	reply = call(t, ts.URL, botjson.NewChartCmd("alice", nil))
	require.Nil(t, reply.Error)
	days := 30
	reply = call(t, ts.URL, botjson.NewChartCmd("bob", &days))
	require.Nil(t, reply.Error)
	var chart botjson.ChartResult
	require.NoError(t, json.Unmarshal(reply.Result, &chart))
	assert.Equal(t, 0.09, chart.Low)
	assert.Equal(t, 0.12, chart.High)
	assert.Equal(t, []int{7, 30}, market.days)
}

func TestTippingCommands(t *testing.T) {
	svr, _ := newTestServer(t, nil)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewWalletCreateCmd("alice"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrServiceDisabled.Code, reply.Error.Code)

	db, err := dal.OpenMemoryDB()
	require.NoError(t, err)
	tips := &fakeTips{}
	svr.SetTipping(db, fakeWallets{}, tips)

	reply = call(t, ts.URL, botjson.NewWalletCreateCmd("alice"))
	require.Nil(t, reply.Error)
	var wallet botjson.WalletResult
	require.NoError(t, json.Unmarshal(reply.Result, &wallet))
	assert.True(t, wallet.Created)
	assert.Equal(t, testAddress, wallet.Address)

	reply = call(t, ts.URL, botjson.NewWalletBalanceCmd("nobody"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrWalletNotFound.Code, reply.Error.Code)

	reply = call(t, ts.URL, botjson.NewTipCmd("alice", "m1", "bob", 1))
	require.Nil(t, reply.Error)
	var tip botjson.TipResult
	require.NoError(t, json.Unmarshal(reply.Result, &tip))
	assert.Equal(t, "alice sent 1 KAS to bob (tx a)", tip.Text)

	reply = call(t, ts.URL, botjson.NewTipCmd("alice", "m 2", "bob", 1))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrInvalidInput.Code, reply.Error.Code)

	reply = call(t, ts.URL, botjson.NewTipCmd("alice", "m3", "", 1))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrInvalidInput.Code, reply.Error.Code)

	reply = call(t, ts.URL, botjson.NewWithdrawCmd("alice", "m4", testAddress, 1))
	require.Nil(t, reply.Error)

	tips.err = fmt.Errorf("%w: alice", errcode.ErrSelfTip)
	reply = call(t, ts.URL, botjson.NewTipCmd("alice", "m5", "alice", 1))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrSelfTip.Code, reply.Error.Code)

	tips.err = errcode.ErrWalletTransaction
	reply = call(t, ts.URL, botjson.NewWithdrawCmd("alice", "m6", testAddress, 1))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrWalletUnavailable.Code, reply.Error.Code)

	reply = call(t, ts.URL, botjson.NewTipHistoryCmd("alice", nil, nil))
	require.Nil(t, reply.Error)
	var history botjson.TipHistoryResult
	require.NoError(t, json.Unmarshal(reply.Result, &history))
	assert.Equal(t, int64(1), history.Total)

	num := 51
	reply = call(t, ts.URL, botjson.NewTipHistoryCmd("alice", nil, &num))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrRPCInvalidParams.Code, reply.Error.Code)
}

func TestRequestErrors(t *testing.T) {
	svr, _ := newTestServer(t, nil)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := post(t, ts.URL, []byte(`{"jsonrpc":"2.0","method":"nope","params":{},"id":1}`))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrRPCMethodNotFound.Code, reply.Error.Code)

	reply = post(t, ts.URL, []byte(`{"jsonrpc":"2.0","method":"stats.changed","params":{},"id":1}`))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrRPCMethodNotFound.Code, reply.Error.Code)

	reply = post(t, ts.URL, []byte(`{"jsonrpc":"2.0","method":"stats","params":{"user":"a","x":1},"id":1}`))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrRPCInvalidParams.Code, reply.Error.Code)

	reply = post(t, ts.URL, []byte(`{"jsonrpc":`))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrRPCParse.Code, reply.Error.Code)

	reply = post(t, ts.URL, []byte(`{"jsonrpc":"2.0","method":"stats","params":{},"id":"x"}`))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrMissingUser.Code, reply.Error.Code)
	assert.Equal(t, "x", reply.ID)

	reply = call(t, ts.URL, botjson.NewVersionCmd())
	require.Nil(t, reply.Error)

	resp, err := http.Post(ts.URL, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","method":"version","params":{}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDebounce(t *testing.T) {
	svr, _ := newTestServer(t, nil)
	now := time.Unix(1_700_000_000, 0)
	debouncer, err := debounce.New(time.Minute, nil, 0, func() time.Time { return now })
	require.NoError(t, err)
	svr.SetDebouncer(debouncer)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewDAAScoreCmd("alice"))
	require.Nil(t, reply.Error)

	reply = call(t, ts.URL, botjson.NewDAAScoreCmd("alice"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrRateLimited.Code, reply.Error.Code)
	assert.Equal(t, "Slow down, try again in 60 seconds", reply.Error.Message)

	reply = call(t, ts.URL, botjson.NewDAAScoreCmd("bob"))
	require.Nil(t, reply.Error)

	// Version is never debounced.
	for i := 0; i < 2; i++ {
		reply = call(t, ts.URL, botjson.NewVersionCmd())
		require.Nil(t, reply.Error)
	}

	// A rejected input can be corrected right away.
	reply = call(t, ts.URL, botjson.NewHashShareCmd("alice", "lots"))
	require.NotNil(t, reply.Error)
	assert.Equal(t, botjson.ErrHashRateParse.Code, reply.Error.Code)
	reply = call(t, ts.URL, botjson.NewHashShareCmd("alice", "1 TH/s"))
	require.Nil(t, reply.Error)
}

func TestAuth(t *testing.T) {
	svr, _ := newTestServer(t, &Config{DisableTLS: true, User: "bot", Pass: "secret"})
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	body, err := botjson.MarshalCmd(1, botjson.NewVersionCmd())
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader(body))
	require.NoError(t, err)
	req.SetBasicAuth("bot", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader(body))
	require.NoError(t, err)
	req.SetBasicAuth("bot", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	svr, _ := newTestServer(t, nil)
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()

	reply := call(t, ts.URL, botjson.NewDAAScoreCmd("metrics-user"))
	require.Nil(t, reply.Error)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `kasbot_gateway_requests_total{method="daascore",outcome="ok"}`)
}

func TestWebsocket(t *testing.T) {
	svr, _ := newTestServer(t, &Config{DisableTLS: true, User: "bot", Pass: "secret", MaxWebsockets: 2})
	svr.Start()
	ts := httptest.NewServer(svr.Handler())
	defer ts.Close()
	defer svr.Stop()

	header := http.Header{}
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("bot:secret")))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	body, err := botjson.MarshalCmd(7, botjson.NewDAAScoreCmd("alice"))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, body))

	var reply rpcReply
	require.NoError(t, conn.ReadJSON(&reply))
	require.Nil(t, reply.Error)
	assert.Equal(t, float64(7), reply.ID)

	svr.HandleChainClientNotification(&chainclient.Notification{
		Type: chainclient.NTStatsChanged,
		Data: &model.ChainStats{DAAScore: 123, BlockCount: 4, FetchedAt: time.UnixMilli(5000)},
	})

	var ntfn botjson.Notification
	require.NoError(t, conn.ReadJSON(&ntfn))
	assert.Equal(t, botjson.StatsChangedNtfnMethod, ntfn.Method)
	var stats botjson.StatsChangedNtfn
	require.NoError(t, json.Unmarshal(ntfn.Params, &stats))
	assert.Equal(t, uint64(123), stats.DAAScore)
	assert.Equal(t, int64(5000), stats.FetchedAtMs)

	_, _, err = websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
}

func TestIsUndesiredIP(t *testing.T) {
	_, local, err := net.ParseCIDR("127.0.0.0/8")
	require.NoError(t, err)
	_, private, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)

	assert.False(t, isUndesiredIP("127.0.0.1:1234", nil, nil))
	assert.False(t, isUndesiredIP("127.0.0.1:1234", nil, []*net.IPNet{local}))
	assert.True(t, isUndesiredIP("10.1.2.3:1234", nil, []*net.IPNet{local}))
	assert.True(t, isUndesiredIP("10.1.2.3:1234", []*net.IPNet{private}, nil))
}

func TestRPCErrorFor(t *testing.T) {
	tests := []struct {
		err  error
		code botjson.RPCErrorCode
	}{
		{botjson.ErrSelfTip, botjson.ErrSelfTip.Code},
		{fmt.Errorf("%w: x", errcode.ErrHashRateParse), botjson.ErrHashRateParse.Code},
		{fmt.Errorf("%w: zero", errcode.ErrInvalidInput), botjson.ErrInvalidInput.Code},
		{errcode.ErrDuplicateTip, botjson.ErrDuplicateTip.Code},
		{errcode.ErrWalletInsufficientBalance, botjson.ErrInsufficientBalance.Code},
		{errcode.ErrWalletPasswordIncorrect, botjson.ErrWalletUnavailable.Code},
		{context.DeadlineExceeded, botjson.ErrUpstreamUnavailable.Code},
		{errcode.ErrUpstreamResponse, botjson.ErrUpstreamUnavailable.Code},
		{fmt.Errorf("boom"), botjson.ErrRPCInternal.Code},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, rpcErrorFor(tt.err, "test").Code, tt.err.Error())
	}
}
