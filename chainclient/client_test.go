package chainclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockDagBody = `{
	"networkName": "kaspa-mainnet",
	"blockCount": "1500",
	"headerCount": "1500",
	"tipHashes": ["a1", "b2"],
	"difficulty": 5.0e15,
	"pastMedianTime": "1700000000000",
	"virtualParentHashes": ["a1"],
	"pruningPointHash": "c3",
	"virtualDaaScore": "100000000"
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&Config{
		BaseURL:       srv.URL,
		Timeout:       time.Second,
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
		StatsInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestGetBlockDagInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info/blockdag", r.URL.Path)
		w.Write([]byte(blockDagBody))
	}))

	info, err := c.GetBlockDagInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), info.VirtualDaaScore)
	assert.Equal(t, uint64(1500), info.BlockCount)
	assert.Equal(t, []string{"a1", "b2"}, info.TipHashes)

	score, err := c.GetDAAScore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), score)

	rate, err := c.GetNetworkHashRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0e16, rate)
}

func TestGetCoinSupplyAndBalance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info/coinsupply", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"circulatingSupply":"2515200200494517400","maxSupply":"2837624239795181400"}`))
	})
	mux.HandleFunc("/addresses/kaspa:qqabc/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":"kaspa:qqabc","balance":123456789}`))
	})
	c := newTestClient(t, mux)

	supply, err := c.GetCoinSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2_515_200_200_494_517_400), supply.CirculatingSupply)
	assert.Equal(t, uint64(2_837_624_239_795_181_400), supply.MaxSupply)

	balance, err := c.GetBalance(context.Background(), "kaspa:qqabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), balance.Balance)

	_, err = c.GetBalance(context.Background(), "../info")
	assert.ErrorIs(t, err, errcode.ErrInvalidAddress)
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(blockDagBody))
	}))

	_, err := c.GetBlockDagInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "not found", http.StatusNotFound)
	}))

	_, err := c.GetCoinSupply(context.Background())
	assert.ErrorIs(t, err, errcode.ErrUpstreamStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGiveUpAfterRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.GetDAAScore(context.Background())
	assert.ErrorIs(t, err, errcode.ErrUpstreamStatus)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not_json", `<html>`},
		{"numeric_not_string", `{"blockCount": 10, "headerCount": "10", "tipHashes": ["a"]}`},
		{"no_tips", `{"blockCount": "10", "headerCount": "10", "tipHashes": []}`},
		{"negative_difficulty", `{"blockCount": "1", "headerCount": "1", "tipHashes": ["a"], "difficulty": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			_, err := c.GetBlockDagInfo(context.Background())
			assert.ErrorIs(t, err, errcode.ErrUpstreamResponse)
		})
	}
}

func TestPollerNotifiesOnAdvance(t *testing.T) {
	var score uint64 = 100
	mux := http.NewServeMux()
	mux.HandleFunc("/info/kaspad", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mempoolSize":"3","serverVersion":"0.13.4","isUtxoIndexed":true,"isSynced":true}`))
	})
	mux.HandleFunc("/info/blockdag", func(w http.ResponseWriter, r *http.Request) {
		s := atomic.AddUint64(&score, 1)
		w.Write([]byte(`{"blockCount":"1","headerCount":"1","tipHashes":["a"],"difficulty":2,` +
			`"virtualDaaScore":"` + strconv.FormatUint(s, 10) + `"}`))
	})
	c := newTestClient(t, mux)

	var mtx sync.Mutex
	var seen []*model.ChainStats
	done := make(chan struct{})
	c.Subscribe(func(n *Notification) {
		if n.Type != NTStatsChanged {
			return
		}
		mtx.Lock()
		defer mtx.Unlock()
		seen = append(seen, n.Data.(*model.ChainStats))
		if len(seen) == 2 {
			close(done)
		}
	})

	require.NoError(t, c.Start())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no stats notifications")
	}
	c.Stop()
	c.WaitForShutdown()

	mtx.Lock()
	defer mtx.Unlock()
	assert.Less(t, seen[0].DAAScore, seen[1].DAAScore)
	assert.Equal(t, 4.0, seen[0].HashRate)
	require.NotNil(t, c.Stats())
}

func TestNotificationTypeString(t *testing.T) {
	assert.Equal(t, "NTStatsChanged", NTStatsChanged.String())
	assert.Equal(t, "Unknown Notification Type (9)", NotificationType(9).String())
}
