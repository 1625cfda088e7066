package botserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasbot/kasbot-server/botjson"
	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/debounce"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/msgfmt"
	"github.com/kasbot/kasbot-server/rewardmgr"
	"github.com/kasbot/kasbot-server/service"
	"github.com/kasbot/kasbot-server/utils"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const (
	// rpcAuthTimeoutSeconds is the number of seconds a connection to the
	// gateway is allowed to stay open without sending a complete request
	// before it is closed.
	rpcAuthTimeoutSeconds = 10

	// maxRequestSize bounds the body of a single JSON-RPC request.
	maxRequestSize = 1 << 20

	defaultRequestTimeout = 15 * time.Second
)

// ChainSource provides the network state read by the chain commands.
type ChainSource interface {
	FetchStats(ctx context.Context) (*model.ChainStats, error)
	Stats() *model.ChainStats
	GetDAAScore(ctx context.Context) (uint64, error)
	GetNetworkHashRate(ctx context.Context) (float64, error)
	GetCoinSupply(ctx context.Context) (*model.CoinSupply, error)
	GetBalance(ctx context.Context, addr string) (*model.AddressBalance, error)
}

// RewardSource projects mining rewards and the coin supply.
type RewardSource interface {
	EstimateRewards(ctx context.Context, hashRateText string) (*rewardmgr.RewardEstimate, error)
	EstimateHashShare(ctx context.Context, hashRateText string) (float64, float64, error)
	CirculatingSupply(ctx context.Context) (*rewardmgr.SupplyEstimate, error)
	Table() *emission.Table
}

// MarketSource provides price data.
type MarketSource interface {
	GetMarketData(ctx context.Context) (*model.MarketData, error)
	GetMarketChart(ctx context.Context, days int) (*model.MarketChart, error)
}

// simpleAddr implements the net.Addr interface with two struct fields
type simpleAddr struct {
	net, addr string
}

// String returns the address.
//
// This is part of the net.Addr interface.
func (a simpleAddr) String() string {
	return a.addr
}

// Network returns the network.
//
// This is part of the net.Addr interface.
func (a simpleAddr) Network() string {
	return a.net
}

// Ensure simpleAddr implements the net.Addr interface.
var _ net.Addr = simpleAddr{}

// Config is a descriptor containing the gateway configuration.
type Config struct {
	DisableTLS bool
	// ListenersString an array that contains ip address and port for generating
	// listeners later
	ListenersString []string

	// Listeners defines a slice of listeners for which the gateway will
	// take ownership of and accept connections.  Since the gateway takes
	// ownership of these listeners, they will be closed when the gateway
	// is stopped.
	Listeners []net.Listener

	// User and Pass are the HTTP Basic credentials of the chat adapters.
	// Authentication is disabled when either is empty.
	User string
	Pass string

	MaxClients        int
	MaxWebsockets     int
	MaxConcurrentReqs int
	Key               string
	Cert              string
	ExternalIPs       []string

	Blacklist []*net.IPNet
	Whitelist []*net.IPNet

	// RequestTimeout bounds the time a handler may spend on upstream calls.
	RequestTimeout time.Duration
}

// BotServer answers the JSON-RPC commands issued by chat adapters over HTTP
// and websockets.
type BotServer struct {
	started     int32
	shutdown    int32
	startTime   int64
	cfg         Config
	authsha     [sha256.Size]byte
	requireAuth bool
	ntfnMgr     *wsNotificationManager
	numClients  int32
	mux         *http.ServeMux
	httpServer  *http.Server
	wg          sync.WaitGroup
	metrics     *gatewayMetrics

	chain     ChainSource
	rewards   RewardSource
	market    MarketSource
	wallets   service.WalletService
	tips      service.TipService
	db        *gorm.DB
	debouncer *debounce.Debouncer
	params    *chaincfg.Params
}

func (svr *BotServer) SetChainSource(chain ChainSource) {
	svr.chain = chain
}

func (svr *BotServer) SetRewardSource(rewards RewardSource) {
	svr.rewards = rewards
}

func (svr *BotServer) SetMarketSource(market MarketSource) {
	svr.market = market
}

// SetTipping enables the wallet and tipping commands.
func (svr *BotServer) SetTipping(db *gorm.DB, wallets service.WalletService, tips service.TipService) {
	svr.db = db
	svr.wallets = wallets
	svr.tips = tips
}

func (svr *BotServer) SetDebouncer(debouncer *debounce.Debouncer) {
	svr.debouncer = debouncer
}

func (svr *BotServer) SetParams(params *chaincfg.Params) {
	svr.params = params
}

// filesExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// genCertPair generates a key/cert pair to the paths provided.
func genCertPair(certFile string, keyFile string, externalIPs []string) error {
	log.Infof("Generating TLS certificates of the gateway...")

	org := "kasbot gateway autogenerated cert"
	validUntil := time.Now().Add(10 * 365 * 24 * time.Hour)
	cert, key, err := btcutil.NewTLSCertPair(org, validUntil, externalIPs)
	if err != nil {
		return err
	}

	// Write cert and key files.
	if err = os.WriteFile(certFile, cert, 0666); err != nil {
		return err
	}
	if err = os.WriteFile(keyFile, key, 0600); err != nil {
		os.Remove(certFile)
		return err
	}

	log.Infof("Done generating TLS certificates")
	return nil
}

// parseListeners determines whether each listen address is IPv4 and IPv6 and
// returns a slice of appropriate net.Addrs to listen on with TCP. It also
// properly detects addresses which apply to "all interfaces" and adds the
// address as both IPv4 and IPv6.
func parseListeners(addrs []string) ([]net.Addr, error) {
	netAddrs := make([]net.Addr, 0, len(addrs)*2)
	for _, addr := range addrs {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			// Shouldn't happen due to already being normalized.
			return nil, err
		}

		// Empty host or host of * on plan9 is both IPv4 and IPv6.
		if host == "" || (host == "*" && runtime.GOOS == "plan9") {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp4", addr: addr})
			netAddrs = append(netAddrs, simpleAddr{net: "tcp6", addr: addr})
			continue
		}

		// Strip IPv6 zone id if present since net.ParseIP does not
		// handle it.
		zoneIndex := strings.LastIndex(host, "%")
		if zoneIndex > 0 {
			host = host[:zoneIndex]
		}

		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("'%s' is not a valid IP address", host)
		}

		// To4 returns nil when the IP is not an IPv4 address, so use
		// this determine the address type.
		if ip.To4() == nil {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp6", addr: addr})
		} else {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp4", addr: addr})
		}
	}
	return netAddrs, nil
}

// setupRPCListeners returns a slice of listeners that are configured for use
// with the gateway depending on the configuration settings for listen
// addresses and TLS.  A missing key pair is generated.
func setupRPCListeners(cfg *Config) ([]net.Listener, error) {
	listenFunc := net.Listen
	if !cfg.DisableTLS {
		if !fileExists(cfg.Key) && !fileExists(cfg.Cert) {
			if err := genCertPair(cfg.Cert, cfg.Key, cfg.ExternalIPs); err != nil {
				return nil, err
			}
		}

		keypair, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, err
		}

		tlsConfig := tls.Config{
			Certificates: []tls.Certificate{keypair},
			MinVersion:   tls.VersionTLS12,
		}

		// Change the standard net.Listen function to the tls one.
		listenFunc = func(net string, laddr string) (net.Listener, error) {
			return tls.Listen(net, laddr, &tlsConfig)
		}
	}

	netAddrs, err := parseListeners(cfg.ListenersString)
	if err != nil {
		return nil, err
	}

	listeners := make([]net.Listener, 0, len(netAddrs))
	for _, addr := range netAddrs {
		listener, err := listenFunc(addr.Network(), addr.String())
		if err != nil {
			log.Warnf("Can't listen on %s: %v", addr, err)
			continue
		}
		listeners = append(listeners, listener)
	}

	return listeners, nil
}

// NewBotServer returns a new instance of the BotServer struct.  Listeners are
// only opened when listen addresses are configured, otherwise the gateway is
// served through Handler.
func NewBotServer(config *Config) (*BotServer, error) {
	cfg := *config
	if len(cfg.ListenersString) > 0 {
		rpcListeners, err := setupRPCListeners(&cfg)
		if err != nil {
			return nil, err
		}
		if len(rpcListeners) == 0 {
			return nil, errors.New("gateway: no valid listen address")
		}
		cfg.Listeners = rpcListeners
	}
	if cfg.MaxConcurrentReqs <= 0 {
		cfg.MaxConcurrentReqs = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	svr := &BotServer{
		startTime: time.Now().Unix(),
		cfg:       cfg,
		metrics:   defaultGatewayMetrics(),
		params:    chaincfg.ActiveNetParams,
	}
	if cfg.User != "" && cfg.Pass != "" {
		login := cfg.User + ":" + cfg.Pass
		auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
		svr.authsha = sha256.Sum256([]byte(auth))
		svr.requireAuth = true
	}
	svr.ntfnMgr = newWsNotificationManager(svr)
	svr.mux = svr.newServeMux()

	return svr, nil
}

// Handler returns the HTTP handler serving the JSON-RPC, websocket and
// metrics endpoints.
func (svr *BotServer) Handler() http.Handler {
	return svr.mux
}

func (svr *BotServer) newServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Http endpoint.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		w.Header().Set("Content-Type", "application/json")
		r.Close = true

		if isUndesiredIP(r.RemoteAddr, svr.cfg.Blacklist, svr.cfg.Whitelist) {
			jsonIPForbidden(w)
			return
		}

		// Limit the number of connections to max allowed.
		if svr.limitConnections(w, r.RemoteAddr) {
			return
		}

		// Keep track of the number of connected clients.
		svr.incrementClients()
		defer svr.decrementClients()
		if err := svr.checkAuth(r); err != nil {
			jsonAuthFail(w)
			return
		}

		// Read and respond to the request.
		svr.jsonRPCRead(w, r)
	})

	// Websocket endpoint.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if isUndesiredIP(r.RemoteAddr, svr.cfg.Blacklist, svr.cfg.Whitelist) {
			jsonIPForbidden(w)
			return
		}
		if err := svr.checkAuth(r); err != nil {
			jsonAuthFail(w)
			return
		}

		// Attempt to upgrade the connection to a websocket connection
		// using the default size for read/write buffers.
		ws, err := websocket.Upgrade(w, r, nil, 0, 0)
		if err != nil {
			if _, ok := err.(websocket.HandshakeError); !ok {
				log.Errorf("Unexpected websocket error: %v",
					err)
			}
			http.Error(w, "400 Bad Request.", http.StatusBadRequest)
			return
		}
		svr.WebsocketHandler(ws, r.RemoteAddr)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// jsonRPCRead handles reading and responding to a JSON-RPC request sent over
// HTTP.
func (svr *BotServer) jsonRPCRead(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&svr.shutdown) != 0 {
		http.Error(w, "503 Shutting down.", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "405 Method not allowed.", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	r.Body.Close()
	if err != nil {
		errCode := http.StatusBadRequest
		http.Error(w, fmt.Sprintf("%d error reading JSON message: %v",
			errCode, err), errCode)
		return
	}

	var request botjson.Request
	if err := json.Unmarshal(body, &request); err != nil {
		jsonErr := &botjson.RPCError{
			Code:    botjson.ErrRPCParse.Code,
			Message: "Failed to parse request: " + err.Error(),
		}
		svr.writeReply(w, nil, nil, jsonErr)
		return
	}

	// Requests with no ID (notifications) must not have a response per
	// the JSON-RPC spec.
	if request.ID == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cmd := parseCmd(&request, false)
	if cmd.err != nil {
		svr.writeReply(w, cmd.id, nil, cmd.err)
		return
	}
	log.Debugf("Received command <%s> from %s", cmd.method, r.RemoteAddr)

	result, err := svr.standardCmdResult(r.Context(), cmd)
	svr.writeReply(w, cmd.id, result, err)
}

func (svr *BotServer) writeReply(w http.ResponseWriter, id, result interface{}, replyErr error) {
	reply, err := createMarshalledReply(id, result, replyErr)
	if err != nil {
		errMsg := fmt.Sprintf("Failed to marshal reply: %s", err.Error())
		log.Error(errMsg)
		http.Error(w, "500 "+errMsg, http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(reply); err != nil {
		log.Errorf("Failed to write marshalled reply: %v", err)
	}
}

// Start is used by server.go to start the gateway listeners.
func (svr *BotServer) Start() {
	if atomic.AddInt32(&svr.started, 1) != 1 {
		return
	}

	log.Trace("Starting gateway...")
	svr.httpServer = &http.Server{
		Handler: svr.mux,

		// Timeout connections which don't complete the initial
		// handshake within the allowed timeframe.
		ReadTimeout: time.Second * rpcAuthTimeoutSeconds,
	}

	for _, listener := range svr.cfg.Listeners {
		svr.wg.Add(1)
		go func(listener net.Listener) {
			tlsState := "on"
			if svr.cfg.DisableTLS {
				tlsState = "off"
			}
			log.Infof("Gateway listening on %s (TLS %s)", listener.Addr(), tlsState)
			svr.httpServer.Serve(listener)
			log.Tracef("Gateway listener done for %s", listener.Addr())
			svr.wg.Done()
		}(listener)
	}

	svr.ntfnMgr.Start()
}

// Stop is used by server.go to stop the gateway listeners.
func (svr *BotServer) Stop() error {
	if atomic.AddInt32(&svr.shutdown, 1) != 1 {
		log.Infof("Gateway is already in the process of shutting down")
		return nil
	}
	log.Warnf("Gateway shutting down...")
	for _, listener := range svr.cfg.Listeners {
		err := listener.Close()
		if err != nil {
			log.Errorf("Problem shutting down gateway: %v", err)
			return err
		}
	}
	if atomic.LoadInt32(&svr.started) != 0 {
		svr.ntfnMgr.Shutdown()
		svr.ntfnMgr.WaitForShutdown()
	}
	svr.wg.Wait()
	log.Infof("Gateway shutdown complete")
	return nil
}

// limitConnections responds with a 503 service unavailable and returns true if
// adding another client would exceed the maximum allow RPC clients.
//
// This function is safe for concurrent access.
func (svr *BotServer) limitConnections(w http.ResponseWriter, remoteAddr string) bool {
	if svr.cfg.MaxClients <= 0 {
		return false
	}
	if int(atomic.LoadInt32(&svr.numClients)+1) > svr.cfg.MaxClients {
		log.Infof("Max gateway clients exceeded [%d] - "+
			"disconnecting client %s", svr.cfg.MaxClients,
			remoteAddr)
		http.Error(w, "503 Too busy.  Try again later.",
			http.StatusServiceUnavailable)
		return true
	}
	return false
}

// incrementClients adds one to the number of connected RPC clients.  Note
// this only applies to standard clients.  Websocket clients have their own
// limits and are tracked separately.
//
// This function is safe for concurrent access.
func (svr *BotServer) incrementClients() {
	atomic.AddInt32(&svr.numClients, 1)
}

// decrementClients subtracts one from the number of connected RPC clients.
// Note this only applies to standard clients.  Websocket clients have their own
// limits and are tracked separately.
//
// This function is safe for concurrent access.
func (svr *BotServer) decrementClients() {
	atomic.AddInt32(&svr.numClients, -1)
}

// checkAuth checks the HTTP Basic authentication. If the supplied authentication
// does not match the username and password expected, a non-nil error is
// returned.
//
// This check is time-constant.
func (svr *BotServer) checkAuth(r *http.Request) error {
	if !svr.requireAuth {
		return nil
	}
	authhdr := r.Header["Authorization"]
	if len(authhdr) <= 0 {
		log.Warnf("Gateway authentication failure from %s", r.RemoteAddr)
		return errors.New("auth failure")
	}

	authsha := sha256.Sum256([]byte(authhdr[0]))
	cmp := subtle.ConstantTimeCompare(authsha[:], svr.authsha[:])
	if cmp != 1 {
		log.Warnf("Gateway authentication failure from %s", r.RemoteAddr)
		return errors.New("auth failure")
	}
	return nil
}

// jsonAuthFail sends a message back to the client if the http auth is rejected.
func jsonAuthFail(w http.ResponseWriter) {
	w.Header().Add("WWW-Authenticate", `Basic realm="kasbot gateway"`)
	http.Error(w, "401 Unauthorized.", http.StatusUnauthorized)
}

func jsonIPForbidden(w http.ResponseWriter) {
	http.Error(w, "403 Forbidden.", http.StatusForbidden)
}

// createMarshalledReply returns a new marshalled JSON-RPC response given the
// passed parameters.  It will automatically convert errors that are not of
// the type *botjson.RPCError to the appropriate type as needed.
func createMarshalledReply(id, result interface{}, replyErr error) ([]byte, error) {
	var jsonErr *botjson.RPCError
	if replyErr != nil {
		if jErr, ok := replyErr.(*botjson.RPCError); ok {
			jsonErr = jErr
		} else {
			jsonErr = internalRPCError(replyErr.Error(), "")
		}
	}

	return botjson.MarshalResponse(id, result, jsonErr)
}

// parsedRPCCmd represents a JSON-RPC request object that has been parsed into
// a known concrete command along with any error that might have happened while
// parsing it.
type parsedRPCCmd struct {
	id     interface{}
	method string
	flags  botjson.UsageFlag
	cmd    interface{}
	err    *botjson.RPCError
}

// parseCmd parses a JSON-RPC request object into known concrete command.  The
// err field of the returned parsedRPCCmd struct will contain an RPC error that
// is suitable for use in replies if the command is invalid in some way such as
// an unregistered command or invalid parameters.
func parseCmd(request *botjson.Request, websocket bool) *parsedRPCCmd {
	var parsedCmd parsedRPCCmd
	parsedCmd.id = request.ID
	parsedCmd.method = request.Method

	flags, err := botjson.MethodUsageFlags(request.Method)
	if err != nil || flags&botjson.UFNotification != 0 {
		parsedCmd.err = botjson.ErrRPCMethodNotFound
		return &parsedCmd
	}
	if !websocket && flags&botjson.UFWebsocketOnly != 0 {
		parsedCmd.err = botjson.ErrRPCInvalidRequest.WithMessage(
			fmt.Sprintf("%s is only available over websocket", request.Method))
		return &parsedCmd
	}
	parsedCmd.flags = flags

	cmd, err := botjson.UnmarshalCmd(request)
	if err != nil {
		// When the error is because the method is not registered,
		// produce a method not found RPC error.
		if errors.Is(err, botjson.ErrUnregisteredMethod) {
			parsedCmd.err = botjson.ErrRPCMethodNotFound
			return &parsedCmd
		}

		// Otherwise, some type of invalid parameters is the
		// cause, so produce the equivalent RPC error.
		parsedCmd.err = botjson.NewRPCError(
			botjson.ErrRPCInvalidParams.Code, err.Error())
		return &parsedCmd
	}

	parsedCmd.cmd = cmd
	return &parsedCmd
}

// userInputErrors are the replies after which a debounced command may be
// retried right away.
var userInputErrors = map[botjson.RPCErrorCode]struct{}{
	botjson.ErrRPCInvalidParams.Code:    {},
	botjson.ErrHashRateParse.Code:       {},
	botjson.ErrInvalidInput.Code:        {},
	botjson.ErrInvalidAmount.Code:       {},
	botjson.ErrAddressInvalid.Code:      {},
	botjson.ErrSelfTip.Code:             {},
	botjson.ErrInsufficientBalance.Code: {},
}

// standardCmdResult checks that a parsed command is a registered command
// issued for a valid user, applies the per user debounce and runs the
// appropriate handler to reply to the command.  Any error returned is
// suitable for use in replies.
func (svr *BotServer) standardCmdResult(ctx context.Context, cmd *parsedRPCCmd) (result interface{}, err error) {
	start := time.Now()
	outcome := outcomeOK

	// Recovery
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Panic from %v handler: %v\n", cmd.method, rec)
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			log.Errorf("Stack Trace ==>\n %s\n", string(buf[:n]))
			log.Infof("Recovering...")
			// Dump panic file
			_ = utils.DumpPanicInfo(fmt.Sprintf("%v", rec) + "\n" + string(buf[:n]))
			result, err = nil, botjson.ErrRPCInternal
			outcome = outcomeError
		}
		svr.metrics.observe(cmd.method, outcome, time.Since(start))
	}()

	handler, ok := rpcHandlers[cmd.method]
	if !ok {
		outcome = outcomeError
		return nil, botjson.ErrRPCMethodNotFound
	}

	var user string
	if userCmd, ok := cmd.cmd.(botjson.UserCmd); ok {
		user = userCmd.Requester()
		if !utils.CheckUserValidity(user) {
			outcome = outcomeError
			return nil, botjson.ErrMissingUser
		}
		if svr.debouncer != nil && cmd.flags&botjson.UFNoDebounce == 0 {
			allowed, wait := svr.debouncer.Allow(user, cmd.method)
			if !allowed {
				outcome = outcomeDebounced
				return nil, botjson.ErrRateLimited.WithMessage(msgfmt.RetryAfter(wait))
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, svr.cfg.RequestTimeout)
	defer cancel()

	result, err = handler(ctx, svr, cmd.cmd)
	if err != nil {
		outcome = outcomeError
		rpcErr := rpcErrorFor(err, cmd.method)
		if _, ok := userInputErrors[rpcErr.Code]; ok && user != "" && svr.debouncer != nil {
			svr.debouncer.Reset(user, cmd.method)
		}
		return nil, rpcErr
	}
	return result, nil
}

// HandleChainClientNotification handles notifications from chain client.  A
// new stats snapshot is pushed to every websocket client.
func (svr *BotServer) HandleChainClientNotification(notification *chainclient.Notification) {
	switch notification.Type {

	case chainclient.NTStatsChanged:
		stats, ok := notification.Data.(*model.ChainStats)
		if !ok || stats == nil {
			log.Warnf("The NTStatsChanged notification is not a stats snapshot!")
			break
		}
		if atomic.LoadInt32(&svr.started) == 0 || atomic.LoadInt32(&svr.shutdown) != 0 {
			break
		}
		svr.ntfnMgr.NotifyStatsChanged(stats)
	}
}

// isUndesiredIP determines whether the server should continue to pursue
// a connection with this peer based on its ip address. It performs
// the following steps:
// 1) Reject the peer if it contains a blacklisted ip.
// 2) If no whitelist is provided, accept all ip.
// 3) Accept the peer if it contains a whitelisted ip.
// 4) Reject all other peers.
func isUndesiredIP(remoteAddress string, blacklistedIPs, whitelistedIPs []*net.IPNet) bool {
	if len(blacklistedIPs) == 0 && len(whitelistedIPs) == 0 {
		return false
	}

	host, _, err := net.SplitHostPort(remoteAddress)
	if err != nil {
		log.Warnf("Unable to SplitHostPort on '%s': %v", remoteAddress, err)
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		log.Warnf("Unable to parse IP '%s'", remoteAddress)
		return false
	}

	for _, blacklistedIP := range blacklistedIPs {
		if blacklistedIP.Contains(ip) {
			log.Debugf("Ignoring peer %s because it contains blacklisted ip: %v", remoteAddress, blacklistedIP)
			return true
		}
	}

	// If no whitelist is provided, we will accept all peers.
	if len(whitelistedIPs) == 0 {
		return false
	}

	// Check to see if it contains one of our whitelisted ip, if so accept.
	for _, whitelistedIP := range whitelistedIPs {
		if whitelistedIP.Contains(ip) {
			return false
		}
	}

	// Otherwise, the peer's ip was not included in our whitelist.
	log.Debugf("Ignoring peer %s because it is not in whitelist", remoteAddress)

	return true
}
