package main

import (
	"github.com/kasbot/kasbot-server/botserver"
	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/debounce"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/marketclient"
	"github.com/kasbot/kasbot-server/rewardmgr"
	"github.com/kasbot/kasbot-server/service"
	"github.com/kasbot/kasbot-server/statsmgr"
	"github.com/kasbot/kasbot-server/walletclient"

	"gorm.io/gorm"
)

type server struct {
	chainClient   *chainclient.Client
	botServer     *botserver.BotServer
	rewardManager *rewardmgr.RewardManager
	statsManager  *statsmgr.StatsManager
}

// loadEmissionTable returns the configured emission table, the mainnet
// schedule unless a table file was given.
func loadEmissionTable(cfg *config) (*emission.Table, error) {
	if cfg.EmissionTable != "" {
		return emission.LoadTable(cfg.EmissionTable, cfg.boundaryRule)
	}
	return emission.KaspaMainnet(cfg.boundaryRule)
}

func newServer(cfg *config, db *gorm.DB) (*server, error) {
	table, err := loadEmissionTable(cfg)
	if err != nil {
		return nil, err
	}
	kbotLog.Infof("Emission table: %d phases, total supply %v sompi",
		len(table.Phases()), table.TotalSupply())

	chainCli, err := chainclient.New(&chainclient.Config{
		BaseURL:           cfg.IndexerURL,
		Proxy:             cfg.Proxy,
		ProxyUser:         cfg.ProxyUser,
		ProxyPass:         cfg.ProxyPass,
		RequestsPerSecond: cfg.RequestsPerSecond,
		StatsInterval:     cfg.StatsInterval,
	})
	if err != nil {
		return nil, err
	}

	marketCli, err := marketclient.New(&marketclient.Config{
		BaseURL:  cfg.MarketURL,
		CoinID:   chaincfg.ActiveNetParams.MarketCoinID,
		CacheTTL: cfg.MarketCacheTTL,
	})
	if err != nil {
		return nil, err
	}

	debouncer, err := debounce.New(cfg.DebounceInterval, cfg.debounceIntervals, debounce.DefaultCapacity, nil)
	if err != nil {
		return nil, err
	}

	botSvr, err := botserver.NewBotServer(&botserver.Config{
		DisableTLS:        cfg.DisableTLS,
		ListenersString:   cfg.Listeners,
		User:              cfg.GatewayUser,
		Pass:              cfg.GatewayPass,
		MaxClients:        cfg.MaxClients,
		MaxWebsockets:     cfg.MaxWebsockets,
		MaxConcurrentReqs: cfg.MaxConcurrentReqs,
		Key:               cfg.Key,
		Cert:              cfg.Cert,
		ExternalIPs:       cfg.ExternalIPs,
		Blacklist:         cfg.blacklists,
		Whitelist:         cfg.whitelists,
		RequestTimeout:    cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	// Reward projections reuse the polled statistics while they are fresh.
	rewardMgr := rewardmgr.NewRewardManager(table, chainCli, 2*cfg.StatsInterval)
	statsMgr := statsmgr.NewStatsManager(db, cfg.StatsRecordInterval)

	botSvr.SetParams(chaincfg.ActiveNetParams)
	botSvr.SetChainSource(chainCli)
	botSvr.SetRewardSource(rewardMgr)
	botSvr.SetMarketSource(marketCli)
	botSvr.SetDebouncer(debouncer)

	if !cfg.DisableTipping {
		walletCli, err := walletclient.New(cfg.WalletURL, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		walletSvc, err := service.NewWalletService(walletCli, cfg.walletNS, cfg.WalletEntropy)
		if err != nil {
			return nil, err
		}
		tipSvc := service.NewTipService(walletSvc, chaincfg.ActiveNetParams)
		botSvr.SetTipping(db, walletSvc, tipSvc)
	}

	chainCli.Subscribe(rewardMgr.HandleChainClientNotification)
	chainCli.Subscribe(statsMgr.HandleChainClientNotification)
	chainCli.Subscribe(botSvr.HandleChainClientNotification)

	return &server{
		chainClient:   chainCli,
		botServer:     botSvr,
		rewardManager: rewardMgr,
		statsManager:  statsMgr,
	}, nil
}

func (s *server) Start() error {
	if err := s.chainClient.Start(); err != nil {
		return err
	}
	kbotLog.Infof("Projecting rewards with the %v boundary rule", s.rewardManager.Table().Rule())
	s.botServer.Start()
	return nil
}

func (s *server) Stop() {
	kbotLog.Warn("Stopping gateway...")
	if err := s.botServer.Stop(); err != nil {
		kbotLog.Errorf("Unable to stop gateway: %v", err)
	}

	kbotLog.Warn("Stopping chain client...")
	s.chainClient.Stop()
	s.chainClient.WaitForShutdown()
	kbotLog.Infof("Chain client shutdown complete, last DAA score %d", s.statsManager.LastDAAScore())
}
