package botserver

import (
	"context"
	"fmt"

	"github.com/kasbot/kasbot-server/botjson"
	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/constdef"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/msgfmt"
	"github.com/kasbot/kasbot-server/rewardmgr"
	"github.com/kasbot/kasbot-server/utils"

	"golang.org/x/sync/errgroup"
)

type commandHandler func(context.Context, *BotServer, interface{}) (interface{}, error)

// rpcHandlers maps RPC command strings to appropriate handler functions.
// This is set by init because help references rpcHandlers and thus causes
// a dependency loop.
var rpcHandlers map[string]commandHandler
var rpcHandlersBeforeInit = map[string]commandHandler{
	"version": handleVersion,

	"stats":     handleStats,
	"hashrate":  handleHashRate,
	"daascore":  handleDAAScore,
	"supply":    handleSupply,
	"maxsupply": handleMaxSupply,
	"balance":   handleBalance,

	"miningreward": handleMiningReward,
	"hashshare":    handleHashShare,

	"price":     handlePrice,
	"marketcap": handleMarketCap,
	"chart":     handleChart,

	"wallet.create":  handleWalletCreate,
	"wallet.balance": handleWalletBalance,
	"tip":            handleTip,
	"withdraw":       handleWithdraw,
	"tip.history":    handleTipHistory,
}

// handleVersion implements the version command.
func handleVersion(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	result := map[string]botjson.VersionResult{
		"indexer": {
			VersionString: chaincfg.IndexerBackendVersion,
		},
		"server": {
			VersionString: chaincfg.BotBackendVersion,
		},
	}
	return result, nil
}

// handleStats implements the stats command.  The snapshot kept by the chain
// client is used unless none was fetched yet.
func handleStats(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	if s.chain == nil {
		return nil, errcode.ErrServiceDisabled
	}
	stats := s.chain.Stats()
	if stats == nil {
		var err error
		stats, err = s.chain.FetchStats(ctx)
		if err != nil {
			return nil, err
		}
	}
	return &botjson.StatsResult{
		BlockCount:   stats.BlockCount,
		HeaderCount:  stats.HeaderCount,
		DAAScore:     stats.DAAScore,
		Difficulty:   stats.Difficulty,
		HashRate:     stats.HashRate,
		PruningPoint: stats.PruningPoint,
		Text:         msgfmt.NetworkStats(stats),
	}, nil
}

// handleHashRate implements the hashrate command.
func handleHashRate(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	if s.chain == nil {
		return nil, errcode.ErrServiceDisabled
	}
	hashRate, err := s.chain.GetNetworkHashRate(ctx)
	if err != nil {
		return nil, err
	}
	return &botjson.HashRateResult{
		HashRate: hashRate,
		Text:     "Network hash rate: " + msgfmt.HashRate(hashRate),
	}, nil
}

// handleDAAScore implements the daascore command.
func handleDAAScore(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	if s.chain == nil {
		return nil, errcode.ErrServiceDisabled
	}
	daaScore, err := s.chain.GetDAAScore(ctx)
	if err != nil {
		return nil, err
	}
	return &botjson.DAAScoreResult{
		DAAScore: daaScore,
		Text:     msgfmt.DAAScore(daaScore),
	}, nil
}

// handleSupply implements the supply command.  The estimate and the figure
// reported by the indexer are fetched concurrently, the latter is
// informational only.
func handleSupply(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	var (
		supply     *rewardmgr.SupplyEstimate
		coinSupply *model.CoinSupply
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		supply, err = s.rewards.CirculatingSupply(gctx)
		return err
	})
	if s.chain != nil {
		g.Go(func() error {
			var err error
			coinSupply, err = s.chain.GetCoinSupply(gctx)
			if err != nil {
				log.Debugf("Unable to fetch indexer coin supply: %v", err)
				coinSupply = nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &botjson.SupplyResult{
		DAAScore:          supply.DAAScore,
		CirculatingSupply: supply.CirculatingSupply,
		TotalSupply:       supply.TotalSupply,
		MintedRatio:       supply.MintedRatio(),
		Text:              msgfmt.Supply(supply),
	}
	if coinSupply != nil {
		result.IndexerSupply = coinSupply.CirculatingSupply
	}
	return result, nil
}

// handleMaxSupply implements the maxsupply command.
func handleMaxSupply(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	total := s.rewards.Table().TotalSupply()
	return &botjson.MaxSupplyResult{
		TotalSupply: total,
		Text:        msgfmt.MaxSupply(total),
	}, nil
}

// handleBalance implements the balance command.
func handleBalance(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.BalanceCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.chain == nil {
		return nil, errcode.ErrServiceDisabled
	}
	if !s.params.IsValidAddress(cmd.Address) {
		return nil, fmt.Errorf("%w: %q", errcode.ErrInvalidAddress, cmd.Address)
	}
	balance, err := s.chain.GetBalance(ctx, cmd.Address)
	if err != nil {
		return nil, err
	}
	return &botjson.BalanceResult{
		Address: balance.Address,
		Balance: balance.Balance,
		Text:    msgfmt.Balance(balance.Address, balance.Balance),
	}, nil
}

func checkHashRateText(text string) error {
	if utils.IsBlank(text) {
		return fmt.Errorf("%w: empty hash rate", errcode.ErrHashRateParse)
	}
	if len(text) > constdef.MaxHashRateTextLength {
		return fmt.Errorf("%w: hash rate text too long", errcode.ErrHashRateParse)
	}
	return nil
}

// handleMiningReward implements the miningreward command.
func handleMiningReward(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.MiningRewardCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if err := checkHashRateText(cmd.HashRate); err != nil {
		return nil, err
	}
	estimate, err := s.rewards.EstimateRewards(ctx, cmd.HashRate)
	if err != nil {
		return nil, err
	}
	return &botjson.MiningRewardResult{
		HashRate:        estimate.HashRate,
		NetworkHashRate: estimate.NetworkHashRate,
		HashShare:       estimate.HashShare,
		DAAScore:        estimate.DAAScore,
		Rewards:         estimate.Rewards,
		Text:            msgfmt.RewardEstimate(estimate),
	}, nil
}

// handleHashShare implements the hashshare command.
func handleHashShare(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.HashShareCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if err := checkHashRateText(cmd.HashRate); err != nil {
		return nil, err
	}
	share, network, err := s.rewards.EstimateHashShare(ctx, cmd.HashRate)
	if err != nil {
		return nil, err
	}
	return &botjson.HashShareResult{
		HashShare:       share,
		NetworkHashRate: network,
		Text:            msgfmt.HashShare(share, network),
	}, nil
}

// handlePrice implements the price command.
func handlePrice(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	if s.market == nil {
		return nil, errcode.ErrServiceDisabled
	}
	data, err := s.market.GetMarketData(ctx)
	if err != nil {
		return nil, err
	}
	return &botjson.PriceResult{
		Currency:       data.Currency,
		Price:          data.Price,
		PriceChange24h: data.PriceChange24h,
		Text:           msgfmt.Price(data),
	}, nil
}

// handleMarketCap implements the marketcap command.
func handleMarketCap(ctx context.Context, s *BotServer, cmd interface{}) (interface{}, error) {
	if s.market == nil {
		return nil, errcode.ErrServiceDisabled
	}
	data, err := s.market.GetMarketData(ctx)
	if err != nil {
		return nil, err
	}
	return &botjson.MarketCapResult{
		Currency:  data.Currency,
		MarketCap: data.MarketCap,
		Rank:      data.Rank,
		Text:      msgfmt.MarketCap(data),
	}, nil
}

// handleChart implements the chart command.  The points are returned for the
// adapter to draw.
func handleChart(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.ChartCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.market == nil {
		return nil, errcode.ErrServiceDisabled
	}
	days := constdef.DefaultChartDays
	if cmd.Days != nil {
		days = *cmd.Days
	}
	chart, err := s.market.GetMarketChart(ctx, days)
	if err != nil {
		return nil, err
	}
	low, high := chart.Range()
	return &botjson.ChartResult{
		Currency: chart.Currency,
		Days:     chart.Days,
		Points:   chart.Points,
		Low:      low,
		High:     high,
		Change:   chart.Change(),
		Text:     msgfmt.Chart(chart),
	}, nil
}

// handleWalletCreate implements the wallet.create command.  A user who
// already has a wallet gets it back.
func handleWalletCreate(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.WalletCreateCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.wallets == nil || s.db == nil {
		return nil, errcode.ErrServiceDisabled
	}
	info, created, err := s.wallets.EnsureWallet(ctx, s.db.WithContext(ctx), cmd.User)
	if err != nil {
		return nil, err
	}
	return &botjson.WalletResult{
		Address: info.Address,
		Balance: info.Balance,
		Created: created,
		Text:    msgfmt.Wallet(info, created),
	}, nil
}

// handleWalletBalance implements the wallet.balance command.
func handleWalletBalance(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.WalletBalanceCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.wallets == nil || s.db == nil {
		return nil, errcode.ErrServiceDisabled
	}
	info, err := s.wallets.Balance(ctx, s.db.WithContext(ctx), cmd.User)
	if err != nil {
		return nil, err
	}
	return &botjson.WalletResult{
		Address: info.Address,
		Balance: info.Balance,
		Text:    msgfmt.Wallet(info, false),
	}, nil
}

// handleTip implements the tip command.
func handleTip(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.TipCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.tips == nil || s.db == nil {
		return nil, errcode.ErrServiceDisabled
	}
	if !utils.CheckUserValidity(cmd.To) {
		return nil, botjson.ErrInvalidInput.WithMessage("Invalid recipient")
	}
	if !utils.CheckMessageIDValidity(cmd.MessageID) {
		return nil, botjson.ErrInvalidInput.WithMessage("Invalid message id")
	}
	receipt, err := s.tips.Tip(ctx, s.db.WithContext(ctx), cmd.MessageID, cmd.User, cmd.To, cmd.Amount)
	if err != nil {
		return nil, err
	}
	return &botjson.TipResult{
		Receipt: receipt,
		Text:    msgfmt.TipReceipt(receipt),
	}, nil
}

// handleWithdraw implements the withdraw command.
func handleWithdraw(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.WithdrawCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.tips == nil || s.db == nil {
		return nil, errcode.ErrServiceDisabled
	}
	if !utils.CheckMessageIDValidity(cmd.MessageID) {
		return nil, botjson.ErrInvalidInput.WithMessage("Invalid message id")
	}
	receipt, err := s.tips.Withdraw(ctx, s.db.WithContext(ctx), cmd.MessageID, cmd.User, cmd.Address, cmd.Amount)
	if err != nil {
		return nil, err
	}
	return &botjson.TipResult{
		Receipt: receipt,
		Text:    msgfmt.TipReceipt(receipt),
	}, nil
}

// handleTipHistory implements the tip.history command.
func handleTipHistory(ctx context.Context, s *BotServer, icmd interface{}) (interface{}, error) {
	cmd, ok := icmd.(*botjson.TipHistoryCmd)
	if !ok {
		return nil, botjson.ErrRPCInternal
	}
	if s.tips == nil || s.db == nil {
		return nil, errcode.ErrServiceDisabled
	}
	page, num := 1, constdef.DefaultHistoryPageSize
	if cmd.Page != nil {
		page = *cmd.Page
	}
	if cmd.Num != nil {
		num = *cmd.Num
	}
	if page <= 0 || num <= 0 || num > constdef.MaxHistoryPageSize {
		return nil, botjson.ErrRPCInvalidParams.WithMessage(
			fmt.Sprintf("page must be positive and num between 1 and %d", constdef.MaxHistoryPageSize))
	}
	receipts, total, err := s.tips.History(ctx, s.db.WithContext(ctx), cmd.User, page, num)
	if err != nil {
		return nil, err
	}
	return &botjson.TipHistoryResult{
		Total:    total,
		Receipts: receipts,
		Text:     msgfmt.TipHistory(receipts, total),
	}, nil
}

func init() {
	rpcHandlers = rpcHandlersBeforeInit
}
