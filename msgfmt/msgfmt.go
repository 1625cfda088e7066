// Package msgfmt renders the text replies of the bot.
package msgfmt

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/rewardmgr"

	"github.com/dustin/go-humanize"
)

var horizonCaptions = map[string]string{
	"second": "sec",
	"minute": "min",
	"hour":   "hour",
	"day":    "day",
	"week":   "week",
	"month":  "month",
	"year":   "year",
}

// MiningCalc renders a projection as a table.  The per second figure keeps
// its full precision, the others are rounded to whole KAS.
func MiningCalc(projection rewardmgr.Projection) string {
	var b strings.Builder
	for _, entry := range projection.Ordered() {
		caption := horizonCaptions[entry.Label]
		var amount string
		if entry.Label == "second" {
			amount = humanize.Commaf(entry.Amount)
		} else {
			amount = humanize.Comma(int64(math.Round(entry.Amount)))
		}
		fmt.Fprintf(&b, "  KAS / %-6s:  %s\n", caption, amount)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// HashRate renders a hash rate with an SI prefix, e.g. "1.25 PH/s".
func HashRate(hashRate float64) string {
	return humanize.SIWithDigits(hashRate, 2, "H/s")
}

// Percent renders a fraction as a percentage.
func Percent(ratio float64) string {
	pct := ratio * 100
	switch {
	case pct == 0:
		return "0%"
	case pct < 0.0001:
		return fmt.Sprintf("%.2e%%", pct)
	default:
		return humanize.FtoaWithDigits(pct, 4) + "%"
	}
}

// KAS renders an amount of sompi in KAS with thousands separators.
func KAS(sompi uint64) string {
	return humanize.CommafWithDigits(emission.SompiToKaspa(sompi), 8) + " KAS"
}

// RewardEstimate renders the answer of the mining calculator.
func RewardEstimate(estimate *rewardmgr.RewardEstimate) string {
	return fmt.Sprintf("Mining %s is %s of the network (%s) at DAA score %s\n%s",
		HashRate(estimate.HashRate), Percent(estimate.HashShare), HashRate(estimate.NetworkHashRate),
		humanize.Comma(int64(estimate.DAAScore)), MiningCalc(estimate.Rewards))
}

// HashShare renders the share of the network of a hash rate.
func HashShare(share, networkHashRate float64) string {
	return fmt.Sprintf("That is %s of the network hash rate (%s)", Percent(share), HashRate(networkHashRate))
}

// NetworkStats renders a snapshot of the network.
func NetworkStats(stats *model.ChainStats) string {
	return fmt.Sprintf("Blocks: %s\nHeaders: %s\nDAA score: %s\nDifficulty: %s\nHash rate: %s\nPruning point: %s",
		humanize.Comma(int64(stats.BlockCount)), humanize.Comma(int64(stats.HeaderCount)),
		humanize.Comma(int64(stats.DAAScore)), humanize.Commaf(math.Round(stats.Difficulty)),
		HashRate(stats.HashRate), stats.PruningPoint)
}

// DAAScore renders the current DAA score.
func DAAScore(daaScore uint64) string {
	return "Current DAA score: " + humanize.Comma(int64(daaScore))
}

// Supply renders the circulating supply against the total supply.
func Supply(supply *rewardmgr.SupplyEstimate) string {
	return fmt.Sprintf("Circulating supply: %s\nMax supply: %s\nMinted: %s",
		wholeKAS(supply.CirculatingSupply), wholeKAS(supply.TotalSupply), Percent(supply.MintedRatio()))
}

// MaxSupply renders the total supply.
func MaxSupply(total uint64) string {
	return "Max supply: " + wholeKAS(total)
}

func wholeKAS(sompi uint64) string {
	return humanize.Comma(int64(sompi/emission.SompiPerKaspa)) + " KAS"
}

// Balance renders the balance of an address.
func Balance(address string, sompi uint64) string {
	return fmt.Sprintf("Balance of %s: %s", address, KAS(sompi))
}

// Wallet renders a custodial wallet.
func Wallet(info *model.WalletInfo, created bool) string {
	if created {
		return fmt.Sprintf("Wallet created. Deposit address: %s", info.Address)
	}
	return fmt.Sprintf("Address: %s\nBalance: %s", info.Address, KAS(info.Balance))
}

// Price renders the price of the coin.
func Price(data *model.MarketData) string {
	return fmt.Sprintf("Price: $%s (%+.2f%% 24h)", usd(data.Price), data.PriceChange24h)
}

// MarketCap renders the market capitalisation of the coin.
func MarketCap(data *model.MarketData) string {
	res := fmt.Sprintf("Market cap: $%s", humanize.Comma(int64(math.Round(data.MarketCap))))
	if data.Rank > 0 {
		res += fmt.Sprintf(" (rank #%d)", data.Rank)
	}
	return res
}

// Chart summarizes a price history.
func Chart(chart *model.MarketChart) string {
	low, high := chart.Range()
	return fmt.Sprintf("%dd: low $%s, high $%s, change %+.2f%%", chart.Days,
		usd(low), usd(high), chart.Change()*100)
}

func usd(amount float64) string {
	return humanize.CommafWithDigits(amount, 6)
}

// TipReceipt renders a completed tip or withdrawal.
func TipReceipt(receipt *model.TipReceipt) string {
	target := receipt.ToUser
	if receipt.Withdrawal || target == "" {
		target = receipt.ToAddress
	}
	return fmt.Sprintf("%s sent %s to %s (tx %s)", receipt.FromUser, KAS(receipt.Amount), target,
		strings.Join(receipt.TxIDs, ", "))
}

// TipHistory renders a page of receipts.
func TipHistory(receipts []*model.TipReceipt, total int64) string {
	if len(receipts) == 0 {
		return "No tips yet"
	}
	lines := make([]string, 0, len(receipts)+1)
	lines = append(lines, fmt.Sprintf("%d of %d %s", len(receipts), total, pickNoun(total, "tip", "tips")))
	for _, r := range receipts {
		lines = append(lines, fmt.Sprintf("%s  %s", humanize.Time(r.CreatedAt), TipReceipt(r)))
	}
	return strings.Join(lines, "\n")
}

// RetryAfter renders the wait imposed on a debounced command.
func RetryAfter(wait time.Duration) string {
	seconds := int64(math.Ceil(wait.Seconds()))
	return fmt.Sprintf("Slow down, try again in %d %s", seconds, pickNoun(seconds, "second", "seconds"))
}

// pickNoun returns the singular or plural form of a noun depending
// on the count n.
func pickNoun(n int64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
