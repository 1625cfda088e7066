package botjson

import (
	"github.com/kasbot/kasbot-server/model"
)

// Every result carries Text, the reply rendered for the chat user.  The
// other members are the raw values for adapters that render on their own.

// VersionResult models objects included in the version response.  In the
// actual result, these objects are keyed by the program or API name.
type VersionResult struct {
	VersionString string `json:"version,omitempty"`
	Major         uint32 `json:"major,omitempty"`
	Minor         uint32 `json:"minor,omitempty"`
	Patch         uint32 `json:"patch,omitempty"`
	Prerelease    string `json:"prerelease,omitempty"`
	BuildMetadata string `json:"buildmetadata,omitempty"`
}

type StatsResult struct {
	BlockCount   uint64  `json:"block_count"`
	HeaderCount  uint64  `json:"header_count"`
	DAAScore     uint64  `json:"daa_score"`
	Difficulty   float64 `json:"difficulty"`
	HashRate     float64 `json:"hash_rate"`
	PruningPoint string  `json:"pruning_point"`
	Text         string  `json:"text"`
}

type HashRateResult struct {
	HashRate float64 `json:"hash_rate"`
	Text     string  `json:"text"`
}

type DAAScoreResult struct {
	DAAScore uint64 `json:"daa_score"`
	Text     string `json:"text"`
}

// SupplyResult amounts are in sompi.
type SupplyResult struct {
	DAAScore          uint64  `json:"daa_score"`
	CirculatingSupply uint64  `json:"circulating_supply"`
	TotalSupply       uint64  `json:"total_supply"`
	MintedRatio       float64 `json:"minted_ratio"`
	IndexerSupply     uint64  `json:"indexer_supply,omitempty"`
	Text              string  `json:"text"`
}

type MaxSupplyResult struct {
	TotalSupply uint64 `json:"total_supply"`
	Text        string `json:"text"`
}

type BalanceResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Text    string `json:"text"`
}

// MiningRewardResult rewards are in KAS keyed by horizon.
type MiningRewardResult struct {
	HashRate        float64            `json:"hash_rate"`
	NetworkHashRate float64            `json:"network_hash_rate"`
	HashShare       float64            `json:"hash_share"`
	DAAScore        uint64             `json:"daa_score"`
	Rewards         map[string]float64 `json:"rewards"`
	Text            string             `json:"text"`
}

type HashShareResult struct {
	HashShare       float64 `json:"hash_share"`
	NetworkHashRate float64 `json:"network_hash_rate"`
	Text            string  `json:"text"`
}

type PriceResult struct {
	Currency       string  `json:"currency"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"price_change_24h"`
	Text           string  `json:"text"`
}

type MarketCapResult struct {
	Currency  string  `json:"currency"`
	MarketCap float64 `json:"market_cap"`
	Rank      int     `json:"rank"`
	Text      string  `json:"text"`
}

type ChartResult struct {
	Currency string             `json:"currency"`
	Days     int                `json:"days"`
	Points   []model.PricePoint `json:"points"`
	Low      float64            `json:"low"`
	High     float64            `json:"high"`
	Change   float64            `json:"change"`
	Text     string             `json:"text"`
}

type WalletResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Created bool   `json:"created"`
	Text    string `json:"text"`
}

type TipResult struct {
	Receipt *model.TipReceipt `json:"receipt"`
	Text    string            `json:"text"`
}

type TipHistoryResult struct {
	Total    int64               `json:"total"`
	Receipts []*model.TipReceipt `json:"receipts"`
	Text     string              `json:"text"`
}
