package botjson

// UserParams carries the chat user a command is issued for.  Adapters pass a
// stable platform user id.
type UserParams struct {
	User string `json:"user"`
}

// Requester returns the chat user of the command.
func (p *UserParams) Requester() string {
	return p.User
}

// UserCmd is implemented by every command issued on behalf of a chat user.
type UserCmd interface {
	Requester() string
}

// VersionCmd defines the version JSON-RPC command.
type VersionCmd struct{}

// NewVersionCmd returns a new instance which can be used to issue a JSON-RPC
// version command.
func NewVersionCmd() *VersionCmd { return new(VersionCmd) }

// StatsCmd defines the stats JSON-RPC command.
type StatsCmd struct {
	UserParams
}

func NewStatsCmd(user string) *StatsCmd {
	return &StatsCmd{UserParams{User: user}}
}

// HashRateCmd defines the hashrate JSON-RPC command, the network hash rate.
type HashRateCmd struct {
	UserParams
}

func NewHashRateCmd(user string) *HashRateCmd {
	return &HashRateCmd{UserParams{User: user}}
}

// DAAScoreCmd defines the daascore JSON-RPC command.
type DAAScoreCmd struct {
	UserParams
}

func NewDAAScoreCmd(user string) *DAAScoreCmd {
	return &DAAScoreCmd{UserParams{User: user}}
}

// SupplyCmd defines the supply JSON-RPC command.
type SupplyCmd struct {
	UserParams
}

func NewSupplyCmd(user string) *SupplyCmd {
	return &SupplyCmd{UserParams{User: user}}
}

// MaxSupplyCmd defines the maxsupply JSON-RPC command.
type MaxSupplyCmd struct {
	UserParams
}

func NewMaxSupplyCmd(user string) *MaxSupplyCmd {
	return &MaxSupplyCmd{UserParams{User: user}}
}

// BalanceCmd defines the balance JSON-RPC command, the balance of any
// address.
type BalanceCmd struct {
	UserParams
	Address string `json:"address"`
}

func NewBalanceCmd(user string, address string) *BalanceCmd {
	return &BalanceCmd{
		UserParams: UserParams{User: user},
		Address:    address,
	}
}

// MiningRewardCmd defines the miningreward JSON-RPC command.  HashRate is
// free text such as "15 TH/s".
type MiningRewardCmd struct {
	UserParams
	HashRate string `json:"hash_rate"`
}

func NewMiningRewardCmd(user string, hashRate string) *MiningRewardCmd {
	return &MiningRewardCmd{
		UserParams: UserParams{User: user},
		HashRate:   hashRate,
	}
}

// HashShareCmd defines the hashshare JSON-RPC command.
type HashShareCmd struct {
	UserParams
	HashRate string `json:"hash_rate"`
}

func NewHashShareCmd(user string, hashRate string) *HashShareCmd {
	return &HashShareCmd{
		UserParams: UserParams{User: user},
		HashRate:   hashRate,
	}
}

// PriceCmd defines the price JSON-RPC command.
type PriceCmd struct {
	UserParams
}

func NewPriceCmd(user string) *PriceCmd {
	return &PriceCmd{UserParams{User: user}}
}

// MarketCapCmd defines the marketcap JSON-RPC command.
type MarketCapCmd struct {
	UserParams
}

func NewMarketCapCmd(user string) *MarketCapCmd {
	return &MarketCapCmd{UserParams{User: user}}
}

// ChartCmd defines the chart JSON-RPC command.  Days defaults to 7.
type ChartCmd struct {
	UserParams
	Days *int `json:"days,omitempty"`
}

func NewChartCmd(user string, days *int) *ChartCmd {
	return &ChartCmd{
		UserParams: UserParams{User: user},
		Days:       days,
	}
}

// WalletCreateCmd defines the wallet.create JSON-RPC command.
type WalletCreateCmd struct {
	UserParams
}

func NewWalletCreateCmd(user string) *WalletCreateCmd {
	return &WalletCreateCmd{UserParams{User: user}}
}

// WalletBalanceCmd defines the wallet.balance JSON-RPC command.
type WalletBalanceCmd struct {
	UserParams
}

func NewWalletBalanceCmd(user string) *WalletBalanceCmd {
	return &WalletBalanceCmd{UserParams{User: user}}
}

// TipCmd defines the tip JSON-RPC command.  MessageID is the id of the chat
// message, a replayed message is answered with the original receipt.
type TipCmd struct {
	UserParams
	MessageID string  `json:"message_id"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
}

func NewTipCmd(user string, messageID string, to string, amount float64) *TipCmd {
	return &TipCmd{
		UserParams: UserParams{User: user},
		MessageID:  messageID,
		To:         to,
		Amount:     amount,
	}
}

// WithdrawCmd defines the withdraw JSON-RPC command.
type WithdrawCmd struct {
	UserParams
	MessageID string  `json:"message_id"`
	Address   string  `json:"address"`
	Amount    float64 `json:"amount"`
}

func NewWithdrawCmd(user string, messageID string, address string, amount float64) *WithdrawCmd {
	return &WithdrawCmd{
		UserParams: UserParams{User: user},
		MessageID:  messageID,
		Address:    address,
		Amount:     amount,
	}
}

// TipHistoryCmd defines the tip.history JSON-RPC command.
type TipHistoryCmd struct {
	UserParams
	Page *int `json:"page,omitempty"`
	Num  *int `json:"num,omitempty"`
}

func NewTipHistoryCmd(user string, page *int, num *int) *TipHistoryCmd {
	return &TipHistoryCmd{
		UserParams: UserParams{User: user},
		Page:       page,
		Num:        num,
	}
}

func init() {
	MustRegisterCmd("version", (*VersionCmd)(nil), UFNoDebounce)

	MustRegisterCmd("stats", (*StatsCmd)(nil), 0)
	MustRegisterCmd("hashrate", (*HashRateCmd)(nil), 0)
	MustRegisterCmd("daascore", (*DAAScoreCmd)(nil), 0)
	MustRegisterCmd("supply", (*SupplyCmd)(nil), 0)
	MustRegisterCmd("maxsupply", (*MaxSupplyCmd)(nil), 0)
	MustRegisterCmd("balance", (*BalanceCmd)(nil), 0)

	MustRegisterCmd("miningreward", (*MiningRewardCmd)(nil), 0)
	MustRegisterCmd("hashshare", (*HashShareCmd)(nil), 0)

	MustRegisterCmd("price", (*PriceCmd)(nil), 0)
	MustRegisterCmd("marketcap", (*MarketCapCmd)(nil), 0)
	MustRegisterCmd("chart", (*ChartCmd)(nil), 0)

	MustRegisterCmd("wallet.create", (*WalletCreateCmd)(nil), 0)
	MustRegisterCmd("wallet.balance", (*WalletBalanceCmd)(nil), 0)
	MustRegisterCmd("tip", (*TipCmd)(nil), 0)
	MustRegisterCmd("withdraw", (*WithdrawCmd)(nil), 0)
	MustRegisterCmd("tip.history", (*TipHistoryCmd)(nil), 0)
}
