package model

import "time"

// WalletInfo describes a custodial wallet held for a chat user.
type WalletInfo struct {
	UUID    string `json:"uuid"`
	Address string `json:"address"`
	// Balance in sompi.
	Balance uint64 `json:"balance"`
}

// Transaction is the result of a wallet transfer.
type Transaction struct {
	TxIDs   []string `json:"txIds"`
	Amount  uint64   `json:"amount"`
	ToAddr  string   `json:"toAddr"`
	FeePaid uint64   `json:"fee"`
}

// TipReceipt records a completed tip or withdrawal.
type TipReceipt struct {
	ID         uint64    `json:"id"`
	FromUser   string    `json:"from_user"`
	ToUser     string    `json:"to_user,omitempty"`
	ToAddress  string    `json:"to_address"`
	Amount     uint64    `json:"amount"`
	TxIDs      []string  `json:"tx_ids"`
	Withdrawal bool      `json:"withdrawal"`
	CreatedAt  time.Time `json:"created_at"`
}
