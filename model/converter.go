package model

import (
	"strings"

	"github.com/kasbot/kasbot-server/dal/do"
)

// txIDSeparator joins transaction ids in a single column.
const txIDSeparator = ","

func JoinTxIDs(txIDs []string) string {
	return strings.Join(txIDs, txIDSeparator)
}

func SplitTxIDs(txIDs string) []string {
	if txIDs == "" {
		return []string{}
	}
	return strings.Split(txIDs, txIDSeparator)
}

func ConvertTipInfoToReceipt(tipInfo *do.TipInfo) *TipReceipt {
	if tipInfo == nil {
		return nil
	}
	return &TipReceipt{
		ID:         tipInfo.ID,
		FromUser:   tipInfo.FromUser,
		ToUser:     tipInfo.ToUser,
		ToAddress:  tipInfo.ToAddress,
		Amount:     tipInfo.Amount,
		TxIDs:      SplitTxIDs(tipInfo.TxIDs),
		Withdrawal: tipInfo.Withdrawal,
		CreatedAt:  tipInfo.CreatedAt,
	}
}

func ConvertTipInfosToReceipts(tipInfos []*do.TipInfo) []*TipReceipt {
	res := make([]*TipReceipt, 0, len(tipInfos))
	for _, tipInfo := range tipInfos {
		res = append(res, ConvertTipInfoToReceipt(tipInfo))
	}
	return res
}
