package model

import (
	"errors"
	"fmt"
	"time"
)

// BlockDagInfo is the indexer's view of the DAG tips.
type BlockDagInfo struct {
	NetworkName         string   `json:"networkName"`
	BlockCount          uint64   `json:"blockCount,string"`
	HeaderCount         uint64   `json:"headerCount,string"`
	TipHashes           []string `json:"tipHashes"`
	Difficulty          float64  `json:"difficulty"`
	PastMedianTime      int64    `json:"pastMedianTime,string"`
	VirtualParentHashes []string `json:"virtualParentHashes"`
	PruningPointHash    string   `json:"pruningPointHash"`
	VirtualDaaScore     uint64   `json:"virtualDaaScore,string"`
}

// Validate rejects records that can not have come from a synced node.
func (b *BlockDagInfo) Validate() error {
	if b.Difficulty < 0 {
		return fmt.Errorf("negative difficulty %v", b.Difficulty)
	}
	if b.HeaderCount < b.BlockCount {
		return fmt.Errorf("header count %d below block count %d", b.HeaderCount, b.BlockCount)
	}
	if len(b.TipHashes) == 0 {
		return errors.New("no tip hashes")
	}
	return nil
}

// NetworkHashRate estimates the network hash rate in hashes per second from
// the difficulty, at one block per second.
func (b *BlockDagInfo) NetworkHashRate() float64 {
	return b.Difficulty * 2
}

// MedianTime returns the past median time of the virtual block.
func (b *BlockDagInfo) MedianTime() time.Time {
	return time.UnixMilli(b.PastMedianTime)
}

// ChainStats is a snapshot of the network taken by the chain client.
type ChainStats struct {
	BlockCount   uint64    `json:"block_count"`
	HeaderCount  uint64    `json:"header_count"`
	PruningPoint string    `json:"pruning_point"`
	ParentHashes []string  `json:"parent_hashes"`
	TipHashes    []string  `json:"tip_hashes"`
	Timestamp    int64     `json:"timestamp"`
	Difficulty   float64   `json:"difficulty"`
	HashRate     float64   `json:"hashrate"`
	DAAScore     uint64    `json:"daa_score"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// NewChainStats builds a snapshot from a block DAG info record.
func NewChainStats(info *BlockDagInfo, fetchedAt time.Time) *ChainStats {
	return &ChainStats{
		BlockCount:   info.BlockCount,
		HeaderCount:  info.HeaderCount,
		PruningPoint: info.PruningPointHash,
		ParentHashes: info.VirtualParentHashes,
		TipHashes:    info.TipHashes,
		Timestamp:    info.PastMedianTime,
		Difficulty:   info.Difficulty,
		HashRate:     info.NetworkHashRate(),
		DAAScore:     info.VirtualDaaScore,
		FetchedAt:    fetchedAt,
	}
}

// CoinSupply is the supply reported by the indexer, in sompi.
type CoinSupply struct {
	CirculatingSupply uint64 `json:"circulatingSupply,string"`
	MaxSupply         uint64 `json:"maxSupply,string"`
}

// Validate rejects a supply above its own maximum.
func (c *CoinSupply) Validate() error {
	if c.MaxSupply != 0 && c.CirculatingSupply > c.MaxSupply {
		return fmt.Errorf("circulating supply %d above max supply %d", c.CirculatingSupply, c.MaxSupply)
	}
	return nil
}

// AddressBalance is the balance of an address in sompi.
type AddressBalance struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// Validate rejects a record without an address.
func (a *AddressBalance) Validate() error {
	if a.Address == "" {
		return errors.New("empty address")
	}
	return nil
}

// NodeInfo describes the node behind the indexer.
type NodeInfo struct {
	MempoolSize   uint64 `json:"mempoolSize,string"`
	ServerVersion string `json:"serverVersion"`
	IsUtxoIndexed bool   `json:"isUtxoIndexed"`
	IsSynced      bool   `json:"isSynced"`
	P2PIDHashed   string `json:"p2pIdHashed"`
}
