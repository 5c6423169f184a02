// Package model defines domain models for chain tracking.
package model

import (
	"strings"
	"time"
)

// GenesisParentHash is the parent hash reported by the genesis block.
var GenesisParentHash = strings.Repeat("0", 64)

// BlockStatus describes how settled a stored block is.
type BlockStatus string

var (
	// BlockPending marks a block that may still be replaced by a reorganization.
	BlockPending BlockStatus = "pending"
	// BlockConfirmed marks a block that is treated as immutable history.
	BlockConfirmed BlockStatus = "confirmed"
)

// Block represents a block header accepted from the tracked chain.
type Block struct {
	Height     uint64
	Hash       string
	ParentHash string
	Timestamp  time.Time
	Version    uint32
	Size       uint32
	TXCount    uint32
}

// Transaction represents a transaction carried by a stored block.
type Transaction struct {
	TxID        string
	BlockHeight uint64
	Timestamp   time.Time
	Size        uint32
	Version     uint32
	LockTime    uint32
	Outputs     []TransactionOutput
}

// TransactionOutput represents an output produced by a transaction.
type TransactionOutput struct {
	Index     uint32
	Value     uint64
	Addresses []string
}

// BlockEntry is a block plus its transactions and settlement status as stored.
type BlockEntry struct {
	Block  Block
	Txs    []Transaction
	Status BlockStatus
}
