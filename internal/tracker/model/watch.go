package model

import "time"

// AddressTransaction records a confirmed transaction output paying a watched
// address.
type AddressTransaction struct {
	Address     string    `json:"address"`
	TxID        string    `json:"txid"`
	BlockHeight uint64    `json:"block_height"`
	BlockHash   string    `json:"block_hash"`
	Value       uint64    `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
}
