package model

// Coin identifies the tracked asset.
type Coin string

// Network identifies the chain variant of the tracked asset.
type Network string

var (
	BTC Coin = "BTC"
	LTC Coin = "LTC"
)

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)
