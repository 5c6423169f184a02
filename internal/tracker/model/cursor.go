package model

// Cursor is the durable bookmark of the highest confirmed block. It is the
// recovery anchor after restart and never points past durably stored
// confirmed data.
type Cursor struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}
