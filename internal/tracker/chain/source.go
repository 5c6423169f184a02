// Package chain defines the contract between the reconciler and block sources.
package chain

import (
	"context"
	"errors"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// ErrBlockNotFound is returned by FetchBlock when the source has no block at
// the requested height yet. It is not an error condition for the caller.
var ErrBlockNotFound = errors.New("block not found")

// BlockSource provides block data from the upstream chain. Reads must be
// idempotent; the reconciler calls them repeatedly.
type BlockSource interface {
	LatestHeight(ctx context.Context) (uint64, error)
	FetchBlock(ctx context.Context, height uint64) (*SourceBlock, error)
}

// SourceBlock wraps a block and its transactions fetched from a source.
type SourceBlock struct {
	Block model.Block
	Txs   []model.Transaction
}
