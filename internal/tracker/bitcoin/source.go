package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcjson"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/chain"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
	"github.com/goodnatureofminers/blockchain-tracker/pkg/safe"
)

// BlockSource implements chain.BlockSource on top of a Bitcoin-family node.
type BlockSource struct {
	rpc *RPCClient
}

// NewBlockSource creates a BlockSource backed by the given RPC client.
func NewBlockSource(rpc *RPCClient) (*BlockSource, error) {
	if rpc == nil {
		return nil, errors.New("rpc client is required")
	}
	return &BlockSource{rpc: rpc}, nil
}

// LatestHeight returns the latest block height reported by the node.
func (s *BlockSource) LatestHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := s.rpc.GetBlockCount()
	if err != nil {
		return 0, err
	}
	height, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

// FetchBlock retrieves the block the node currently reports at the given
// height, with its transactions. Heights past the node's tip map to
// chain.ErrBlockNotFound.
func (s *BlockSource) FetchBlock(ctx context.Context, height uint64) (*chain.SourceBlock, error) {
	if height > math.MaxInt64 {
		return nil, fmt.Errorf("block height %d exceeds rpc limit", height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.rpc.GetBlockHash(int64(height))
	if err != nil {
		if isNotFound(err) {
			return nil, chain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := s.rpc.GetBlockVerboseTx(hash)
	if err != nil {
		if isNotFound(err) {
			return nil, chain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}

	block, err := BuildBlockFromVerbose(*src)
	if err != nil {
		return nil, err
	}

	txs := make([]model.Transaction, 0, len(src.Tx))
	for _, tx := range src.Tx {
		converted, err := BuildTransactionFromRaw(tx, block.Height, block.Timestamp)
		if err != nil {
			return nil, err
		}
		txs = append(txs, converted)
	}

	return &chain.SourceBlock{
		Block: block,
		Txs:   txs,
	}, nil
}

func isNotFound(err error) bool {
	var rpcErr *btcjson.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	switch rpcErr.Code {
	case btcjson.ErrRPCBlockNotFound, btcjson.ErrRPCOutOfRange, btcjson.ErrRPCInvalidParameter:
		return true
	default:
		return false
	}
}
