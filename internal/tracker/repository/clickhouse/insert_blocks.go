package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// InsertBlocks archives confirmed block rows.
func (r *Repository) InsertBlocks(ctx context.Context, coin model.Coin, network model.Network, blocks []model.Block) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_blocks", coin, network, err, start)
	}()

	if len(blocks) == 0 {
		return nil
	}

	const query = `
INSERT INTO tracker_blocks (
	coin,
	network,
	height,
	hash,
	parent_hash,
	timestamp,
	version,
	size,
	tx_count
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare blocks batch: %w", err)
	}

	for _, block := range blocks {
		if err = batch.Append(
			string(coin),
			string(network),
			block.Height,
			block.Hash,
			block.ParentHash,
			block.Timestamp,
			block.Version,
			block.Size,
			block.TXCount,
		); err != nil {
			return fmt.Errorf("append block: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert blocks: %w", err)
	}
	return nil
}
