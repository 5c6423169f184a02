package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// MaxBlockHeight returns the highest archived height for a coin/network,
// with found=false when nothing is archived yet.
func (r *Repository) MaxBlockHeight(ctx context.Context, coin model.Coin, network model.Network) (uint64, bool, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("max_block_height", coin, network, err, start)
	}()

	const query = `
SELECT toUInt64(max(height)) AS height, count() AS cnt
FROM tracker_blocks
WHERE coin = ? AND network = ?`

	rows, err := r.conn.Query(ctx, query, string(coin), string(network))
	if err != nil {
		return 0, false, fmt.Errorf("query max block height: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		return 0, false, nil
	}

	var height uint64
	var cnt uint64
	if err = rows.Scan(&height, &cnt); err != nil {
		return 0, false, fmt.Errorf("scan max block height: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, false, fmt.Errorf("iterate max block height: %w", err)
	}
	if cnt == 0 {
		return 0, false, nil
	}
	return height, true, nil
}
