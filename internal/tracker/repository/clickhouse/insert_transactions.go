package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// InsertTransactions archives transaction rows of confirmed blocks.
func (r *Repository) InsertTransactions(ctx context.Context, coin model.Coin, network model.Network, txs []model.Transaction) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_transactions", coin, network, err, start)
	}()

	if len(txs) == 0 {
		return nil
	}

	const query = `
INSERT INTO tracker_transactions (
	coin,
	network,
	txid,
	block_height,
	timestamp,
	size,
	version,
	locktime,
	output_count
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare transactions batch: %w", err)
	}

	for _, tx := range txs {
		if err = batch.Append(
			string(coin),
			string(network),
			tx.TxID,
			tx.BlockHeight,
			tx.Timestamp,
			tx.Size,
			tx.Version,
			tx.LockTime,
			uint32(len(tx.Outputs)),
		); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	return nil
}
