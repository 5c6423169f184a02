package archiver

import (
	"context"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
	"github.com/goodnatureofminers/blockchain-tracker/pkg/batcher"
)

type exportWriter struct {
	archive      Archive
	coin         model.Coin
	network      model.Network
	logger       *zap.Logger
	entryBatcher *batcher.Batcher[*model.BlockEntry]
}

func newExportWriter(archive Archive, coin model.Coin, network model.Network, logger *zap.Logger) *exportWriter {
	w := &exportWriter{
		archive: archive,
		coin:    coin,
		network: network,
		logger:  logger,
	}

	w.entryBatcher = batcher.New[*model.BlockEntry](
		logger.Named("entryBatcher"),
		w.flush,
		entryBatcherCapacity,
		entryBatcherFlushInterval,
		entryBatcherRPS,
	)
	return w
}

func (w *exportWriter) Start(ctx context.Context) {
	w.entryBatcher.Start(ctx)
}

func (w *exportWriter) Stop() {
	w.entryBatcher.Stop()
}

func (w *exportWriter) WriteEntry(ctx context.Context, entry *model.BlockEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return w.entryBatcher.Add(ctx, entry)
}

// flush writes transactions before blocks: the archive gap scan keys off
// tracker_blocks, so a block row only appears once its transactions landed.
// A dropped flush replays on the next scan and the ReplacingMergeTree
// collapses the duplicates.
func (w *exportWriter) flush(ctx context.Context, entries []*model.BlockEntry) error {
	blocks := make([]model.Block, 0, len(entries))
	txs := make([]model.Transaction, 0, len(entries))

	for _, entry := range entries {
		blocks = append(blocks, entry.Block)
		txs = append(txs, entry.Txs...)
	}

	if err := w.archive.InsertTransactions(ctx, w.coin, w.network, txs); err != nil {
		return err
	}
	return w.archive.InsertBlocks(ctx, w.coin, w.network, blocks)
}
