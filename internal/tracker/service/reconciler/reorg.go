package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/chain"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// resolveReorg repairs a divergence detected at divergedAt: walk backward
// until the source's reported hash matches the store (the common ancestor),
// truncate everything above it and replay the source's fork as pending. The
// walk is bounded by MaxReorgDepth and never crosses confirmed history; the
// store is only mutated once a valid replacement chain is in hand.
func (s *Service) resolveReorg(ctx context.Context, divergedAt uint64) (progressed bool, err error) {
	started := time.Now()
	depth := 0
	defer func() {
		s.metrics.ObserveReorg(err, depth, started)
	}()

	s.setState(model.StateReorgResolution)
	s.logger.Warn("divergence detected, resolving", zap.Uint64("height", divergedAt))

	var (
		fork         []*chain.SourceBlock
		ancestorHash string
		hasAncestor  bool
	)

	h := divergedAt
	for h > 0 {
		h--
		if uint64(depth) >= s.cfg.MaxReorgDepth {
			return false, &model.ReorgTooDeepError{
				DivergedHeight: divergedAt,
				MaxDepth:       s.cfg.MaxReorgDepth,
			}
		}
		depth++

		reported, fetchErr := s.fetchBlock(ctx, h)
		if fetchErr != nil {
			return false, fmt.Errorf("reorg walk at height %d: %w", h, fetchErr)
		}

		stored, found, storeErr := s.store.Get(h)
		if storeErr != nil {
			return false, storeErr
		}
		if !found {
			// Below the store's lowest entry; only the cursor remains, and
			// everything at or below it is confirmed.
			cursor, cursorOk, cursorErr := s.cursor.LoadCursor()
			if cursorErr != nil {
				return false, cursorErr
			}
			if cursorOk && h <= cursor.Height {
				if reported.Block.Hash == cursor.Hash && h == cursor.Height {
					ancestorHash = cursor.Hash
					hasAncestor = true
					break
				}
				return false, &model.IrreconcilableReorgError{
					AncestorHeight:  h,
					ConfirmedHeight: cursor.Height,
				}
			}
			return false, &model.StorageError{
				Op:  "reorg_walk",
				Err: fmt.Errorf("entry missing at height %d", h),
			}
		}

		if stored.Block.Hash == reported.Block.Hash {
			ancestorHash = stored.Block.Hash
			hasAncestor = true
			break
		}
		if stored.Status == model.BlockConfirmed {
			return false, &model.IrreconcilableReorgError{
				AncestorHeight:  h,
				ConfirmedHeight: stored.Block.Height,
			}
		}
		fork = append(fork, reported)
	}

	// Walk-back collected the fork tip-first; replay is oldest-first.
	for i, j := 0, len(fork)-1; i < j; i, j = i+1, j-1 {
		fork[i], fork[j] = fork[j], fork[i]
	}

	// The source can change its mind mid-walk; verify the replacement chain
	// links before touching the store.
	parentHash := model.GenesisParentHash
	if hasAncestor {
		parentHash = ancestorHash
	}
	for _, b := range fork {
		if b.Block.ParentHash != parentHash {
			return false, fmt.Errorf("source fork changed during resolution at height %d", b.Block.Height)
		}
		parentHash = b.Block.Hash
	}

	truncateFrom := uint64(0)
	if hasAncestor {
		truncateFrom = h + 1
	}
	if err = s.store.TruncateFrom(truncateFrom); err != nil {
		return false, err
	}
	for _, b := range fork {
		if err = s.store.Put(&model.BlockEntry{
			Block:  b.Block,
			Txs:    b.Txs,
			Status: model.BlockPending,
		}); err != nil {
			return false, err
		}
	}

	s.logger.Info("reorg resolved",
		zap.Uint64("truncated_from", truncateFrom),
		zap.Int("replayed_blocks", len(fork)))
	s.setState(model.StateCatchingUp)
	s.clearError()
	return true, nil
}
