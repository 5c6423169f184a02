package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/chain"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// step runs one reconciliation cycle: fetch the next block, validate linkage,
// extend or resolve a reorg, then promote depth-confirmed blocks. It reports
// whether the store advanced, so the caller can keep draining a source that
// is ahead without sleeping.
func (s *Service) step(ctx context.Context) (progressed bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveStep(err, started)
	}()

	next, parentHash, err := s.nextPosition()
	if err != nil {
		return false, err
	}

	latest, latestKnown := s.sourceLatest(ctx)

	candidate, fetchErr := s.fetchBlock(ctx, next)
	if fetchErr != nil {
		if errors.Is(fetchErr, chain.ErrBlockNotFound) {
			// The source has nothing above our tip. Not an error.
			s.fetchFailures = 0
			s.clearError()
			tip := uint64(0)
			if next > 0 {
				tip = next - 1
			}
			s.noteProgress(tip, latest, latestKnown, next)
			return false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		s.fetchFailures++
		if s.fetchFailures < s.cfg.MaxFetchFailures {
			s.logger.Warn("fetch block failed, will retry",
				zap.Uint64("height", next),
				zap.Int("failures", s.fetchFailures),
				zap.Error(fetchErr))
			return false, nil
		}
		s.fetchFailures = 0
		return false, fmt.Errorf("fetch block %d: %w", next, fetchErr)
	}
	s.fetchFailures = 0

	if next > 0 && candidate.Block.ParentHash != parentHash {
		return s.resolveReorg(ctx, next)
	}
	if next == 0 && candidate.Block.ParentHash != model.GenesisParentHash {
		s.logger.Warn("genesis block reports unexpected parent hash",
			zap.String("parent_hash", candidate.Block.ParentHash))
	}

	entry := &model.BlockEntry{
		Block:  candidate.Block,
		Txs:    candidate.Txs,
		Status: model.BlockPending,
	}
	if err = s.store.Put(entry); err != nil {
		return false, err
	}
	s.logger.Debug("accepted block",
		zap.Uint64("height", entry.Block.Height),
		zap.String("hash", entry.Block.Hash))

	if err = s.sweep(ctx); err != nil {
		return false, err
	}

	s.clearError()
	s.noteProgress(next, latest, latestKnown, next+1)
	return true, nil
}

// nextPosition determines the height to fetch next and the hash its parent
// must match: the stored tip, or the cursor after a restart with an empty
// store, or genesis on first run.
func (s *Service) nextPosition() (next uint64, parentHash string, err error) {
	height, ok, err := s.store.HighestHeight()
	if err != nil {
		return 0, "", err
	}
	if ok {
		tip, found, err := s.store.Get(height)
		if err != nil {
			return 0, "", err
		}
		if !found {
			return 0, "", &model.StorageError{
				Op:  "get_tip",
				Err: fmt.Errorf("tip entry missing at height %d", height),
			}
		}
		return height + 1, tip.Block.Hash, nil
	}

	cursor, ok, err := s.cursor.LoadCursor()
	if err != nil {
		return 0, "", err
	}
	if ok {
		return cursor.Height + 1, cursor.Hash, nil
	}
	return 0, "", nil
}

// sweep promotes every pending entry buried at least ConfirmationDepth blocks
// below the tip, then advances the cursor. The chain store commits before the
// cursor does, so the cursor never points past durably stored confirmed data.
func (s *Service) sweep(ctx context.Context) error {
	highest, ok, err := s.store.HighestHeight()
	if err != nil || !ok {
		return err
	}
	if highest < s.cfg.ConfirmationDepth {
		return nil
	}
	threshold := highest - s.cfg.ConfirmationDepth

	start := uint64(0)
	confirmed, ok, err := s.store.HighestConfirmedHeight()
	if err != nil {
		return err
	}
	if ok {
		start = confirmed + 1
	} else {
		cursor, cursorOk, err := s.cursor.LoadCursor()
		if err != nil {
			return err
		}
		if cursorOk {
			start = cursor.Height + 1
		}
	}

	var promoted []*model.BlockEntry
	for h := start; h <= threshold; h++ {
		entry, found, err := s.store.Get(h)
		if err != nil {
			return err
		}
		if !found || entry.Status == model.BlockConfirmed {
			continue
		}
		entry.Status = model.BlockConfirmed
		if err := s.store.Put(entry); err != nil {
			return err
		}
		promoted = append(promoted, entry)
	}
	if len(promoted) == 0 {
		return nil
	}

	tip := promoted[len(promoted)-1].Block
	cursor, cursorOk, err := s.cursor.LoadCursor()
	if err != nil {
		return err
	}
	if !cursorOk || tip.Height > cursor.Height {
		if err := s.cursor.SaveCursor(model.Cursor{Height: tip.Height, Hash: tip.Hash}); err != nil {
			return err
		}
	}

	s.metrics.SetConfirmedHeight(tip.Height)
	s.mu.Lock()
	s.status.ConfirmedHeight = tip.Height
	s.status.ConfirmedHash = tip.Hash
	s.mu.Unlock()
	s.logger.Info("confirmed blocks",
		zap.Int("count", len(promoted)),
		zap.Uint64("confirmed_height", tip.Height))

	for _, sink := range s.sinks {
		if sinkErr := sink.OnConfirmed(ctx, promoted); sinkErr != nil {
			s.logger.Warn("confirmation sink failed", zap.Error(sinkErr))
		}
	}
	return nil
}

// fetchBlock fetches one block with the configured per-call timeout.
func (s *Service) fetchBlock(ctx context.Context, height uint64) (*chain.SourceBlock, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.source.FetchBlock(fetchCtx, height)
}

// sourceLatest asks the source for its tip; failures here only defer the
// mode transition, never the step itself.
func (s *Service) sourceLatest(ctx context.Context) (uint64, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	latest, err := s.source.LatestHeight(fetchCtx)
	if err != nil {
		s.logger.Debug("latest height unavailable", zap.Error(err))
		return 0, false
	}
	return latest, true
}

// noteProgress updates the status snapshot and flips between CATCHING_UP and
// TRACKING once the next height is within one step of the source tip.
func (s *Service) noteProgress(pendingHeight, latest uint64, latestKnown bool, next uint64) {
	s.mu.Lock()
	if pendingHeight > s.status.PendingHeight {
		s.status.PendingHeight = pendingHeight
	}
	if latestKnown {
		s.status.SourceHeight = latest
	}
	s.mu.Unlock()

	if !latestKnown {
		return
	}
	state := s.Status().State
	if state == model.StateHalted {
		return
	}
	if next+1 >= latest {
		s.setState(model.StateTracking)
	} else {
		s.setState(model.StateCatchingUp)
	}
}
