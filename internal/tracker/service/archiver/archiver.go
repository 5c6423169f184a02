// Package archiver copies confirmed history from the chain store into the
// ClickHouse archive. The archive trails the store and is rebuilt purely by
// replaying the gap between its tip and the confirmed tip, so a lost batch
// heals on the next pass.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/clock"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
	"github.com/goodnatureofminers/blockchain-tracker/pkg/workerpool"
)

// Service exports confirmed blocks into the archive.
type Service struct {
	logger            *zap.Logger
	coin              model.Coin
	network           model.Network
	store             ChainReader
	archive           Archive
	writer            EntryWriter
	metrics           Metrics
	sleep             func(context.Context, time.Duration) error
	sleepDuration     time.Duration
	idleSleepDuration time.Duration
	workerCount       int
	chunkSize         uint64
}

// New builds an archiver Service with dependencies.
func New(
	store ChainReader,
	archive Archive,
	metrics Metrics,
	coin model.Coin,
	network model.Network,
	logger *zap.Logger,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("archiver chain reader is required")
	}
	if archive == nil {
		return nil, errors.New("archiver archive is required")
	}
	if metrics == nil {
		return nil, errors.New("archiver metrics is required")
	}

	logger = logger.Named("archiver").With(
		zap.String("coin", string(coin)),
		zap.String("network", string(network)),
	)

	return &Service{
		logger:            logger,
		coin:              coin,
		network:           network,
		store:             store,
		archive:           archive,
		writer:            newExportWriter(archive, coin, network, logger),
		metrics:           metrics,
		sleep:             clock.SleepWithContext,
		sleepDuration:     sleepDuration,
		idleSleepDuration: idleSleepDuration,
		workerCount:       defaultWorkerCount,
		chunkSize:         exportChunkSize,
	}, nil
}

// Run starts the export loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.writer.Start(ctx)
	defer s.writer.Stop()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.run(ctx); err != nil {
			s.logger.Warn("run iteration failed, backing off", zap.Error(err), zap.Duration("sleep", s.sleepDuration))
			if sleepErr := s.sleep(ctx, s.sleepDuration); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

func (s *Service) run(ctx context.Context) error {
	started := time.Now()
	heights, err := s.pendingHeights(ctx)
	s.metrics.ObserveScan(err, started)
	if err != nil {
		s.logger.Error("scan archive gap failed", zap.Error(err))
		return err
	}

	if len(heights) == 0 {
		s.logger.Debug("archive is caught up; sleeping", zap.Duration("sleep", s.idleSleepDuration))
		return s.sleep(ctx, s.idleSleepDuration)
	}

	s.logger.Info("archiving confirmed blocks",
		zap.Uint64("from", heights[0]),
		zap.Uint64("to", heights[len(heights)-1]))
	started = time.Now()
	if err = workerpool.Process(ctx, s.workerCount, heights, s.exportHeight, nil); err != nil {
		s.metrics.ObserveExport(err, len(heights), started)
		return err
	}
	s.metrics.ObserveExport(nil, len(heights), started)

	return s.sleep(ctx, s.sleepDuration)
}

// pendingHeights returns the next chunk of confirmed heights missing from
// the archive.
func (s *Service) pendingHeights(ctx context.Context) ([]uint64, error) {
	confirmed, ok, err := s.store.HighestConfirmedHeight()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	start := uint64(0)
	archived, found, err := s.archive.MaxBlockHeight(ctx, s.coin, s.network)
	if err != nil {
		return nil, err
	}
	if found {
		if archived >= confirmed {
			return nil, nil
		}
		start = archived + 1
	}

	end := confirmed
	if end-start+1 > s.chunkSize {
		end = start + s.chunkSize - 1
	}

	heights := make([]uint64, 0, end-start+1)
	for h := start; h <= end; h++ {
		heights = append(heights, h)
	}
	return heights, nil
}

func (s *Service) exportHeight(ctx context.Context, height uint64) error {
	entry, found, err := s.store.Get(height)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("confirmed block missing at height %d", height)
	}
	if entry.Status != model.BlockConfirmed {
		// The confirmed tip moved back under us; the next scan picks it up.
		return nil
	}
	return s.writer.WriteEntry(ctx, entry)
}
