// Package reconciler drives the chain-tracking state machine: it pulls blocks
// from the source, keeps the chain store consistent with what the source
// reports, repairs bounded reorganizations and promotes depth-confirmed
// blocks.
package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/clock"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// Config carries the tracking knobs. Zero values fall back to defaults.
type Config struct {
	PollInterval      time.Duration
	FailureBackoff    time.Duration
	FetchTimeout      time.Duration
	MaxFetchFailures  int
	ConfirmationDepth uint64
	MaxReorgDepth     uint64
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = defaultFailureBackoff
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.MaxFetchFailures <= 0 {
		c.MaxFetchFailures = defaultMaxFetchFailures
	}
	if c.ConfirmationDepth == 0 {
		c.ConfirmationDepth = defaultConfirmationDepth
	}
	if c.MaxReorgDepth == 0 {
		c.MaxReorgDepth = defaultMaxReorgDepth
	}
	return c
}

// Service is the single writer of the chain store and cursor. Running two
// instances against the same store is unsupported.
type Service struct {
	logger      *zap.Logger
	source      BlockSource
	store       ChainStore
	cursor      CursorStore
	metrics     Metrics
	sinks       []ConfirmationSink
	sleep       func(context.Context, time.Duration) error
	cfg         Config
	blockSignal <-chan struct{}

	mu            sync.RWMutex
	status        model.TrackerStatus
	fetchFailures int
}

// New builds a reconciler Service with dependencies.
func New(
	source BlockSource,
	store ChainStore,
	cursor CursorStore,
	metrics Metrics,
	cfg Config,
	logger *zap.Logger,
	blockSignal <-chan struct{},
	sinks ...ConfirmationSink,
) (*Service, error) {
	if source == nil {
		return nil, errors.New("reconciler block source is required")
	}
	if store == nil {
		return nil, errors.New("reconciler chain store is required")
	}
	if cursor == nil {
		return nil, errors.New("reconciler cursor store is required")
	}
	if metrics == nil {
		return nil, errors.New("reconciler metrics is required")
	}

	return &Service{
		logger:      logger.Named("reconciler"),
		source:      source,
		store:       store,
		cursor:      cursor,
		metrics:     metrics,
		sinks:       sinks,
		sleep:       clock.SleepWithContext,
		cfg:         cfg.withDefaults(),
		blockSignal: blockSignal,
		status:      model.TrackerStatus{State: model.StateCatchingUp},
	}, nil
}

// Run executes reconciliation steps until the context is canceled or a fatal
// error occurs. The in-progress step finishes before shutdown.
func (s *Service) Run(ctx context.Context) error {
	if err := s.seed(); err != nil {
		s.recordFatal(err)
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		progressed, err := s.step(ctx)
		switch {
		case err == nil && progressed:
			// Keep draining while the source is ahead.
		case err == nil:
			if waitErr := s.wait(ctx, s.cfg.PollInterval); waitErr != nil {
				return waitErr
			}
		case isFatal(err):
			s.recordFatal(err)
			s.logger.Error("reconciler halted", zap.Error(err))
			return err
		default:
			s.recordError(err)
			s.logger.Warn("reconciler step failed, backing off",
				zap.Error(err), zap.Duration("sleep", s.cfg.FailureBackoff))
			if waitErr := s.wait(ctx, s.cfg.FailureBackoff); waitErr != nil {
				return waitErr
			}
		}
	}
}

// Status returns a consistent snapshot for the query facade.
func (s *Service) Status() model.TrackerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// seed restores the status snapshot from durable state on boot.
func (s *Service) seed() error {
	cursor, ok, err := s.cursor.LoadCursor()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.status.ConfirmedHeight = cursor.Height
		s.status.ConfirmedHash = cursor.Hash
		s.metrics.SetConfirmedHeight(cursor.Height)
	}
	s.metrics.SetState(s.status.State)
	return nil
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if s.blockSignal == nil {
		return s.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.blockSignal:
		return nil
	case <-timer.C:
		return nil
	}
}

func isFatal(err error) bool {
	var storageErr *model.StorageError
	var irreconcilableErr *model.IrreconcilableReorgError
	return errors.As(err, &storageErr) || errors.As(err, &irreconcilableErr)
}

func (s *Service) setState(state model.TrackerState) {
	s.mu.Lock()
	if s.status.State != state {
		s.status.State = state
		s.metrics.SetState(state)
	}
	s.mu.Unlock()
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func (s *Service) recordFatal(err error) {
	s.mu.Lock()
	s.status.State = model.StateHalted
	s.status.LastError = err.Error()
	s.mu.Unlock()
	s.metrics.SetState(model.StateHalted)
}

func (s *Service) clearError() {
	s.mu.Lock()
	s.status.LastError = ""
	s.mu.Unlock()
}
