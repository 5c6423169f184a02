package reconciler

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/chain"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// BlockSource supplies blocks as currently reported by the upstream chain.
	BlockSource interface {
		LatestHeight(ctx context.Context) (uint64, error)
		FetchBlock(ctx context.Context, height uint64) (*chain.SourceBlock, error)
	}

	// ChainStore is the durable record of accepted blocks. The reconciler is
	// its sole writer.
	ChainStore interface {
		Get(height uint64) (*model.BlockEntry, bool, error)
		Put(entry *model.BlockEntry) error
		TruncateFrom(height uint64) error
		HighestHeight() (uint64, bool, error)
		HighestConfirmedHeight() (uint64, bool, error)
	}

	// CursorStore is the durable bookmark of the highest confirmed block.
	CursorStore interface {
		LoadCursor() (model.Cursor, bool, error)
		SaveCursor(cursor model.Cursor) error
	}

	// ConfirmationSink is notified once per block promoted to confirmed.
	// Sink failures are reported but never stall the tracking loop.
	ConfirmationSink interface {
		OnConfirmed(ctx context.Context, entries []*model.BlockEntry) error
	}

	// Metrics tracks reconciler loop observations.
	Metrics interface {
		ObserveStep(err error, started time.Time)
		ObserveReorg(err error, depth int, started time.Time)
		SetConfirmedHeight(height uint64)
		SetState(state model.TrackerState)
	}
)
