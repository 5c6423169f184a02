package archiver

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// ChainReader reads confirmed history from the chain store.
	ChainReader interface {
		Get(height uint64) (*model.BlockEntry, bool, error)
		HighestConfirmedHeight() (uint64, bool, error)
	}

	// Archive is the analytical sink for confirmed history.
	Archive interface {
		MaxBlockHeight(ctx context.Context, coin model.Coin, network model.Network) (uint64, bool, error)
		InsertBlocks(ctx context.Context, coin model.Coin, network model.Network, blocks []model.Block) error
		InsertTransactions(ctx context.Context, coin model.Coin, network model.Network, txs []model.Transaction) error
	}

	// EntryWriter buffers block entries on their way into the archive.
	EntryWriter interface {
		Start(ctx context.Context)
		Stop()
		WriteEntry(ctx context.Context, entry *model.BlockEntry) error
	}

	// Metrics tracks archiver loop observations.
	Metrics interface {
		ObserveScan(err error, started time.Time)
		ObserveExport(err error, blocks int, started time.Time)
	}
)
