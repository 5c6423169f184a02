// Package watch matches confirmed transactions against a configured set of
// addresses and delivers one notification per transaction, deduplicated
// across restarts.
package watch

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// MarkerStore persists address matches and delivery markers.
	MarkerStore interface {
		PutAddressTransactions(matches []model.AddressTransaction) error
		IsExported(txid string) (bool, error)
		MarkExported(txid string) error
	}

	// Notifier delivers a single address match to an external consumer.
	Notifier interface {
		Notify(ctx context.Context, match model.AddressTransaction) error
	}

	// Metrics records metrics for watcher operations.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
