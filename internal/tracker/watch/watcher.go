package watch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/bitcoin"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// Watcher scans confirmed blocks for outputs paying watched addresses. It is
// wired into the reconciler as a confirmation sink, so it only ever sees
// blocks that will not be reorganized away.
type Watcher struct {
	logger    *zap.Logger
	store     MarkerStore
	notifier  Notifier
	metrics   Metrics
	addresses map[string]struct{}
}

// NewWatcher validates the watched addresses against the network's encoding
// and builds a Watcher. An empty address list yields a no-op sink.
func NewWatcher(
	addresses []string,
	network model.Network,
	store MarkerStore,
	notifier Notifier,
	metrics Metrics,
	logger *zap.Logger,
) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("watcher marker store is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("watcher metrics is required")
	}

	params, err := bitcoin.ChainParams(network)
	if err != nil {
		return nil, err
	}
	watched := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		decoded, decodeErr := btcutil.DecodeAddress(address, params)
		if decodeErr != nil {
			return nil, fmt.Errorf("watch address %q: %w", address, decodeErr)
		}
		if !decoded.IsForNet(params) {
			return nil, fmt.Errorf("watch address %q is not valid on %s", address, network)
		}
		watched[address] = struct{}{}
	}

	return &Watcher{
		logger:    logger.Named("watcher"),
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
		addresses: watched,
	}, nil
}

// OnConfirmed records matches for every confirmed transaction paying a
// watched address and notifies each transaction at most once. Delivery
// failures are logged and dropped; storage failures propagate.
func (w *Watcher) OnConfirmed(ctx context.Context, entries []*model.BlockEntry) (err error) {
	started := time.Now()
	defer func() {
		w.metrics.Observe("on_confirmed", err, started)
	}()

	if len(w.addresses) == 0 {
		return nil
	}

	for _, entry := range entries {
		for _, tx := range entry.Txs {
			matches := w.matchTx(entry, tx)
			if len(matches) == 0 {
				continue
			}
			if err = w.store.PutAddressTransactions(matches); err != nil {
				return err
			}
			if err = w.deliver(ctx, tx.TxID, matches); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchTx sums, per watched address, the output values paying it.
func (w *Watcher) matchTx(entry *model.BlockEntry, tx model.Transaction) []model.AddressTransaction {
	totals := make(map[string]uint64)
	for _, out := range tx.Outputs {
		for _, address := range out.Addresses {
			if _, ok := w.addresses[address]; ok {
				totals[address] += out.Value
			}
		}
	}
	if len(totals) == 0 {
		return nil
	}

	matches := make([]model.AddressTransaction, 0, len(totals))
	for address, value := range totals {
		matches = append(matches, model.AddressTransaction{
			Address:     address,
			TxID:        tx.TxID,
			BlockHeight: entry.Block.Height,
			BlockHash:   entry.Block.Hash,
			Value:       value,
			Timestamp:   tx.Timestamp,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Address < matches[j].Address
	})
	return matches
}

// deliver notifies every match of one transaction, then marks the
// transaction exported. Already-exported transactions are skipped, which
// keeps notifications exactly-once across restarts.
func (w *Watcher) deliver(ctx context.Context, txid string, matches []model.AddressTransaction) error {
	exported, err := w.store.IsExported(txid)
	if err != nil {
		return err
	}
	if exported {
		return nil
	}

	if w.notifier != nil {
		for _, match := range matches {
			if notifyErr := w.notifier.Notify(ctx, match); notifyErr != nil {
				w.logger.Warn("notification delivery failed",
					zap.String("txid", txid),
					zap.String("address", match.Address),
					zap.Error(notifyErr))
				return nil
			}
		}
	} else {
		for _, match := range matches {
			w.logger.Info("watched address paid",
				zap.String("address", match.Address),
				zap.String("txid", match.TxID),
				zap.Uint64("value", match.Value),
				zap.Uint64("height", match.BlockHeight))
		}
	}

	return w.store.MarkExported(txid)
}
