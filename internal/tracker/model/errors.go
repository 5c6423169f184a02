package model

import "fmt"

// StorageError wraps a durable write or read failure. The store guarantees
// the failed operation left no partial state behind, so the caller may retry
// from the last good state after restart.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ReorgTooDeepError reports a divergence whose common ancestor was not found
// within the configured maximum reorg depth. The store is left unchanged.
type ReorgTooDeepError struct {
	DivergedHeight uint64
	MaxDepth       uint64
}

func (e *ReorgTooDeepError) Error() string {
	return fmt.Sprintf(
		"reorg at height %d exceeds max depth %d",
		e.DivergedHeight, e.MaxDepth,
	)
}

// IrreconcilableReorgError reports a reorganization that would discard
// confirmed history. This is fatal for the tracked chain.
type IrreconcilableReorgError struct {
	AncestorHeight  uint64
	ConfirmedHeight uint64
}

func (e *IrreconcilableReorgError) Error() string {
	return fmt.Sprintf(
		"reorg reaches height %d below confirmed height %d",
		e.AncestorHeight, e.ConfirmedHeight,
	)
}
