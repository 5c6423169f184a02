package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// Get returns the entry at the given height. An absent height is not an error.
func (s *Store) Get(height uint64) (entry *model.BlockEntry, ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_block", err, started)
	}()

	raw, getErr := s.db.Get(blockKey(height), nil)
	if errors.Is(getErr, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if getErr != nil {
		err = &model.StorageError{Op: "get_block", Err: getErr}
		return nil, false, err
	}

	entry = &model.BlockEntry{}
	if decErr := json.Unmarshal(raw, entry); decErr != nil {
		err = &model.StorageError{Op: "decode_block", Err: decErr}
		return nil, false, err
	}
	return entry, true, nil
}

// GetByHash returns the entry whose block hash matches, if present.
func (s *Store) GetByHash(hash string) (entry *model.BlockEntry, ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_block_by_hash", err, started)
	}()

	raw, getErr := s.db.Get(hashKey(hash), nil)
	if errors.Is(getErr, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if getErr != nil {
		err = &model.StorageError{Op: "get_block_by_hash", Err: getErr}
		return nil, false, err
	}
	if len(raw) != 8 {
		err = &model.StorageError{Op: "get_block_by_hash", Err: fmt.Errorf("malformed height index for hash %s", hash)}
		return nil, false, err
	}
	return s.Get(binary.BigEndian.Uint64(raw))
}

// TransactionByID returns a stored transaction and its containing entry.
func (s *Store) TransactionByID(txid string) (tx *model.Transaction, entry *model.BlockEntry, ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_transaction", err, started)
	}()

	raw, getErr := s.db.Get(txKey(txid), nil)
	if errors.Is(getErr, leveldb.ErrNotFound) {
		return nil, nil, false, nil
	}
	if getErr != nil {
		err = &model.StorageError{Op: "get_transaction", Err: getErr}
		return nil, nil, false, err
	}
	if len(raw) != 8 {
		err = &model.StorageError{Op: "get_transaction", Err: fmt.Errorf("malformed height index for tx %s", txid)}
		return nil, nil, false, err
	}

	entry, ok, err = s.Get(binary.BigEndian.Uint64(raw))
	if err != nil || !ok {
		return nil, nil, false, err
	}
	for i := range entry.Txs {
		if entry.Txs[i].TxID == txid {
			return &entry.Txs[i], entry, true, nil
		}
	}
	return nil, nil, false, nil
}

// Put inserts or overwrites the entry at its height. The entry, its hash
// index and its transaction indexes are written in one batch; an overwritten
// entry's stale indexes are removed in the same batch.
func (s *Store) Put(entry *model.BlockEntry) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put_block", err, started)
	}()

	raw, encErr := json.Marshal(entry)
	if encErr != nil {
		err = &model.StorageError{Op: "encode_block", Err: encErr}
		return err
	}

	batch := new(leveldb.Batch)
	if err = s.unindexExisting(batch, entry.Block.Height); err != nil {
		return err
	}

	heightVal := encodeHeight(entry.Block.Height)
	batch.Put(blockKey(entry.Block.Height), raw)
	batch.Put(hashKey(entry.Block.Hash), heightVal)
	for _, tx := range entry.Txs {
		batch.Put(txKey(tx.TxID), heightVal)
	}

	if writeErr := s.db.Write(batch, s.wo); writeErr != nil {
		err = &model.StorageError{Op: "put_block", Err: writeErr}
		return err
	}
	return nil
}

// TruncateFrom removes all entries at or above the given height in a single
// batch. Used exclusively by reorg resolution.
func (s *Store) TruncateFrom(height uint64) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("truncate_from", err, started)
	}()

	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(&util.Range{
		Start: blockKey(height),
		Limit: util.BytesPrefix(blockKeyPrefix).Limit,
	}, nil)
	defer iter.Release()

	for iter.Next() {
		entry := &model.BlockEntry{}
		if decErr := json.Unmarshal(iter.Value(), entry); decErr != nil {
			err = &model.StorageError{Op: "truncate_from", Err: decErr}
			return err
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		batch.Delete(hashKey(entry.Block.Hash))
		for _, tx := range entry.Txs {
			batch.Delete(txKey(tx.TxID))
		}
	}
	if iterErr := iter.Error(); iterErr != nil {
		err = &model.StorageError{Op: "truncate_from", Err: iterErr}
		return err
	}
	if batch.Len() == 0 {
		return nil
	}

	if writeErr := s.db.Write(batch, s.wo); writeErr != nil {
		err = &model.StorageError{Op: "truncate_from", Err: writeErr}
		return err
	}
	return nil
}

// HighestHeight returns the highest stored height, pending or confirmed.
func (s *Store) HighestHeight() (height uint64, ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("highest_height", err, started)
	}()

	iter := s.db.NewIterator(util.BytesPrefix(blockKeyPrefix), nil)
	defer iter.Release()

	if !iter.Last() {
		if iterErr := iter.Error(); iterErr != nil {
			err = &model.StorageError{Op: "highest_height", Err: iterErr}
			return 0, false, err
		}
		return 0, false, nil
	}
	key := iter.Key()
	return binary.BigEndian.Uint64(key[len(blockKeyPrefix):]), true, nil
}

// HighestConfirmedHeight returns the highest entry marked confirmed. Only the
// short pending window sits above it, so the backwards scan stays cheap.
func (s *Store) HighestConfirmedHeight() (height uint64, ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("highest_confirmed_height", err, started)
	}()

	iter := s.db.NewIterator(util.BytesPrefix(blockKeyPrefix), nil)
	defer iter.Release()

	for found := iter.Last(); found; found = iter.Prev() {
		entry := &model.BlockEntry{}
		if decErr := json.Unmarshal(iter.Value(), entry); decErr != nil {
			err = &model.StorageError{Op: "highest_confirmed_height", Err: decErr}
			return 0, false, err
		}
		if entry.Status == model.BlockConfirmed {
			return entry.Block.Height, true, nil
		}
	}
	if iterErr := iter.Error(); iterErr != nil {
		err = &model.StorageError{Op: "highest_confirmed_height", Err: iterErr}
		return 0, false, err
	}
	return 0, false, nil
}

func (s *Store) unindexExisting(batch *leveldb.Batch, height uint64) error {
	existing, ok, err := s.Get(height)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	batch.Delete(hashKey(existing.Block.Hash))
	for _, tx := range existing.Txs {
		batch.Delete(txKey(tx.TxID))
	}
	return nil
}
