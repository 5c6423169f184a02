package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// PutAddressTransactions records confirmed matches for watched addresses in
// one batch.
func (s *Store) PutAddressTransactions(matches []model.AddressTransaction) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put_address_transactions", err, started)
	}()

	if len(matches) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	for _, match := range matches {
		raw, encErr := json.Marshal(match)
		if encErr != nil {
			err = &model.StorageError{Op: "encode_address_transaction", Err: encErr}
			return err
		}
		batch.Put(addressKey(match.Address, match.TxID), raw)
	}
	if writeErr := s.db.Write(batch, s.wo); writeErr != nil {
		err = &model.StorageError{Op: "put_address_transactions", Err: writeErr}
		return err
	}
	return nil
}

// AddressTransactions returns all recorded matches for an address.
func (s *Store) AddressTransactions(address string) (matches []model.AddressTransaction, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("address_transactions", err, started)
	}()

	prefix := addressKey(address, "")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		var match model.AddressTransaction
		if decErr := json.Unmarshal(iter.Value(), &match); decErr != nil {
			err = &model.StorageError{Op: "decode_address_transaction", Err: decErr}
			return nil, err
		}
		matches = append(matches, match)
	}
	if iterErr := iter.Error(); iterErr != nil {
		err = &model.StorageError{Op: "address_transactions", Err: iterErr}
		return nil, err
	}
	return matches, nil
}

// IsExported reports whether a transaction notification was already delivered.
func (s *Store) IsExported(txid string) (ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("is_exported", err, started)
	}()

	_, getErr := s.db.Get(exportedKey(txid), nil)
	if errors.Is(getErr, leveldb.ErrNotFound) {
		return false, nil
	}
	if getErr != nil {
		err = &model.StorageError{Op: "is_exported", Err: getErr}
		return false, err
	}
	return true, nil
}

// MarkExported records that a transaction notification was delivered, so
// restarts do not notify twice.
func (s *Store) MarkExported(txid string) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("mark_exported", err, started)
	}()

	if putErr := s.db.Put(exportedKey(txid), []byte{1}, s.wo); putErr != nil {
		err = &model.StorageError{Op: "mark_exported", Err: putErr}
		return err
	}
	return nil
}
