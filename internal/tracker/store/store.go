// Package store persists the tracker's chain view and cursor in LevelDB.
//
// The reconciler is the only writer; the query facade and archiver read
// concurrently. Every mutation goes through a single WriteBatch with synced
// writes, so a crash leaves either the full mutation or none of it.
package store

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

type (
	// Metrics records metrics for store operations.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// Key layout:
//
//	b<height BE8>          -> JSON block entry
//	h/<block hash>         -> height BE8
//	t/<txid>               -> height BE8
//	a/<address>/<txid>     -> JSON address transaction
//	e/<txid>               -> exported marker
//	cursor                 -> JSON cursor
var (
	blockKeyPrefix    = []byte("b")
	hashKeyPrefix     = []byte("h/")
	txKeyPrefix       = []byte("t/")
	addressKeyPrefix  = []byte("a/")
	exportedKeyPrefix = []byte("e/")
	cursorKey         = []byte("cursor")
)

// Store wraps a LevelDB instance holding the chain view and cursor.
type Store struct {
	db      *leveldb.DB
	metrics Metrics

	// Durable batches survive crashes at the cost of an fsync per write.
	wo *opt.WriteOptions
}

// Open opens (or creates) the store at the given path.
func Open(path string, metrics Metrics) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if metrics == nil {
		return nil, errors.New("store metrics is required")
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, &model.StorageError{Op: "open", Err: err}
	}
	return &Store{
		db:      db,
		metrics: metrics,
		wo:      &opt.WriteOptions{Sync: true},
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &model.StorageError{Op: "close", Err: err}
	}
	return nil
}

func blockKey(height uint64) []byte {
	key := make([]byte, len(blockKeyPrefix)+8)
	copy(key, blockKeyPrefix)
	binary.BigEndian.PutUint64(key[len(blockKeyPrefix):], height)
	return key
}

func hashKey(hash string) []byte {
	return append(append([]byte(nil), hashKeyPrefix...), hash...)
}

func txKey(txid string) []byte {
	return append(append([]byte(nil), txKeyPrefix...), txid...)
}

func addressKey(address, txid string) []byte {
	key := append(append([]byte(nil), addressKeyPrefix...), address...)
	key = append(key, '/')
	return append(key, txid...)
}

func exportedKey(txid string) []byte {
	return append(append([]byte(nil), exportedKeyPrefix...), txid...)
}

func encodeHeight(height uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, height)
	return buf
}
