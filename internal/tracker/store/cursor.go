package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// LoadCursor reads the durable cursor. Absent on first run.
func (s *Store) LoadCursor() (cursor model.Cursor, ok bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("load_cursor", err, started)
	}()

	raw, getErr := s.db.Get(cursorKey, nil)
	if errors.Is(getErr, leveldb.ErrNotFound) {
		return model.Cursor{}, false, nil
	}
	if getErr != nil {
		err = &model.StorageError{Op: "load_cursor", Err: getErr}
		return model.Cursor{}, false, err
	}
	if decErr := json.Unmarshal(raw, &cursor); decErr != nil {
		err = &model.StorageError{Op: "decode_cursor", Err: decErr}
		return model.Cursor{}, false, err
	}
	return cursor, true, nil
}

// SaveCursor atomically overwrites the cursor. The caller only advances it
// after the chain mutation it acknowledges has committed.
func (s *Store) SaveCursor(cursor model.Cursor) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("save_cursor", err, started)
	}()

	raw, encErr := json.Marshal(cursor)
	if encErr != nil {
		err = &model.StorageError{Op: "encode_cursor", Err: encErr}
		return err
	}
	if putErr := s.db.Put(cursorKey, raw, s.wo); putErr != nil {
		err = &model.StorageError{Op: "save_cursor", Err: putErr}
		return err
	}
	return nil
}
