// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bdb

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"gitlab.com/jaxnet/chainstate/database"
)

// db wraps a badger instance.  The lock guards the closed flag so no call
// reaches badger after Close.
type db struct {
	mtx    sync.RWMutex
	closed bool
	bdb    *badger.DB
}

// Enforce db implements the database.DB interface.
var _ database.DB = (*db)(nil)

// badgerLogger routes badger's own messages into the package logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error().Msg(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warn().Msg(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug().Msg(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Trace().Msg(fmt.Sprintf(format, args...))
}

// openDB opens the database in the provided directory.
// database.ErrDBDoesNotExist is returned if the directory doesn't exist and
// the create flag is not set.
func openDB(dbPath string, create bool) (database.DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if !create {
			str := "database " + dbPath + " does not exist"
			return nil, database.MakeError(database.ErrDBDoesNotExist, str, nil)
		}
		if err := os.MkdirAll(dbPath, 0700); err != nil {
			return nil, errors.Wrapf(err, "create %s", dbPath)
		}
	}

	opts := badger.DefaultOptions(dbPath).WithLogger(badgerLogger{})
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, database.MakeError(database.ErrDriverSpecific, "badger failure",
			errors.Wrapf(err, "open %s", dbPath))
	}

	log.Info().Str("path", dbPath).Msg("Badger opened")
	return &db{bdb: bdb}, nil
}

// convertErr converts the passed badger error into a database error with an
// equivalent error code.
func convertErr(err error) error {
	if errors.Cause(err) == badger.ErrKeyNotFound {
		return database.MakeError(database.ErrNotFound, "key not found", err)
	}
	return database.MakeError(database.ErrDriverSpecific, "badger failure", err)
}

var errNotOpen = database.MakeError(database.ErrDBNotOpen, "database is not open", nil)

func (d *db) Type() string {
	return dbType
}

func (d *db) Get(key []byte) ([]byte, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return nil, errNotOpen
	}

	var value []byte
	err := d.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, convertErr(err)
	}
	return value, nil
}

func (d *db) Has(key []byte) (bool, error) {
	_, err := d.Get(key)
	if database.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (d *db) Put(key, value []byte) error {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return errNotOpen
	}

	err := d.bdb.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return convertErr(err)
	}
	return nil
}

func (d *db) Delete(key []byte) error {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return errNotOpen
	}

	err := d.bdb.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return convertErr(err)
	}
	return nil
}

func (d *db) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return errNotOpen
	}

	var fnErr error
	err := d.bdb.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if fnErr = fn(item.Key(), value); fnErr != nil {
				return fnErr
			}
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return convertErr(err)
	}
	return nil
}

func (d *db) Close() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.closed {
		return errNotOpen
	}
	d.closed = true

	if err := d.bdb.Close(); err != nil {
		return convertErr(err)
	}
	return nil
}
