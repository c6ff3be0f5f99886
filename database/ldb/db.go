// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ldb

import (
	"os"
	"sync"

	"github.com/btcsuite/goleveldb/leveldb"
	ldberrors "github.com/btcsuite/goleveldb/leveldb/errors"
	"github.com/btcsuite/goleveldb/leveldb/filter"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/storage"
	"github.com/btcsuite/goleveldb/leveldb/util"
	"github.com/pkg/errors"

	"gitlab.com/jaxnet/chainstate/database"
)

// db wraps a leveldb instance.  The lock guards the closed flag so no call
// reaches leveldb after Close.
type db struct {
	mtx    sync.RWMutex
	closed bool
	ldb    *leveldb.DB
}

// Enforce db implements the database.DB interface.
var _ database.DB = (*db)(nil)

// openDB opens the database at the provided path.  database.ErrDBDoesNotExist
// is returned if the database doesn't exist and the create flag is not set.
func openDB(dbPath string, create bool) (database.DB, error) {
	if !create {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			str := "database " + dbPath + " does not exist"
			return nil, database.MakeError(database.ErrDBDoesNotExist, str, nil)
		}
	}

	opts := opt.Options{
		ErrorIfMissing: !create,
		Strict:         opt.DefaultStrict,
		Compression:    opt.NoCompression,
		Filter:         filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, convertErr(errors.Wrapf(err, "open %s", dbPath))
	}

	log.Info().Str("path", dbPath).Msg("LevelDB opened")
	return &db{ldb: ldb}, nil
}

// NewMemory returns a database backed by leveldb in-memory storage.  Nothing
// survives Close.
func NewMemory() (database.DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, convertErr(err)
	}
	return &db{ldb: ldb}, nil
}

// convertErr converts the passed leveldb error into a database error with an
// equivalent error code and the passed description.  It also sets the passed
// error as the underlying error.
func convertErr(err error) error {
	switch cause := errors.Cause(err); {
	case cause == leveldb.ErrNotFound:
		return database.MakeError(database.ErrNotFound, "key not found", err)
	case cause == leveldb.ErrClosed:
		return database.MakeError(database.ErrDBNotOpen, "database is not open", err)
	case ldberrors.IsCorrupted(cause):
		return database.MakeError(database.ErrDriverSpecific, "database is corrupted", err)
	}
	return database.MakeError(database.ErrDriverSpecific, "leveldb failure", err)
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

	value, err := d.ldb.Get(key, nil)
	if err != nil {
		return nil, convertErr(err)
	}
	return value, nil
}

func (d *db) Has(key []byte) (bool, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return false, errNotOpen
	}

	ok, err := d.ldb.Has(key, nil)
	if err != nil {
		return false, convertErr(err)
	}
	return ok, nil
}

func (d *db) Put(key, value []byte) error {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return errNotOpen
	}

	if err := d.ldb.Put(key, value, &opt.WriteOptions{Sync: true}); err != nil {
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

	if err := d.ldb.Delete(key, nil); err != nil {
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

	iter := d.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
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

	if err := d.ldb.Close(); err != nil {
		return convertErr(err)
	}
	return nil
}
