// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/database"
	_ "gitlab.com/jaxnet/chainstate/database/bdb"
	"gitlab.com/jaxnet/chainstate/database/ldb"
)

// checkDBError ensures the passed error is a database.Error with an error code
// that matches the passed  error code.
func checkDBError(t *testing.T, testName string, gotErr error, wantErrCode database.ErrorCode) bool {
	var dbErr database.Error
	if !errors.As(gotErr, &dbErr) {
		t.Errorf("%s: unexpected error type - got %T, want %T",
			testName, gotErr, database.Error{})
		return false
	}
	if dbErr.ErrorCode != wantErrCode {
		t.Errorf("%s: unexpected error code - got %s (%s), want %s",
			testName, dbErr.ErrorCode, dbErr.Description,
			wantErrCode)
		return false
	}

	return true
}

func TestSupportedDrivers(t *testing.T) {
	assert.Subset(t, database.SupportedDrivers(), []string{"badger", "leveldb"})
}

// TestAddDuplicateDriver ensures that adding a duplicate driver does not
// overwrite an existing one.
func TestAddDuplicateDriver(t *testing.T) {
	supportedDrivers := database.SupportedDrivers()
	require.NotEmpty(t, supportedDrivers, "no backends to test")
	dbType := supportedDrivers[0]

	// bogusCreateDB is a function which acts as a bogus create and open
	// driver function and intentionally returns a failure that can be
	// detected if the interface allows a duplicate driver to overwrite an
	// existing one.
	bogusCreateDB := func(args ...interface{}) (database.DB, error) {
		return nil, fmt.Errorf("duplicate driver allowed for database type [%v]", dbType)
	}

	driver := database.Driver{
		DBType: dbType,
		Create: bogusCreateDB,
		Open:   bogusCreateDB,
	}
	err := database.RegisterDriver(driver)
	checkDBError(t, "duplicate driver registration", err, database.ErrDBTypeRegistered)
}

// TestCreateOpenFail ensures that errors which occur while opening or closing
// a database are handled properly.
func TestCreateOpenFail(t *testing.T) {
	dbType := "createopenfail"
	openError := fmt.Errorf("failed to create or open database for "+
		"database type [%v]", dbType)
	bogusCreateDB := func(args ...interface{}) (database.DB, error) {
		return nil, openError
	}

	driver := database.Driver{
		DBType: dbType,
		Create: bogusCreateDB,
		Open:   bogusCreateDB,
	}
	require.NoError(t, database.RegisterDriver(driver))

	_, err := database.Create(dbType, t.TempDir())
	assert.Equal(t, openError, err)

	_, err = database.Open(dbType, t.TempDir())
	assert.Equal(t, openError, err)
}

// TestCreateOpenUnsupported ensures that attempting to create or open an
// unsupported database type is handled properly.
func TestCreateOpenUnsupported(t *testing.T) {
	_, err := database.Create("unsupported", t.TempDir())
	checkDBError(t, "create with unsupported database type", err, database.ErrDBUnknownType)

	_, err = database.Open("unsupported", t.TempDir())
	checkDBError(t, "open with unsupported database type", err, database.ErrDBUnknownType)
}

// testDB runs the common key-value contract against db.
func testDB(t *testing.T, db database.DB) {
	_, err := db.Get([]byte("missing"))
	assert.True(t, database.IsNotFound(err), "%v", err)

	ok, err := db.Has([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Put([]byte("lastcommontip"), []byte{1, 2, 3}))
	value, err := db.Get([]byte("lastcommontip"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, value)

	// Returned values belong to the caller.
	value[0] = 9
	value, err = db.Get([]byte("lastcommontip"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, value)

	require.NoError(t, db.Put([]byte("lastcommontip"), []byte{4}))
	value, err = db.Get([]byte("lastcommontip"))
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, value)

	for _, key := range []string{"h/03", "h/01", "h/02", "i/01"} {
		require.NoError(t, db.Put([]byte(key), []byte(key)))
	}

	var keys []string
	err = db.ForEach([]byte("h/"), func(key, value []byte) error {
		assert.Equal(t, key, value)
		keys = append(keys, string(key))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"h/01", "h/02", "h/03"}, keys)

	stop := errors.New("stop")
	var visited int
	err = db.ForEach([]byte("h/"), func(key, value []byte) error {
		visited++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, visited)

	require.NoError(t, db.Delete([]byte("h/02")))
	require.NoError(t, db.Delete([]byte("h/02")))
	ok, err = db.Has([]byte("h/02"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Close())
	_, err = db.Get([]byte("lastcommontip"))
	checkDBError(t, "get after close", err, database.ErrDBNotOpen)
	err = db.Put([]byte("k"), []byte("v"))
	checkDBError(t, "put after close", err, database.ErrDBNotOpen)
	checkDBError(t, "double close", db.Close(), database.ErrDBNotOpen)
}

func TestDrivers(t *testing.T) {
	for _, dbType := range []string{"leveldb", "badger"} {
		dbType := dbType
		t.Run(dbType, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db")

			_, err := database.Open(dbType, path)
			checkDBError(t, "open missing", err, database.ErrDBDoesNotExist)

			db, err := database.Create(dbType, path)
			require.NoError(t, err)
			assert.Equal(t, dbType, db.Type())
			require.NoError(t, db.Put([]byte("persisted"), []byte("yes")))
			require.NoError(t, db.Close())

			db, err = database.Open(dbType, path)
			require.NoError(t, err)
			value, err := db.Get([]byte("persisted"))
			require.NoError(t, err)
			assert.Equal(t, []byte("yes"), value)

			testDB(t, db)
		})
	}
}

func TestBadArgs(t *testing.T) {
	for _, dbType := range []string{"leveldb", "badger"} {
		_, err := database.Create(dbType)
		assert.True(t, database.IsErrorCode(err, database.ErrInvalidArgs), dbType)
		_, err = database.Open(dbType, 42)
		assert.True(t, database.IsErrorCode(err, database.ErrInvalidArgs), dbType)
		_, err = database.Open(dbType, t.TempDir(), "extra")
		assert.True(t, database.IsErrorCode(err, database.ErrInvalidArgs), dbType)
	}
}

func TestPathDriver(t *testing.T) {
	type call struct {
		path   string
		create bool
	}
	var calls []call
	driver := database.NewPathDriver("recorder", func(path string, create bool) (database.DB, error) {
		calls = append(calls, call{path, create})
		return nil, nil
	}, nil)

	assert.Equal(t, "recorder", driver.DBType)
	_, err := driver.Create("/tmp/a")
	require.NoError(t, err)
	_, err = driver.Open("/tmp/b")
	require.NoError(t, err)
	assert.Equal(t, []call{{"/tmp/a", true}, {"/tmp/b", false}}, calls)

	_, err = driver.Open()
	assert.True(t, database.IsErrorCode(err, database.ErrInvalidArgs))
	assert.Contains(t, err.Error(), "recorder.Open")
	assert.Len(t, calls, 2)
}

func TestMemoryDB(t *testing.T) {
	db, err := ldb.NewMemory()
	require.NoError(t, err)
	testDB(t, db)
}
