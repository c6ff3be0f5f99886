// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// DB is a flat key-value store.  Each call is atomic on its own; there are no
// multi-key transactions.
//
// Values returned by Get are copies owned by the caller.  Every method
// returns an Error with the ErrDBNotOpen code after Close.
type DB interface {
	// Type returns the database driver type the current database instance
	// was created with.
	Type() string

	// Get returns the value stored under key or an Error with the
	// ErrNotFound code.
	Get(key []byte) ([]byte, error)

	// Has reports whether key exists.
	Has(key []byte) (bool, error)

	// Put stores value under key, replacing any previous value.
	Put(key, value []byte) error

	// Delete removes key.  Deleting a missing key is not an error.
	Delete(key []byte) error

	// ForEach calls fn for every key starting with prefix in ascending key
	// order.  The slices passed to fn are only valid during the call.
	// Iteration stops at the first error returned by fn, which is then
	// returned.
	ForEach(prefix []byte, fn func(key, value []byte) error) error

	// Close cleanly shuts down the database and syncs all data.  It will
	// block until all database transactions have been finalized.
	Close() error
}
