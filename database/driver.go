// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Driver defines a structure for backend drivers to use when they registered
// themselves as a backend which implements the DB interface.
type Driver struct {
	// DBType is the identifier used to uniquely identify a specific
	// database driver.  There can be only one driver with the same name.
	DBType string

	// Create is the function that will be invoked with all user-specified
	// arguments to create the database, or open it when it already exists.
	Create func(args ...interface{}) (DB, error)

	// Open is the function that will be invoked with all user-specified
	// arguments to open the database.  This function must return
	// ErrDBDoesNotExist if the database has not already been created.
	Open func(args ...interface{}) (DB, error)

	// UseLogger uses a specified Logger to output package logging info.
	UseLogger func(logger zerolog.Logger)
}

// PathOpener opens the database stored at path, creating it first when create
// is set.
type PathOpener func(path string, create bool) (DB, error)

// NewPathDriver builds a Driver for a backend whose only argument is the
// database path, as passed to Create and Open.
func NewPathDriver(dbType string, open PathOpener, useLogger func(zerolog.Logger)) Driver {
	callback := func(op string, create bool) func(args ...interface{}) (DB, error) {
		return func(args ...interface{}) (DB, error) {
			if len(args) != 1 {
				str := fmt.Sprintf("%s.%s expects exactly one argument, the database path, got %d",
					dbType, op, len(args))
				return nil, MakeError(ErrInvalidArgs, str, nil)
			}
			path, ok := args[0].(string)
			if !ok {
				str := fmt.Sprintf("%s.%s expects the database path as a string, got %T",
					dbType, op, args[0])
				return nil, MakeError(ErrInvalidArgs, str, nil)
			}
			return open(path, create)
		}
	}

	return Driver{
		DBType:    dbType,
		Create:    callback("Create", true),
		Open:      callback("Open", false),
		UseLogger: useLogger,
	}
}

// driverList holds all of the registered database backends.
var (
	driversMtx sync.RWMutex
	drivers    = make(map[string]*Driver)
)

// RegisterDriver adds a backend database driver to available interfaces.
// ErrDBTypeRegistered will be returned if the database type for the driver has
// already been registered.
func RegisterDriver(driver Driver) error {
	driversMtx.Lock()
	defer driversMtx.Unlock()

	if _, exists := drivers[driver.DBType]; exists {
		str := fmt.Sprintf("driver %q is already registered",
			driver.DBType)
		return MakeError(ErrDBTypeRegistered, str, nil)
	}

	drivers[driver.DBType] = &driver
	return nil
}

// SupportedDrivers returns a slice of strings that represent the database
// drivers that have been registered and are therefore supported.
func SupportedDrivers() []string {
	driversMtx.RLock()
	defer driversMtx.RUnlock()

	supportedDBs := make([]string, 0, len(drivers))
	for _, drv := range drivers {
		supportedDBs = append(supportedDBs, drv.DBType)
	}
	sort.Strings(supportedDBs)
	return supportedDBs
}

func lookupDriver(dbType string) (*Driver, error) {
	driversMtx.RLock()
	drv, exists := drivers[dbType]
	driversMtx.RUnlock()
	if !exists {
		str := fmt.Sprintf("driver %q is not registered", dbType)
		return nil, MakeError(ErrDBUnknownType, str, nil)
	}
	return drv, nil
}

// Create initializes and opens a database for the specified type.  The
// arguments are specific to the database type driver.  See the documentation
// for the database driver for further details.
//
// ErrDBUnknownType will be returned if the database type is not registered.
func Create(dbType string, args ...interface{}) (DB, error) {
	drv, err := lookupDriver(dbType)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("type", dbType).Msg("Creating database")
	return drv.Create(args...)
}

// Open opens an existing database for the specified type.  The arguments are
// specific to the database type driver.  See the documentation for the
// database driver for further details.
//
// ErrDBUnknownType will be returned if the database type is not registered.
func Open(dbType string, args ...interface{}) (DB, error) {
	drv, err := lookupDriver(dbType)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("type", dbType).Msg("Opening database")
	return drv.Open(args...)
}

// UseLogger hands logger to this package and to every registered driver.
func UseLogger(logger zerolog.Logger) {
	log = logger

	driversMtx.RLock()
	defer driversMtx.RUnlock()
	for _, drv := range drivers {
		if drv.UseLogger != nil {
			drv.UseLogger(logger)
		}
	}
}
