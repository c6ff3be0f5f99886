// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific database Error.
const (
	// ErrDBTypeRegistered indicates two different database drivers
	// attempt to register with the name database type.
	ErrDBTypeRegistered ErrorCode = iota

	// ErrDBUnknownType indicates there is no driver registered for
	// the specified database type.
	ErrDBUnknownType

	// ErrDBDoesNotExist indicates open is called for a database that
	// does not exist.
	ErrDBDoesNotExist

	// ErrDBNotOpen indicates a database instance is accessed before it is
	// opened or after it is closed.
	ErrDBNotOpen

	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound

	// ErrInvalidArgs indicates Create or Open was called with arguments the
	// driver does not accept.
	ErrInvalidArgs

	// ErrDriverSpecific indicates the Err field is a driver-specific error.
	// This provides a mechanism for drivers to plug-in their own custom
	// errors for any situations which aren't already covered by the error
	// codes provided by this package.
	ErrDriverSpecific
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDBTypeRegistered: "ErrDBTypeRegistered",
	ErrDBUnknownType:    "ErrDBUnknownType",
	ErrDBDoesNotExist:   "ErrDBDoesNotExist",
	ErrDBNotOpen:        "ErrDBNotOpen",
	ErrNotFound:         "ErrNotFound",
	ErrInvalidArgs:      "ErrInvalidArgs",
	ErrDriverSpecific:   "ErrDriverSpecific",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during database
// operation.  It is used to indicate several types of failures including errors
// with caller requests such as specifying invalid keys and internal errors
// with the database itself.
//
// The caller can use type assertions to determine if an error is an Error and
// access the ErrorCode field to ascertain the specific reason for the failure.
//
// The ErrDriverSpecific error code will also have the Err field set with the
// underlying error.  Depending on the backend driver, the Err field might be
// set to the underlying error for other error codes as well.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// MakeError creates an Error given a set of arguments.  The error code must
// be one of the error codes provided by this package.
func MakeError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode returns whether err, or the error it wraps, is a database Error
// with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var dbErr Error
	if errors.As(err, &dbErr) {
		return dbErr.ErrorCode == c
	}
	return false
}

// IsNotFound reports whether err reports a missing key.
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrNotFound)
}
