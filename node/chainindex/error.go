// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainindex

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific IndexError.
const (
	// ErrNotInitialized indicates the index was used before Initialize.
	ErrNotInitialized ErrorCode = iota

	// ErrGenesisMismatch indicates the chain handed to Initialize does not
	// start at the genesis block of the configured network.  This is a
	// fatal configuration error.
	ErrGenesisMismatch

	// ErrNotContiguous indicates an attempt to append a node whose parent is
	// not the current tip.
	ErrNotContiguous

	// ErrNotTip indicates an attempt to remove a node that is not the
	// current tip.
	ErrNotTip

	// ErrRemoveGenesis indicates an attempt to roll back the genesis block.
	ErrRemoveGenesis

	// ErrUnknownNode indicates a nil node or a node that cannot be linked
	// to the index.
	ErrUnknownNode
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrNotInitialized:  "ErrNotInitialized",
	ErrGenesisMismatch: "ErrGenesisMismatch",
	ErrNotContiguous:   "ErrNotContiguous",
	ErrNotTip:          "ErrNotTip",
	ErrRemoveGenesis:   "ErrRemoveGenesis",
	ErrUnknownNode:     "ErrUnknownNode",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// IndexError identifies a rejected index operation.  The caller can use type
// assertions to determine if a failure was specifically due to a contract
// violation and access the ErrorCode field to ascertain the specific reason.
type IndexError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e IndexError) Error() string {
	return e.Description
}

// indexError creates an IndexError given a set of arguments.
func indexError(c ErrorCode, desc string) IndexError {
	return IndexError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err, or the error it wraps, is an IndexError
// with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var ierr IndexError
	if errors.As(err, &ierr) {
		return ierr.ErrorCode == c
	}
	return false
}
