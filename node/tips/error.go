// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tips

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific TipError.
const (
	// ErrNotInitialized indicates the manager was used before Initialize.
	ErrNotInitialized ErrorCode = iota

	// ErrAlreadyInitialized indicates a second call to Initialize.
	ErrAlreadyInitialized

	// ErrUnknownProvider indicates a commit or lookup for a provider that
	// never registered.
	ErrUnknownProvider

	// ErrDuplicateProvider indicates a provider registered twice.
	ErrDuplicateProvider

	// ErrInvalidTip indicates a nil tip or a tip that cannot be decoded.
	ErrInvalidTip

	// ErrStopped indicates the manager was used after Stop.
	ErrStopped
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrNotInitialized:     "ErrNotInitialized",
	ErrAlreadyInitialized: "ErrAlreadyInitialized",
	ErrUnknownProvider:    "ErrUnknownProvider",
	ErrDuplicateProvider:  "ErrDuplicateProvider",
	ErrInvalidTip:         "ErrInvalidTip",
	ErrStopped:            "ErrStopped",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// TipError identifies a rejected tips manager operation.
type TipError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e TipError) Error() string {
	return e.Description
}

func tipError(c ErrorCode, desc string) TipError {
	return TipError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err, or the error it wraps, is a TipError with
// the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var terr TipError
	if errors.As(err, &terr) {
		return terr.ErrorCode == c
	}
	return false
}
