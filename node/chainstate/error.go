// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrNotInitialized indicates the chain state was used before
	// Initialize.
	ErrNotInitialized ErrorCode = iota

	// ErrAlreadyInitialized indicates a second call to Initialize.
	ErrAlreadyInitialized

	// ErrDuplicateHeader indicates a header that is already known.
	ErrDuplicateHeader

	// ErrOrphanHeader indicates a header whose parent is unknown.
	ErrOrphanHeader

	// ErrCorruptHeaderStore indicates stored headers that do not form a
	// tree rooted at genesis.
	ErrCorruptHeaderStore
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrNotInitialized:     "ErrNotInitialized",
	ErrAlreadyInitialized: "ErrAlreadyInitialized",
	ErrDuplicateHeader:    "ErrDuplicateHeader",
	ErrOrphanHeader:       "ErrOrphanHeader",
	ErrCorruptHeaderStore: "ErrCorruptHeaderStore",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a header failed due to one of the many validation
// rules.  The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err, or the error it wraps, is a RuleError with
// the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	if errors.As(err, &rerr) {
		return rerr.ErrorCode == c
	}
	return false
}
