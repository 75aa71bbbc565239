// Copyright 2014 The go-probeum Authors
// This file is part of the go-probeum library.
//
// The go-probeum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-probeum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-probeum library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"errors"
	"fmt"
)

// ErrReservedAddress is returned when a peer address normalizes to a
// loopback, link-local, or any-local address.
var ErrReservedAddress = errors.New("reserved address")

// ErrIndexOutOfBounds is returned if index out of bounds
var ErrIndexOutOfBounds = errors.New("index out of bounds")

// ValidationError reports well-formed-but-invalid input: a bad signature,
// a malformed attachment, a schema mismatch. It carries no blacklisting
// weight on its own.
type ValidationError struct {
	Msg string
	Err error
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func WrapValidationError(err error, msg string) *ValidationError {
	return &ValidationError{Msg: msg, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotYetEnabledError is a ValidationError subclass for a transaction type
// introduced at a future fork height. Dropped silently by callers that
// check errors.As against it.
type NotYetEnabledError struct {
	*ValidationError
}

func NewNotYetEnabledError(msg string) *NotYetEnabledError {
	return &NotYetEnabledError{ValidationError: NewValidationError(msg)}
}

// Unwrap exposes the embedded ValidationError, so errors.As against
// *ValidationError matches a NotYetEnabledError too.
func (e *NotYetEnabledError) Unwrap() error { return e.ValidationError }

// UndoNotSupportedError is surfaced to the caller of block-undo: it
// indicates the chain must rescan rather than roll back.
type UndoNotSupportedError struct {
	Msg string
}

func (e *UndoNotSupportedError) Error() string { return e.Msg }

// NetworkError covers timeout, connection-refused, and unparseable peer
// responses. Callers may advance peer state to DISCONNECTED or blacklist.
type NetworkError struct {
	Msg string
	Err error
}

func WrapNetworkError(err error, msg string) *NetworkError {
	return &NetworkError{Msg: msg, Err: err}
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError is fatal at startup only.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
