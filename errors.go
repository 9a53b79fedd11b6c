/*
 * Copyright 2026 QuestDB
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package questdb

import (
	"errors"
	"fmt"
)

// ErrorKind is the category of an Error.
type ErrorKind string

const (
	// KindInvalidArgument represents a malformed name or value: bad UTF-8,
	// characters illegal in the wire format, or a wrong-typed numeric input.
	KindInvalidArgument ErrorKind = "invalid_argument"
	// KindProtocolViolation represents a row-building call made in a state
	// that forbids it, such as a symbol added after a typed column.
	KindProtocolViolation ErrorKind = "protocol_violation"
	// KindAuthFailure represents a failed authentication challenge.
	KindAuthFailure ErrorKind = "auth_failure"
	// KindTransportFailure represents a socket I/O error during flush or close.
	KindTransportFailure ErrorKind = "transport_failure"
)

// Error is the error type returned by all fallible operations in this package.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of err, or the empty string if err does not wrap
// an *Error from this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(err error, kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}
