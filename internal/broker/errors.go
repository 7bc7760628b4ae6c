// SPDX-License-Identifier: Apache-2.0

package broker

import "fmt"

// ErrorKind classifies an Error for HTTP-status mapping at the adapter
// boundary, per spec §7.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindLimitExceeded
	KindInternal
)

// Error is the typed error the core returns. Adapters map Code to the
// SQS <Code> element and Kind to an HTTP status.
type Error struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newErr(kind ErrorKind, code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func errQueueAlreadyExists(name string) *Error {
	return newErr(KindConflict, "QueueAlreadyExists", "a queue named %q already exists with different attributes", name)
}

func errQueueDoesNotExist(name string) *Error {
	return newErr(KindNotFound, "QueueDoesNotExist", "queue %q does not exist", name)
}

func errInvalidAttributeValue(name, reason string) *Error {
	return newErr(KindValidation, "InvalidAttributeValue", "invalid value for attribute %q: %s", name, reason)
}

func errInvalidParameterValue(format string, args ...interface{}) *Error {
	return newErr(KindValidation, "InvalidParameterValue", format, args...)
}

func errMissingParameter(name string) *Error {
	return newErr(KindValidation, "MissingParameter", "missing required parameter %q", name)
}

func errReceiptHandleInvalid() *Error {
	return newErr(KindNotFound, "ReceiptHandleIsInvalid", "the receipt handle is invalid, or the message is no longer inflight")
}

func errMessageTooLong(size, max int) *Error {
	return newErr(KindLimitExceeded, "MessageTooLong", "message size %d exceeds the maximum of %d bytes", size, max)
}

func errBatchEntryIdsNotDistinct() *Error {
	return newErr(KindValidation, "BatchEntryIdsNotDistinct", "batch entry ids must be distinct")
}

func errEmptyBatchRequest() *Error {
	return newErr(KindValidation, "EmptyBatchRequest", "the batch request contains no entries")
}

func errTooManyEntriesInBatchRequest() *Error {
	return newErr(KindLimitExceeded, "TooManyEntriesInBatchRequest", "a batch request supports a maximum of 10 entries")
}
