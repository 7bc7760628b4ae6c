// SPDX-License-Identifier: Apache-2.0

// Package ids generates the opaque identifiers the broker hands out:
// message ids and receipt handles.
package ids

import "github.com/google/uuid"

// NewMessageID returns a fresh, URL-safe message id.
func NewMessageID() string {
	return uuid.New().String()
}

// NewReceiptHandle returns a fresh receipt handle. Receipt handles are
// generated independently of message ids: a given message gets a new
// handle on every receive, and old handles must stop working once a
// newer one is issued for the same message.
func NewReceiptHandle() string {
	return uuid.New().String() + "-" + uuid.New().String()
}
