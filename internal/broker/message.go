// SPDX-License-Identifier: Apache-2.0

package broker

import "time"

// MessageAttributeValue is a single typed message attribute. DataType is
// one of "String", "Number", "Binary", optionally suffixed with a
// custom subtype ("String.foo").
type MessageAttributeValue struct {
	DataType    string
	StringValue string
	BinaryValue []byte
}

// baseType strips any ".customType" suffix, returning String, Number, or
// Binary.
func (v MessageAttributeValue) baseType() string {
	for i, c := range v.DataType {
		if c == '.' {
			return v.DataType[:i]
		}
	}
	return v.DataType
}

// messageState is the lifecycle state of a Message, per spec §3.
type messageState int

const (
	statePending messageState = iota
	stateInflight
	stateRemoved
)

// Message is owned exclusively by one Queue for its entire lifetime.
type Message struct {
	ID         string
	Body       string
	Attributes map[string]MessageAttributeValue

	CreatedAt         time.Time
	FirstReceivedAt   time.Time
	receivedAtLeast   bool
	ReceiveCount      int
	OrderIndex        uint64

	MessageGroupID         string
	MessageDeduplicationID string
	SequenceNumber         string

	state              messageState
	visibleAt          time.Time // meaningful when Pending
	receiptHandle      string    // meaningful when Inflight
	visibilityDeadline time.Time // meaningful when Inflight

	// heapIndex is maintained by container/heap for O(log n) removal.
	heapIndex int
}

func (m *Message) isFifo() bool { return m.MessageGroupID != "" }

// deadline returns the time at which this message's current state next
// needs evaluation by the scheduler: visibleAt for Pending, the
// visibility deadline for Inflight. Removed messages have no deadline.
func (m *Message) deadline() time.Time {
	if m.state == stateInflight {
		return m.visibilityDeadline
	}
	return m.visibleAt
}
