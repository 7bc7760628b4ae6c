// SPDX-License-Identifier: Apache-2.0

package broker

import "strings"

const (
	minVisibilityTimeoutMillis = 0
	maxVisibilityTimeoutMillis = 43_200_000

	minDelayMillis = 0
	maxDelayMillis = 900_000

	minReceiveWaitMillis = 0
	maxReceiveWaitMillis = 20_000

	minRetentionMillis = 60_000
	maxRetentionMillis = 1_209_600_000

	minMaxMessageSizeBytes = 1_024
	maxMaxMessageSizeBytes = 262_144

	defaultVisibilityTimeoutMillis = 30_000
	defaultRetentionMillis         = 345_600_000
	defaultMaxMessageSizeBytes     = 262_144

	maxReceiveCount = 10
	maxBatchEntries = 10
)

// ValidateQueueName checks spec §3's name rule: non-empty, <=80 chars,
// [A-Za-z0-9_-], and the .fifo suffix required iff fifo is true.
func ValidateQueueName(name string, fifo bool) error {
	if name == "" {
		return errInvalidParameterValue("queue name must not be empty")
	}
	if len(name) > 80 {
		return errInvalidParameterValue("queue name must be at most 80 characters")
	}
	isFifoName := strings.HasSuffix(name, ".fifo")
	base := name
	if isFifoName {
		base = strings.TrimSuffix(name, ".fifo")
	}
	for _, c := range base {
		if !isNameChar(c) {
			return errInvalidParameterValue("queue name %q contains invalid characters", name)
		}
	}
	if fifo && !isFifoName {
		return errInvalidParameterValue("FIFO queue name %q must end in .fifo", name)
	}
	if !fifo && isFifoName {
		return errInvalidParameterValue("standard queue name %q must not end in .fifo", name)
	}
	return nil
}

func isNameChar(c rune) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}

// ValidateGroupID checks spec §4.1's group id rule: [A-Za-z0-9!-~]{1,128}.
func ValidateGroupID(id string) error {
	if len(id) < 1 || len(id) > 128 {
		return errInvalidParameterValue("MessageGroupId must be 1-128 characters")
	}
	for _, c := range id {
		if c < '!' || c > '~' {
			return errInvalidParameterValue("MessageGroupId %q contains invalid characters", id)
		}
	}
	return nil
}

// attributesWireSize approximates the wire size of a message's
// attributes for the maxMessageSizeBytes check: name bytes + type bytes
// + value bytes, summed over every attribute.
func attributesWireSize(attrs map[string]MessageAttributeValue) int {
	total := 0
	for name, v := range attrs {
		total += len(name) + len(v.DataType)
		if v.baseType() == "Binary" {
			total += len(v.BinaryValue)
		} else {
			total += len(v.StringValue)
		}
	}
	return total
}

func validateMessageAttributeValue(name string, v MessageAttributeValue) error {
	switch v.baseType() {
	case "String", "Number":
		if v.StringValue == "" {
			return errInvalidParameterValue("message attribute %q of type %q requires a string value", name, v.DataType)
		}
	case "Binary":
		if len(v.BinaryValue) == 0 {
			return errInvalidParameterValue("message attribute %q of type %q requires a binary value", name, v.DataType)
		}
	default:
		return errInvalidParameterValue("message attribute %q has unsupported DataType %q", name, v.DataType)
	}
	return nil
}
