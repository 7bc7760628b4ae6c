// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateQueueName(t *testing.T) {
	assert.NoError(t, ValidateQueueName("orders", false))
	assert.NoError(t, ValidateQueueName("orders.fifo", true))

	assert.Error(t, ValidateQueueName("", false))
	assert.Error(t, ValidateQueueName("orders.fifo", false))
	assert.Error(t, ValidateQueueName("orders", true))
	assert.Error(t, ValidateQueueName("bad name!", false))
	assert.Error(t, ValidateQueueName("foo.bar", false))
	assert.Error(t, ValidateQueueName(strings.Repeat("a", 81), false))
}

func TestValidateGroupID(t *testing.T) {
	assert.NoError(t, ValidateGroupID("group-a"))
	assert.Error(t, ValidateGroupID(""))
	assert.Error(t, ValidateGroupID(strings.Repeat("a", 129)))
	assert.Error(t, ValidateGroupID("has space"))
}

func TestValidateConfig_RejectsContentBasedDedupOnStandard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContentBasedDeduplication = true
	assert.Error(t, validateConfig(cfg, false))
	assert.NoError(t, validateConfig(cfg, true))
}

func TestValidateConfig_RejectsOutOfRangeVisibilityTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultVisibilityTimeoutMillis = maxVisibilityTimeoutMillis + 1
	assert.Error(t, validateConfig(cfg, false))
}

func TestValidateMessageAttributeValue(t *testing.T) {
	assert.NoError(t, validateMessageAttributeValue("k", MessageAttributeValue{DataType: "String", StringValue: "v"}))
	assert.Error(t, validateMessageAttributeValue("k", MessageAttributeValue{DataType: "String"}))
	assert.NoError(t, validateMessageAttributeValue("k", MessageAttributeValue{DataType: "Binary", BinaryValue: []byte{1}}))
	assert.Error(t, validateMessageAttributeValue("k", MessageAttributeValue{DataType: "Binary"}))
	assert.Error(t, validateMessageAttributeValue("k", MessageAttributeValue{DataType: "Unsupported"}))
}
