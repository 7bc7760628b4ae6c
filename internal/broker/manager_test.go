// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essqueue/broker/internal/clock"
)

func newTestManager() *QueueManager {
	return NewQueueManager(clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCreateQueue_IdempotentWithIdenticalAttributes(t *testing.T) {
	m := newTestManager()
	cfg := DefaultConfig()
	first, err := m.CreateQueue("orders", Standard, cfg)
	require.NoError(t, err)

	second, err := m.CreateQueue("orders", Standard, cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCreateQueue_ConflictWithDifferentAttributes(t *testing.T) {
	m := newTestManager()
	cfg := DefaultConfig()
	_, err := m.CreateQueue("orders", Standard, cfg)
	require.NoError(t, err)

	other := cfg
	other.DelayMillis = 5000
	_, err = m.CreateQueue("orders", Standard, other)
	require.Error(t, err)
	var brokerErr *Error
	require.ErrorAs(t, err, &brokerErr)
	assert.Equal(t, "QueueAlreadyExists", brokerErr.Code)
}

func TestCreateQueue_RejectsFifoNameMismatch(t *testing.T) {
	m := newTestManager()
	_, err := m.CreateQueue("orders", Fifo, DefaultConfig())
	require.Error(t, err)

	_, err = m.CreateQueue("orders.fifo", Standard, DefaultConfig())
	require.Error(t, err)
}

func TestGetQueue_NotFound(t *testing.T) {
	m := newTestManager()
	_, err := m.GetQueue("missing")
	require.Error(t, err)
	var brokerErr *Error
	require.ErrorAs(t, err, &brokerErr)
	assert.Equal(t, "QueueDoesNotExist", brokerErr.Code)
}

func TestDeleteQueue_RemovesFromRegistry(t *testing.T) {
	m := newTestManager()
	_, err := m.CreateQueue("orders", Standard, DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, m.DeleteQueue("orders"))
	_, err = m.GetQueue("orders")
	assert.Error(t, err)
}

func TestListQueues_FiltersByPrefix(t *testing.T) {
	m := newTestManager()
	_, err := m.CreateQueue("orders-high", Standard, DefaultConfig())
	require.NoError(t, err)
	_, err = m.CreateQueue("orders-low", Standard, DefaultConfig())
	require.NoError(t, err)
	_, err = m.CreateQueue("events", Standard, DefaultConfig())
	require.NoError(t, err)

	names := m.ListQueues("orders-")
	assert.ElementsMatch(t, []string{"orders-high", "orders-low"}, names)
}
