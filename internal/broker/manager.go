// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"strings"
	"sync"
	"time"

	"github.com/essqueue/broker/internal/clock"
)

// QueueManager is the registry of queues by name, per spec §4.6. Its
// own lock guards only the registry map; once a *Queue is obtained,
// every further operation is serialized by that queue's own lock.
type QueueManager struct {
	mu     sync.RWMutex
	queues map[string]*Queue
	clock  clock.Clock
}

// NewQueueManager returns an empty registry using clk as the time
// source for every queue it creates.
func NewQueueManager(clk clock.Clock) *QueueManager {
	return &QueueManager{
		queues: make(map[string]*Queue),
		clock:  clk,
	}
}

// CreateQueue creates name with the given config, or returns the
// existing queue if name exists with identical attributes, or
// QueueAlreadyExists if it exists with different attributes.
func (m *QueueManager) CreateQueue(name string, kind Kind, cfg Config) (*Queue, error) {
	if err := ValidateQueueName(name, kind == Fifo); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg, kind == Fifo); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.queues[name]; ok {
		if existing.Kind != kind || !existing.Config().equalAttributes(cfg) {
			return nil, errQueueAlreadyExists(name)
		}
		return existing, nil
	}

	q := NewQueue(name, kind, cfg, m.clock)
	m.queues[name] = q
	return q, nil
}

// GetQueue looks up a queue by name.
func (m *QueueManager) GetQueue(name string) (*Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[name]
	if !ok {
		return nil, errQueueDoesNotExist(name)
	}
	return q, nil
}

// DeleteQueue removes a queue. In-flight operations that already hold a
// *Queue reference complete against that reference; any later lookup by
// name returns QueueDoesNotExist.
func (m *QueueManager) DeleteQueue(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; !ok {
		return errQueueDoesNotExist(name)
	}
	delete(m.queues, name)
	return nil
}

// ListQueues returns the names of every queue whose name has the given
// prefix (all queues if prefix is empty), sorted is not guaranteed.
func (m *QueueManager) ListQueues(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.queues))
	for name := range m.queues {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

// AllQueues returns a snapshot of every registered queue, for the
// DelayDispatcher to tick and for snapshot persistence.
func (m *QueueManager) AllQueues() []*Queue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		out = append(out, q)
	}
	return out
}

// Now returns the manager's clock's current time, for adapters that
// need "now" outside of any single queue (e.g. CreatedTimestamp math).
func (m *QueueManager) Now() time.Time { return m.clock.Now() }
