// SPDX-License-Identifier: Apache-2.0

package broker

import "time"

// MessageSnapshot is the persisted-record shape from spec §6.
type MessageSnapshot struct {
	Queue                  string
	ID                     string
	Body                   string
	Attributes             map[string]MessageAttributeValue
	State                  string // "pending" | "inflight"
	VisibleAt              time.Time
	VisibilityDeadline     time.Time
	ReceiveCount           int
	OrderIndex             uint64
	MessageGroupID         string
	MessageDeduplicationID string
	SequenceNumber         string
	CreatedAt              time.Time
	ReceiptHandle          string
}

// QueueSnapshot is the persisted queue-definition shape from spec §6.
type QueueSnapshot struct {
	Name           string
	Fifo           bool
	Config         Config
	CreatedAt      time.Time
	LastModifiedAt time.Time
	Sequence       uint64
}

// ManagerSnapshot is the full persisted-state document from spec §6.
type ManagerSnapshot struct {
	Queues   []QueueSnapshot
	Messages []MessageSnapshot
}

// Snapshot captures the entire registry's state for persistence.
func (m *QueueManager) Snapshot() ManagerSnapshot {
	var doc ManagerSnapshot
	for _, q := range m.AllQueues() {
		doc.Queues = append(doc.Queues, q.snapshot())
		doc.Messages = append(doc.Messages, q.snapshotMessages()...)
	}
	return doc
}

func (q *Queue) snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueSnapshot{
		Name:           q.Name,
		Fifo:           q.Kind == Fifo,
		Config:         q.cfg,
		CreatedAt:      q.CreatedAt,
		LastModifiedAt: q.lastModifiedAt,
		Sequence:       q.seq,
	}
}

func (q *Queue) snapshotMessages() []MessageSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]MessageSnapshot, 0, q.store.Len())
	for _, m := range q.store.OrderedMessages() {
		rec := MessageSnapshot{
			Queue:                  q.Name,
			ID:                     m.ID,
			Body:                   m.Body,
			Attributes:             m.Attributes,
			ReceiveCount:           m.ReceiveCount,
			OrderIndex:             m.OrderIndex,
			MessageGroupID:         m.MessageGroupID,
			MessageDeduplicationID: m.MessageDeduplicationID,
			SequenceNumber:         m.SequenceNumber,
			CreatedAt:              m.CreatedAt,
		}
		switch m.state {
		case stateInflight:
			rec.State = "inflight"
			rec.VisibilityDeadline = m.visibilityDeadline
			rec.ReceiptHandle = m.receiptHandle
		default:
			rec.State = "pending"
			rec.VisibleAt = m.visibleAt
		}
		out = append(out, rec)
	}
	return out
}

// Restore rebuilds a registry from a snapshot document, recreating
// queues and their messages and restoring each queue's monotonic order
// sequence so new sends get an OrderIndex greater than any restored
// value, per spec §6.
func (m *QueueManager) Restore(doc ManagerSnapshot) error {
	for _, qs := range doc.Queues {
		kind := Standard
		if qs.Fifo {
			kind = Fifo
		}
		q, err := m.CreateQueue(qs.Name, kind, qs.Config)
		if err != nil {
			return err
		}
		q.mu.Lock()
		q.CreatedAt = qs.CreatedAt
		q.lastModifiedAt = qs.LastModifiedAt
		q.mu.Unlock()
	}

	byQueue := make(map[string][]MessageSnapshot)
	for _, ms := range doc.Messages {
		byQueue[ms.Queue] = append(byQueue[ms.Queue], ms)
	}

	for name, msgs := range byQueue {
		q, err := m.GetQueue(name)
		if err != nil {
			continue
		}
		q.restoreMessages(msgs)
	}
	return nil
}

func (q *Queue) restoreMessages(msgs []MessageSnapshot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ms := range msgs {
		m := &Message{
			ID:                     ms.ID,
			Body:                   ms.Body,
			Attributes:             ms.Attributes,
			CreatedAt:              ms.CreatedAt,
			ReceiveCount:           ms.ReceiveCount,
			OrderIndex:             ms.OrderIndex,
			MessageGroupID:         ms.MessageGroupID,
			MessageDeduplicationID: ms.MessageDeduplicationID,
			SequenceNumber:         ms.SequenceNumber,
		}
		if ms.State == "inflight" {
			m.visibilityDeadline = ms.VisibilityDeadline
			m.receiptHandle = ms.ReceiptHandle
			q.store.InsertPending(m) // start pending, then mark inflight to populate the right heap
			q.store.MarkInflight(m)
			if q.groupLocks != nil && m.MessageGroupID != "" {
				q.groupLocks.Lock(m.MessageGroupID, m.ID)
			}
		} else {
			m.visibleAt = ms.VisibleAt
			q.store.InsertPending(m)
		}
		if q.dedup != nil && m.MessageDeduplicationID != "" {
			q.dedup.Insert(m.MessageDeduplicationID, m.ID, BodyMD5(m.Body), AttributesMD5(m.Attributes), ms.CreatedAt)
		}
		if ms.OrderIndex > q.seq {
			q.seq = ms.OrderIndex
		}
	}
}
