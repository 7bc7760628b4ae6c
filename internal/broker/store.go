// SPDX-License-Identifier: Apache-2.0

package broker

import "container/heap"

// MessageStore is the composite per-queue index described in spec §4.2:
// messages indexed by id, by arrival order, and by next-delivery time.
// Pending and Inflight messages are tracked in separate min-heaps (by
// visibleAt and by visibilityDeadline respectively) so a message is
// always in exactly one of them, keeping O(log n) promotion and
// removal. Not safe for concurrent use on its own — callers (the
// owning Queue) serialize access.
type MessageStore struct {
	byID    map[string]*Message
	byOrder []*Message // sorted by OrderIndex, append-only except for removal

	pending  visHeap // Pending messages, keyed by visibleAt
	inflight visHeap // Inflight messages, keyed by visibilityDeadline
}

// NewMessageStore returns an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		byID:    make(map[string]*Message),
		byOrder: make([]*Message, 0),
	}
}

// InsertPending adds a newly-sent message, which always starts Pending.
func (s *MessageStore) InsertPending(m *Message) {
	m.state = statePending
	s.byID[m.ID] = m
	s.byOrder = append(s.byOrder, m)
	heap.Push(&s.pending, m)
}

// Get looks up a message by id.
func (s *MessageStore) Get(id string) (*Message, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// MarkInflight moves m from the pending heap to the inflight heap.
func (s *MessageStore) MarkInflight(m *Message) {
	s.removeFromHeap(m)
	m.state = stateInflight
	heap.Push(&s.inflight, m)
}

// MarkPending moves m from the inflight heap back to the pending heap
// (visibility expiry or an explicit ChangeMessageVisibility to 0).
func (s *MessageStore) MarkPending(m *Message) {
	s.removeFromHeap(m)
	m.state = statePending
	heap.Push(&s.pending, m)
}

// FixInflight re-establishes heap order after m.visibilityDeadline
// changed in place (ChangeMessageVisibility to a nonzero timeout).
func (s *MessageStore) FixInflight(m *Message) {
	if m.heapIndex >= 0 && m.heapIndex < len(s.inflight) {
		heap.Fix(&s.inflight, m.heapIndex)
	}
}

// Remove deletes a message from all indices entirely.
func (s *MessageStore) Remove(m *Message) {
	delete(s.byID, m.ID)
	for i, candidate := range s.byOrder {
		if candidate == m {
			s.byOrder = append(s.byOrder[:i], s.byOrder[i+1:]...)
			break
		}
	}
	s.removeFromHeap(m)
	m.state = stateRemoved
}

func (s *MessageStore) removeFromHeap(m *Message) {
	var h *visHeap
	switch m.state {
	case statePending:
		h = &s.pending
	case stateInflight:
		h = &s.inflight
	default:
		return
	}
	if m.heapIndex >= 0 && m.heapIndex < len(*h) && (*h)[m.heapIndex] == m {
		heap.Remove(h, m.heapIndex)
	}
}

// Len returns the total number of live (non-removed) messages.
func (s *MessageStore) Len() int { return len(s.byID) }

// NumPending, NumInflight report the per-state counts, for statistics().
func (s *MessageStore) NumPending() int  { return len(s.pending) }
func (s *MessageStore) NumInflight() int { return len(s.inflight) }

// OrderedMessages returns the live messages ordered by arrival, oldest
// first. The returned slice must not be mutated.
func (s *MessageStore) OrderedMessages() []*Message { return s.byOrder }

// PeekMinPending returns the Pending message with the earliest
// visibleAt, or nil.
func (s *MessageStore) PeekMinPending() *Message {
	if len(s.pending) == 0 {
		return nil
	}
	return s.pending[0]
}

// PeekMinInflight returns the Inflight message with the earliest
// visibilityDeadline, or nil.
func (s *MessageStore) PeekMinInflight() *Message {
	if len(s.inflight) == 0 {
		return nil
	}
	return s.inflight[0]
}

// visHeap is a container/heap.Interface over messages ordered by
// deadline(). There is no ecosystem min-heap package any retrieved repo
// actually imports for this; container/heap is the idiomatic stdlib
// mechanism for a priority queue of this shape.
type visHeap []*Message

func (h visHeap) Len() int { return len(h) }

func (h visHeap) Less(i, j int) bool {
	return h[i].deadline().Before(h[j].deadline())
}

func (h visHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *visHeap) Push(x interface{}) {
	m := x.(*Message)
	m.heapIndex = len(*h)
	*h = append(*h, m)
}

func (h *visHeap) Pop() interface{} {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	m.heapIndex = -1
	*h = old[:n-1]
	return m
}
