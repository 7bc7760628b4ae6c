// SPDX-License-Identifier: Apache-2.0

package broker

import "time"

// VisibilityScheduler advances time-triggered state transitions for one
// queue's MessageStore, per spec §4.3.
type VisibilityScheduler struct {
	store *MessageStore
}

// NewVisibilityScheduler returns a scheduler over store.
func NewVisibilityScheduler(store *MessageStore) *VisibilityScheduler {
	return &VisibilityScheduler{store: store}
}

// tickResult reports what the tick changed, so the caller can decide
// whether to wake long-poll waiters and release group locks.
type tickResult struct {
	becameReady []*Message // Inflight -> Pending transitions
}

// tick promotes every Inflight message whose visibilityDeadline <= now
// back to Pending. Pending messages whose delay has elapsed need no
// action here: they are already eligible for receive directly off the
// pending heap.
func (s *VisibilityScheduler) tick(now time.Time) tickResult {
	var result tickResult
	for {
		m := s.store.PeekMinInflight()
		if m == nil || m.visibilityDeadline.After(now) {
			break
		}
		m.visibleAt = now
		m.receiptHandle = ""
		s.store.MarkPending(m)
		result.becameReady = append(result.becameReady, m)
	}
	return result
}

// nextDeadline returns the earliest future transition time across the
// store — either a delayed message becoming visible or an inflight
// message's visibility expiring — or the zero Time if nothing is
// scheduled.
func (s *VisibilityScheduler) nextDeadline() time.Time {
	var next time.Time
	if p := s.store.PeekMinPending(); p != nil {
		next = p.visibleAt
	}
	if i := s.store.PeekMinInflight(); i != nil {
		if next.IsZero() || i.visibilityDeadline.Before(next) {
			next = i.visibilityDeadline
		}
	}
	return next
}
