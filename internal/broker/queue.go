// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/essqueue/broker/internal/clock"
	"github.com/essqueue/broker/internal/ids"
)

// Kind distinguishes Standard from FIFO queues, per spec §3.
type Kind int

const (
	Standard Kind = iota
	Fifo
)

// Config holds the mutable, per-queue attributes from spec §3/§6.
type Config struct {
	DefaultVisibilityTimeoutMillis int64
	DelayMillis                    int64
	ReceiveMessageWaitMillis       int64
	MessageRetentionMillis         int64
	MaxMessageSizeBytes            int
	ContentBasedDeduplication      bool
	Policy                         string
	RedrivePolicy                  string
	RedriveAllowPolicy             string
}

// DefaultConfig returns the spec §3 attribute defaults.
func DefaultConfig() Config {
	return Config{
		DefaultVisibilityTimeoutMillis: defaultVisibilityTimeoutMillis,
		DelayMillis:                    0,
		ReceiveMessageWaitMillis:       0,
		MessageRetentionMillis:         defaultRetentionMillis,
		MaxMessageSizeBytes:            defaultMaxMessageSizeBytes,
		ContentBasedDeduplication:      false,
	}
}

// equalAttributes reports whether two configs would be observably
// identical for QueueManager's idempotent-create check. FifoQueue
// itself is not part of Config (it is the immutable Kind), so it is
// compared separately by the caller.
func (c Config) equalAttributes(o Config) bool {
	return c == o
}

func validateConfig(c Config, fifo bool) error {
	if c.DefaultVisibilityTimeoutMillis < minVisibilityTimeoutMillis || c.DefaultVisibilityTimeoutMillis > maxVisibilityTimeoutMillis {
		return errInvalidAttributeValue("VisibilityTimeout", "must be between 0 and 43200000 milliseconds")
	}
	if c.DelayMillis < minDelayMillis || c.DelayMillis > maxDelayMillis {
		return errInvalidAttributeValue("DelaySeconds", "must be between 0 and 900000 milliseconds")
	}
	if c.ReceiveMessageWaitMillis < minReceiveWaitMillis || c.ReceiveMessageWaitMillis > maxReceiveWaitMillis {
		return errInvalidAttributeValue("ReceiveMessageWaitTimeSeconds", "must be between 0 and 20000 milliseconds")
	}
	if c.MessageRetentionMillis < minRetentionMillis || c.MessageRetentionMillis > maxRetentionMillis {
		return errInvalidAttributeValue("MessageRetentionPeriod", "must be between 60000 and 1209600000 milliseconds")
	}
	if c.MaxMessageSizeBytes < minMaxMessageSizeBytes || c.MaxMessageSizeBytes > maxMaxMessageSizeBytes {
		return errInvalidAttributeValue("MaximumMessageSize", "must be between 1024 and 262144 bytes")
	}
	if c.ContentBasedDeduplication && !fifo {
		return errInvalidAttributeValue("ContentBasedDeduplication", "only valid for FIFO queues")
	}
	return nil
}

// SendResult is returned by SendMessage.
type SendResult struct {
	MessageID      string
	BodyMD5        string
	AttributesMD5  string
	SequenceNumber string
}

// ReceivedMessage is returned by ReceiveMessages.
type ReceivedMessage struct {
	ID              string
	Body            string
	Attributes      map[string]MessageAttributeValue
	BodyMD5         string
	AttributesMD5   string
	ReceiptHandle   string
	ReceiveCount    int
	SentTimestamp   time.Time
	FirstReceivedAt time.Time
	MessageGroupID  string
	SequenceNumber  string
}

// Statistics are the approximate counters from spec §4.1.
type Statistics struct {
	ApproxVisible  int
	ApproxInflight int
	ApproxDelayed  int
}

// Queue is a single SQS queue: the actor-like unit from spec §4.1 that
// owns a MessageStore, VisibilityScheduler, DeduplicationIndex (FIFO
// only), GroupLockTable (FIFO only) and a LongPollWaitRegistry, with
// every mutating operation serialized by mu.
type Queue struct {
	mu sync.Mutex

	Name string
	Kind Kind
	cfg  Config

	CreatedAt      time.Time
	lastModifiedAt time.Time

	clock clock.Clock
	seq   uint64

	store      *MessageStore
	scheduler  *VisibilityScheduler
	dedup      *DeduplicationIndex // non-nil iff Fifo
	groupLocks *GroupLockTable     // non-nil iff Fifo
	waiters    *LongPollWaitRegistry
}

// NewQueue constructs a queue. cfg is assumed already validated.
func NewQueue(name string, kind Kind, cfg Config, clk clock.Clock) *Queue {
	store := NewMessageStore()
	now := clk.Now()
	q := &Queue{
		Name:           name,
		Kind:           kind,
		cfg:            cfg,
		CreatedAt:      now,
		lastModifiedAt: now,
		clock:          clk,
		store:          store,
		scheduler:      NewVisibilityScheduler(store),
		waiters:        newLongPollWaitRegistry(),
	}
	if kind == Fifo {
		q.dedup = NewDeduplicationIndex()
		q.groupLocks = NewGroupLockTable()
	}
	return q
}

// Config returns a copy of the queue's current attribute config.
func (q *Queue) Config() Config {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cfg
}

// LastModifiedAt returns the last attribute-modification time.
func (q *Queue) LastModifiedAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastModifiedAt
}

// UpdateAttributes applies a partial attribute update (SetQueueAttributes).
func (q *Queue) UpdateAttributes(mutate func(*Config)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := q.cfg
	mutate(&next)
	if err := validateConfig(next, q.Kind == Fifo); err != nil {
		return err
	}
	q.cfg = next
	q.lastModifiedAt = q.clock.Now()
	return nil
}

// SendMessage implements spec §4.1's send algorithm.
func (q *Queue) SendMessage(body string, attrs map[string]MessageAttributeValue, delayOverride *int64, groupID, dedupID string) (SendResult, error) {
	for name, v := range attrs {
		if err := validateMessageAttributeValue(name, v); err != nil {
			return SendResult{}, err
		}
	}

	totalSize := len(body) + attributesWireSize(attrs)
	q.mu.Lock()
	defer q.mu.Unlock()

	if totalSize > q.cfg.MaxMessageSizeBytes {
		return SendResult{}, errMessageTooLong(totalSize, q.cfg.MaxMessageSizeBytes)
	}

	if q.Kind == Fifo {
		if groupID == "" {
			return SendResult{}, errMissingParameter("MessageGroupId")
		}
		if err := ValidateGroupID(groupID); err != nil {
			return SendResult{}, err
		}
		if dedupID == "" {
			if q.cfg.ContentBasedDeduplication {
				sum := sha256.Sum256([]byte(body))
				dedupID = hex.EncodeToString(sum[:])
			} else {
				return SendResult{}, errInvalidParameterValue("MessageDeduplicationId is required unless ContentBasedDeduplication is enabled")
			}
		}
		if delayOverride != nil && *delayOverride > 0 {
			return SendResult{}, errInvalidParameterValue("DelaySeconds is not supported per-message on FIFO queues")
		}

		now := q.clock.Now()
		if existing, ok := q.dedup.Lookup(dedupID, now); ok {
			return SendResult{
				MessageID:     existing.messageID,
				BodyMD5:       existing.bodyMD5,
				AttributesMD5: existing.attrsMD5,
			}, nil
		}

		return q.enqueueLocked(body, attrs, delayOverride, groupID, dedupID)
	}

	if groupID != "" || dedupID != "" {
		return SendResult{}, errInvalidParameterValue("MessageGroupId/MessageDeduplicationId are only valid for FIFO queues")
	}
	return q.enqueueLocked(body, attrs, delayOverride, "", "")
}

// enqueueLocked performs steps 4-7 of the send algorithm. Caller holds q.mu.
func (q *Queue) enqueueLocked(body string, attrs map[string]MessageAttributeValue, delayOverride *int64, groupID, dedupID string) (SendResult, error) {
	now := q.clock.Now()
	q.seq++

	delay := q.cfg.DelayMillis
	if delayOverride != nil {
		delay = *delayOverride
	}

	bodyMD5 := BodyMD5(body)
	attrsMD5 := AttributesMD5(attrs)

	m := &Message{
		ID:                     ids.NewMessageID(),
		Body:                   body,
		Attributes:             attrs,
		CreatedAt:              now,
		OrderIndex:             q.seq,
		MessageGroupID:         groupID,
		MessageDeduplicationID: dedupID,
		visibleAt:              now.Add(time.Duration(delay) * time.Millisecond),
	}
	if q.Kind == Fifo {
		m.SequenceNumber = sequenceNumberFor(q.seq)
	}
	q.store.InsertPending(m)

	if q.dedup != nil && dedupID != "" {
		q.dedup.Insert(dedupID, m.ID, bodyMD5, attrsMD5, now)
	}

	if delay == 0 {
		q.waiters.notify()
	}

	return SendResult{
		MessageID:      m.ID,
		BodyMD5:        bodyMD5,
		AttributesMD5:  attrsMD5,
		SequenceNumber: m.SequenceNumber,
	}, nil
}

func sequenceNumberFor(seq uint64) string {
	// AWS sequence numbers are large monotonically increasing decimal
	// strings; zero-padding to a fixed width keeps lexical and numeric
	// order aligned for any downstream consumer that sorts them as text.
	const width = 20
	s := padUint64(seq, width)
	return s
}

func padUint64(v uint64, width int) string {
	digits := []byte{}
	if v == 0 {
		digits = append(digits, '0')
	}
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	for len(digits) < width {
		digits = append([]byte{'0'}, digits...)
	}
	return string(digits)
}

// ReceiveMessages implements spec §4.1's receive algorithm, including
// long-poll waiting when nothing is immediately eligible. A cancelled
// ctx unparks the call without mutating any message state, per spec §5.
func (q *Queue) ReceiveMessages(ctx context.Context, maxMessages int, visibilityOverride, waitOverride *int64) []ReceivedMessage {
	if maxMessages < 1 {
		maxMessages = 1
	}
	if maxMessages > 10 {
		maxMessages = 10
	}

	q.mu.Lock()
	wait := q.cfg.ReceiveMessageWaitMillis
	if waitOverride != nil {
		wait = *waitOverride
	}
	deadline := q.clock.Now().Add(time.Duration(wait) * time.Millisecond)

	for {
		q.runScheduledTransitionsLocked()
		selected := q.selectEligibleLocked(maxMessages)
		if len(selected) > 0 {
			result := q.markInflightLocked(selected, visibilityOverride)
			q.mu.Unlock()
			return result
		}
		now := q.clock.Now()
		if !now.Before(deadline) {
			q.mu.Unlock()
			return nil
		}
		ch := q.waiters.park()
		remaining := deadline.Sub(now)
		q.mu.Unlock()

		select {
		case <-ch:
		case <-time.After(remaining):
		case <-ctx.Done():
			return nil
		}
		q.mu.Lock()
	}
}

// runScheduledTransitionsLocked advances the scheduler and drops the
// group lock for any message that just became visible again.
func (q *Queue) runScheduledTransitionsLocked() {
	now := q.clock.Now()
	q.sweepRetentionLocked(now)
	result := q.scheduler.tick(now)
	for _, m := range result.becameReady {
		if q.groupLocks != nil && m.MessageGroupID != "" {
			q.groupLocks.Release(m.MessageGroupID, m.ID)
		}
	}
}

// sweepRetentionLocked removes messages whose retention window has
// elapsed. byOrder is ascending by arrival, which (since createdAt is
// monotonic with OrderIndex) means expired messages are a prefix.
func (q *Queue) sweepRetentionLocked(now time.Time) {
	order := q.store.OrderedMessages()
	expired := make([]*Message, 0)
	for _, m := range order {
		if now.Sub(m.CreatedAt) > time.Duration(q.cfg.MessageRetentionMillis)*time.Millisecond {
			expired = append(expired, m)
			continue
		}
		break
	}
	for _, m := range expired {
		if q.groupLocks != nil && m.state == stateInflight && m.MessageGroupID != "" {
			q.groupLocks.Release(m.MessageGroupID, m.ID)
		}
		q.store.Remove(m)
	}
}

// selectEligibleLocked picks up to max messages eligible for delivery
// right now, per spec §4.1 step 2.
func (q *Queue) selectEligibleLocked(max int) []*Message {
	now := q.clock.Now()
	selected := make([]*Message, 0, max)

	if q.Kind != Fifo {
		for _, m := range q.store.OrderedMessages() {
			if len(selected) >= max {
				break
			}
			if m.state == statePending && !m.visibleAt.After(now) {
				selected = append(selected, m)
			}
		}
		return selected
	}

	// FIFO: ascending orderIndex, restricted to groups with no inflight
	// messages, and at most one message per group in a batch: a group's
	// next message is not delivered until the one before it has been
	// deleted or has become visible again.
	taken := make(map[string]bool)
	for _, m := range q.store.OrderedMessages() {
		if len(selected) >= max {
			break
		}
		if m.state != statePending || m.visibleAt.After(now) {
			continue
		}
		if q.groupLocks.IsLocked(m.MessageGroupID) || taken[m.MessageGroupID] {
			continue
		}
		taken[m.MessageGroupID] = true
		selected = append(selected, m)
	}
	return selected
}

func (q *Queue) markInflightLocked(selected []*Message, visibilityOverride *int64) []ReceivedMessage {
	now := q.clock.Now()
	timeout := q.cfg.DefaultVisibilityTimeoutMillis
	if visibilityOverride != nil {
		timeout = *visibilityOverride
	}

	out := make([]ReceivedMessage, 0, len(selected))
	for _, m := range selected {
		m.receiptHandle = ids.NewReceiptHandle()
		m.visibilityDeadline = now.Add(time.Duration(timeout) * time.Millisecond)
		q.store.MarkInflight(m)
		m.ReceiveCount++
		if !m.receivedAtLeast {
			m.receivedAtLeast = true
			m.FirstReceivedAt = now
		}
		if q.groupLocks != nil && m.MessageGroupID != "" {
			q.groupLocks.Lock(m.MessageGroupID, m.ID)
		}
		out = append(out, ReceivedMessage{
			ID:              m.ID,
			Body:            m.Body,
			Attributes:      m.Attributes,
			BodyMD5:         BodyMD5(m.Body),
			AttributesMD5:   AttributesMD5(m.Attributes),
			ReceiptHandle:   m.receiptHandle,
			ReceiveCount:    m.ReceiveCount,
			SentTimestamp:   m.CreatedAt,
			FirstReceivedAt: m.FirstReceivedAt,
			MessageGroupID:  m.MessageGroupID,
			SequenceNumber:  m.SequenceNumber,
		})
	}
	return out
}

// DeleteMessage implements spec §4.1's delete algorithm.
func (q *Queue) DeleteMessage(receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runScheduledTransitionsLocked()

	m := q.findByReceiptLocked(receiptHandle)
	if m == nil {
		return errReceiptHandleInvalid()
	}
	if q.groupLocks != nil && m.MessageGroupID != "" {
		q.groupLocks.Release(m.MessageGroupID, m.ID)
	}
	q.store.Remove(m)
	return nil
}

// ChangeMessageVisibility implements spec §4.1's change-visibility algorithm.
func (q *Queue) ChangeMessageVisibility(receiptHandle string, newTimeoutMillis int64) error {
	if newTimeoutMillis < 0 || newTimeoutMillis > maxVisibilityTimeoutMillis {
		return errInvalidParameterValue("VisibilityTimeout must be between 0 and 43200000 milliseconds")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.runScheduledTransitionsLocked()

	m := q.findByReceiptLocked(receiptHandle)
	if m == nil {
		return errReceiptHandleInvalid()
	}

	now := q.clock.Now()
	if newTimeoutMillis == 0 {
		m.visibleAt = now
		m.receiptHandle = ""
		q.store.MarkPending(m)
		if q.groupLocks != nil && m.MessageGroupID != "" {
			q.groupLocks.Release(m.MessageGroupID, m.ID)
		}
		q.waiters.notify()
		return nil
	}

	m.visibilityDeadline = now.Add(time.Duration(newTimeoutMillis) * time.Millisecond)
	q.store.FixInflight(m)
	return nil
}

func (q *Queue) findByReceiptLocked(receiptHandle string) *Message {
	if receiptHandle == "" {
		return nil
	}
	for _, m := range q.store.OrderedMessages() {
		if m.state == stateInflight && m.receiptHandle == receiptHandle {
			return m
		}
	}
	return nil
}

// Purge implements spec §4.1's purge operation.
func (q *Queue) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.store = NewMessageStore()
	q.scheduler = NewVisibilityScheduler(q.store)
	if q.Kind == Fifo {
		q.groupLocks = NewGroupLockTable()
	}
}

// Statistics implements spec §4.1's statistics operation.
func (q *Queue) Statistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runScheduledTransitionsLocked()

	now := q.clock.Now()
	delayed := 0
	visible := 0
	for _, m := range q.store.OrderedMessages() {
		if m.state != statePending {
			continue
		}
		if m.visibleAt.After(now) {
			delayed++
		} else {
			visible++
		}
	}
	return Statistics{
		ApproxVisible:  visible,
		ApproxInflight: q.store.NumInflight(),
		ApproxDelayed:  delayed,
	}
}

// Tick runs the scheduler once; used by the shared DelayDispatcher so
// queues with no active caller still get their visibility/retention
// transitions processed and their waiters woken.
func (q *Queue) Tick() {
	q.mu.Lock()
	q.runScheduledTransitionsLocked()
	if q.dedup != nil {
		q.dedup.Sweep(q.clock.Now())
	}
	q.mu.Unlock()
	q.waiters.notify()
}

// NextDeadline reports the next time this queue's scheduler has a
// transition due, or the zero Time if none is scheduled. The
// DelayDispatcher does not use it: it ticks every queue on a fixed
// interval.
func (q *Queue) NextDeadline() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scheduler.nextDeadline()
}
