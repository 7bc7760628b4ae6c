// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essqueue/broker/internal/clock"
)

func newTestQueue(t *testing.T, kind Kind) (*Queue, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	if kind == Fifo {
		cfg.ContentBasedDeduplication = true
	}
	name := "standard-queue"
	if kind == Fifo {
		name = "fifo-queue.fifo"
	}
	return NewQueue(name, kind, cfg, clk), clk
}

func TestSendMessage_BodyMD5(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	result, err := q.SendMessage("hi", nil, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "49f68a5c8493ec2c0bf489821c21fc3b", result.BodyMD5)
}

func TestSendReceiveDelete_RoundTrip(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	sent, err := q.SendMessage("payload", nil, nil, "", "")
	require.NoError(t, err)

	received := q.ReceiveMessages(context.Background(), 10, nil, nil)
	require.Len(t, received, 1)
	assert.Equal(t, sent.MessageID, received[0].ID)
	assert.Equal(t, 1, received[0].ReceiveCount)

	stats := q.Statistics()
	assert.Equal(t, 0, stats.ApproxVisible)
	assert.Equal(t, 1, stats.ApproxInflight)

	require.NoError(t, q.DeleteMessage(received[0].ReceiptHandle))

	stats = q.Statistics()
	assert.Equal(t, 0, stats.ApproxVisible)
	assert.Equal(t, 0, stats.ApproxInflight)
}

func TestReceive_NothingEligible_ReturnsEmptyWithoutWaiting(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	received := q.ReceiveMessages(context.Background(), 10, nil, nil)
	assert.Empty(t, received)
}

func TestChangeMessageVisibility_ZeroMakesImmediatelyEligible(t *testing.T) {
	q, clk := newTestQueue(t, Standard)
	_, err := q.SendMessage("redeliver-me", nil, nil, "", "")
	require.NoError(t, err)

	first := q.ReceiveMessages(context.Background(), 1, nil, nil)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].ReceiveCount)

	require.NoError(t, q.ChangeMessageVisibility(first[0].ReceiptHandle, 0))

	clk.Advance(time.Millisecond)
	second := q.ReceiveMessages(context.Background(), 1, nil, nil)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 2, second[0].ReceiveCount)
}

func TestVisibilityTimeout_ExpiresAndRedelivers(t *testing.T) {
	q, clk := newTestQueue(t, Standard)
	visTimeout := int64(5000)
	_, err := q.SendMessage("slow-consumer", nil, nil, "", "")
	require.NoError(t, err)

	first := q.ReceiveMessages(context.Background(), 1, &visTimeout, nil)
	require.Len(t, first, 1)

	// Not yet expired: nothing new should be eligible.
	clk.Advance(4 * time.Second)
	none := q.ReceiveMessages(context.Background(), 1, nil, nil)
	assert.Empty(t, none)

	clk.Advance(2 * time.Second)
	redelivered := q.ReceiveMessages(context.Background(), 1, nil, nil)
	require.Len(t, redelivered, 1)
	assert.Equal(t, first[0].ID, redelivered[0].ID)
	assert.Equal(t, 2, redelivered[0].ReceiveCount)
}

func TestFIFO_ContentBasedDeduplication_ReturnsSameMessageID(t *testing.T) {
	q, clk := newTestQueue(t, Fifo)
	first, err := q.SendMessage("duplicate-body", nil, nil, "group-a", "")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	second, err := q.SendMessage("duplicate-body", nil, nil, "group-a", "")
	require.NoError(t, err)

	assert.Equal(t, first.MessageID, second.MessageID)
}

func TestFIFO_DedupWindowExpiry_AllowsResend(t *testing.T) {
	q, clk := newTestQueue(t, Fifo)
	first, err := q.SendMessage("duplicate-body", nil, nil, "group-a", "")
	require.NoError(t, err)

	clk.Advance(6 * time.Minute)
	second, err := q.SendMessage("duplicate-body", nil, nil, "group-a", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.MessageID, second.MessageID)
}

func TestFIFO_GroupOrdering(t *testing.T) {
	q, _ := newTestQueue(t, Fifo)
	_, err := q.SendMessage("a1", nil, nil, "a", "a1")
	require.NoError(t, err)
	_, err = q.SendMessage("b1", nil, nil, "b", "b1")
	require.NoError(t, err)
	_, err = q.SendMessage("a2", nil, nil, "a", "a2")
	require.NoError(t, err)

	// Only one message per group may be inflight at a time, so a batch
	// request for group a yields just its oldest message until that one
	// is resolved.
	received := q.ReceiveMessages(context.Background(), 10, nil, nil)
	var groupA, groupB []string
	for _, m := range received {
		if m.MessageGroupID == "a" {
			groupA = append(groupA, m.Body)
		} else {
			groupB = append(groupB, m.Body)
		}
	}
	assert.Equal(t, []string{"a1"}, groupA)
	assert.Equal(t, []string{"b1"}, groupB)

	for _, m := range received {
		require.NoError(t, q.DeleteMessage(m.ReceiptHandle))
	}

	second := q.ReceiveMessages(context.Background(), 10, nil, nil)
	require.Len(t, second, 1)
	assert.Equal(t, "a2", second[0].Body)
}

func TestDelayedMessage_NotEligibleUntilDelayElapses(t *testing.T) {
	q, clk := newTestQueue(t, Standard)
	delay := int64(10_000)
	_, err := q.SendMessage("delayed", nil, &delay, "", "")
	require.NoError(t, err)

	none := q.ReceiveMessages(context.Background(), 1, nil, nil)
	assert.Empty(t, none)

	clk.Advance(10 * time.Second)
	received := q.ReceiveMessages(context.Background(), 1, nil, nil)
	require.Len(t, received, 1)
	assert.Equal(t, "delayed", received[0].Body)
}

func TestReceive_CancelledContext_UnparkesWithoutMutatingState(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	wait := int64(10_000)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan []ReceivedMessage, 1)
	go func() {
		done <- q.ReceiveMessages(ctx, 1, nil, &wait)
	}()

	// Give ReceiveMessages time to park on the wait registry before
	// cancelling, so this actually exercises the ctx.Done() branch
	// rather than the immediate-deadline branch.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case received := <-done:
		assert.Nil(t, received)
	case <-time.After(time.Second):
		t.Fatal("ReceiveMessages did not unpark after context cancellation")
	}
	assert.Equal(t, 0, q.Statistics().ApproxInflight)
}

func TestReceive_WokenByConcurrentSend(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	wait := int64(10_000)

	done := make(chan []ReceivedMessage, 1)
	go func() {
		done <- q.ReceiveMessages(context.Background(), 1, nil, &wait)
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := q.SendMessage("wake-up", nil, nil, "", "")
	require.NoError(t, err)

	select {
	case received := <-done:
		require.Len(t, received, 1)
		assert.Equal(t, "wake-up", received[0].Body)
	case <-time.After(time.Second):
		t.Fatal("ReceiveMessages was not woken by the concurrent send")
	}
}

func TestPurge_RemovesAllMessages(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	for i := 0; i < 5; i++ {
		_, err := q.SendMessage("m", nil, nil, "", "")
		require.NoError(t, err)
	}
	q.Purge()
	stats := q.Statistics()
	assert.Equal(t, 0, stats.ApproxVisible)
	assert.Equal(t, 0, stats.ApproxInflight)
	assert.Equal(t, 0, stats.ApproxDelayed)
}

func TestSendMessage_RejectsOversizedBody(t *testing.T) {
	q, _ := newTestQueue(t, Standard)
	cfg := q.Config()
	big := make([]byte, cfg.MaxMessageSizeBytes+1)
	_, err := q.SendMessage(string(big), nil, nil, "", "")
	require.Error(t, err)
	var brokerErr *Error
	require.ErrorAs(t, err, &brokerErr)
	assert.Equal(t, "MessageTooLong", brokerErr.Code)
}

func TestFIFO_SendWithoutGroupID_Fails(t *testing.T) {
	q, _ := newTestQueue(t, Fifo)
	_, err := q.SendMessage("body", nil, nil, "", "")
	require.Error(t, err)
}
