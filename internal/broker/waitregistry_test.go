// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLongPollWaitRegistry_NotifyWakesParkedWaiters(t *testing.T) {
	r := newLongPollWaitRegistry()
	ch := r.park()

	done := make(chan struct{})
	go func() {
		<-ch
		close(done)
	}()

	r.notify()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestLongPollWaitRegistry_NotifyWithNoWaitersIsNoop(t *testing.T) {
	r := newLongPollWaitRegistry()
	assert.NotPanics(t, r.notify)
}
