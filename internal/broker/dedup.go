// SPDX-License-Identifier: Apache-2.0

package broker

import "time"

const dedupWindow = 5 * time.Minute

type dedupEntry struct {
	messageID  string
	bodyMD5    string
	attrsMD5   string
	insertedAt time.Time
}

// DeduplicationIndex is the FIFO content-based-deduplication cache from
// spec §4.4: dedupId -> (messageId, insertedAt), expiring after a hard
// 5 minutes. Not safe for concurrent use; callers serialize via the
// owning Queue.
type DeduplicationIndex struct {
	entries map[string]dedupEntry
}

// NewDeduplicationIndex returns an empty index.
func NewDeduplicationIndex() *DeduplicationIndex {
	return &DeduplicationIndex{entries: make(map[string]dedupEntry)}
}

// Lookup returns the entry for dedupId if present and not expired as of
// now. Expiry is checked lazily here.
func (d *DeduplicationIndex) Lookup(dedupID string, now time.Time) (dedupEntry, bool) {
	e, ok := d.entries[dedupID]
	if !ok {
		return dedupEntry{}, false
	}
	if now.Sub(e.insertedAt) >= dedupWindow {
		delete(d.entries, dedupID)
		return dedupEntry{}, false
	}
	return e, true
}

// Insert records a new dedup entry, overwriting any prior one for the
// same id.
func (d *DeduplicationIndex) Insert(dedupID, messageID, bodyMD5, attrsMD5 string, now time.Time) {
	d.entries[dedupID] = dedupEntry{
		messageID:  messageID,
		bodyMD5:    bodyMD5,
		attrsMD5:   attrsMD5,
		insertedAt: now,
	}
}

// Sweep drops every entry older than the dedup window, as of now. Called
// periodically by the DelayDispatcher tick in addition to the lazy
// expiry in Lookup.
func (d *DeduplicationIndex) Sweep(now time.Time) {
	for id, e := range d.entries {
		if now.Sub(e.insertedAt) >= dedupWindow {
			delete(d.entries, id)
		}
	}
}
