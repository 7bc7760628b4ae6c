// SPDX-License-Identifier: Apache-2.0

// Package sqsproto adapts SQS's HTTP/Query protocol onto the broker
// core: parsing action + form-encoded parameters, rendering XML
// responses, and mapping core errors onto the SQS error-code set. It is
// a thin adapter per spec §1 — all queue/message semantics live in
// internal/broker.
package sqsproto

import (
	"net/url"
	"strconv"
	"time"
)

// validateBatchEntryID checks a batch entry's Id against AWS's shape
// rule: 1-80 characters of [A-Za-z0-9_-].
func validateBatchEntryID(id string) error {
	if len(id) < 1 || len(id) > 80 {
		return errInvalidBatchEntryID(id)
	}
	for _, c := range id {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return errInvalidBatchEntryID(id)
		}
	}
	return nil
}

// parseIntDefault parses s as an int, returning def if s is empty or
// unparseable.
func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseInt64Ptr parses s as an *int64, returning nil if s is empty or
// not an integer.
func parseInt64Ptr(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// extractQueueName recovers the queue name from a QueueUrl of the form
// "http://host/queueName".
func extractQueueName(queueURL string) string {
	parsed, err := url.Parse(queueURL)
	if err != nil {
		return trimLeadingSlash(queueURL)
	}
	return trimLeadingSlash(parsed.Path)
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

// parseSecondsToMillisPtr parses s as whole seconds and returns the
// equivalent milliseconds as a *int64, or nil if s is empty or not an
// integer.
func parseSecondsToMillisPtr(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	millis := v * 1000
	return &millis
}

// itoa is strconv.Itoa under a shorter name for the many XML-building
// call sites in this package.
func itoa(i int) string {
	return strconv.Itoa(i)
}

// msTimestamp renders t as SQS's millisecond epoch timestamp string.
func msTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// prefixedForm extracts the subset of form keyed under prefix+"." into
// a standalone url.Values with that prefix stripped, so a single batch
// entry's MessageAttribute.N.* fields can be parsed with the same
// helpers used for a non-batch request.
func prefixedForm(form url.Values, prefix string) url.Values {
	out := make(url.Values)
	full := prefix + "."
	for k, v := range form {
		if len(k) > len(full) && k[:len(full)] == full {
			out[k[len(full):]] = v
		}
	}
	return out
}

// parseIndexedPairs extracts AWS's Prefix.N.Name / Prefix.N.Value
// convention (e.g. Attribute.1.Name=VisibilityTimeout&Attribute.1.Value=30)
// into an ordered slice of name/value pairs.
func parseIndexedPairs(form url.Values, prefix string) []struct{ Name, Value string } {
	var out []struct{ Name, Value string }
	for i := 1; ; i++ {
		nameKey := prefix + "." + strconv.Itoa(i) + ".Name"
		valueKey := prefix + "." + strconv.Itoa(i) + ".Value"
		name := form.Get(nameKey)
		if name == "" {
			break
		}
		out = append(out, struct{ Name, Value string }{name, form.Get(valueKey)})
	}
	return out
}
