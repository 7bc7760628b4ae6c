// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"strconv"

	"github.com/essqueue/broker/internal/broker"
)

// Queue attribute names, per spec §6.
const (
	attrVisibilityTimeout              = "VisibilityTimeout"
	attrDelaySeconds                   = "DelaySeconds"
	attrReceiveMessageWaitTimeSeconds  = "ReceiveMessageWaitTimeSeconds"
	attrMessageRetentionPeriod         = "MessageRetentionPeriod"
	attrMaximumMessageSize             = "MaximumMessageSize"
	attrFifoQueue                      = "FifoQueue"
	attrContentBasedDeduplication      = "ContentBasedDeduplication"
	attrApproxMessages                 = "ApproximateNumberOfMessages"
	attrApproxMessagesNotVisible       = "ApproximateNumberOfMessagesNotVisible"
	attrApproxMessagesDelayed          = "ApproximateNumberOfMessagesDelayed"
	attrCreatedTimestamp               = "CreatedTimestamp"
	attrLastModifiedTimestamp          = "LastModifiedTimestamp"
	attrPolicy                         = "Policy"
	attrRedrivePolicy                  = "RedrivePolicy"
	attrRedriveAllowPolicy             = "RedriveAllowPolicy"
	attrAll                            = "All"
)

var readableAttributes = []string{
	attrVisibilityTimeout, attrDelaySeconds, attrReceiveMessageWaitTimeSeconds,
	attrMessageRetentionPeriod, attrMaximumMessageSize, attrFifoQueue,
	attrContentBasedDeduplication, attrApproxMessages, attrApproxMessagesNotVisible,
	attrApproxMessagesDelayed, attrCreatedTimestamp, attrLastModifiedTimestamp,
	attrPolicy, attrRedrivePolicy, attrRedriveAllowPolicy,
}

// attributeValue renders a single queue attribute as its wire string
// value.
func attributeValue(q *broker.Queue, name string) (string, bool) {
	cfg := q.Config()
	switch name {
	case attrVisibilityTimeout:
		return strconv.FormatInt(cfg.DefaultVisibilityTimeoutMillis/1000, 10), true
	case attrDelaySeconds:
		return strconv.FormatInt(cfg.DelayMillis/1000, 10), true
	case attrReceiveMessageWaitTimeSeconds:
		return strconv.FormatInt(cfg.ReceiveMessageWaitMillis/1000, 10), true
	case attrMessageRetentionPeriod:
		return strconv.FormatInt(cfg.MessageRetentionMillis/1000, 10), true
	case attrMaximumMessageSize:
		return strconv.Itoa(cfg.MaxMessageSizeBytes), true
	case attrFifoQueue:
		return strconv.FormatBool(q.Kind == broker.Fifo), true
	case attrContentBasedDeduplication:
		return strconv.FormatBool(cfg.ContentBasedDeduplication), true
	case attrApproxMessages:
		return strconv.Itoa(q.Statistics().ApproxVisible), true
	case attrApproxMessagesNotVisible:
		return strconv.Itoa(q.Statistics().ApproxInflight), true
	case attrApproxMessagesDelayed:
		return strconv.Itoa(q.Statistics().ApproxDelayed), true
	case attrCreatedTimestamp:
		return strconv.FormatInt(q.CreatedAt.Unix(), 10), true
	case attrLastModifiedTimestamp:
		return strconv.FormatInt(q.LastModifiedAt().Unix(), 10), true
	case attrPolicy:
		if cfg.Policy == "" {
			return "", false
		}
		return cfg.Policy, true
	case attrRedrivePolicy:
		if cfg.RedrivePolicy == "" {
			return "", false
		}
		return cfg.RedrivePolicy, true
	case attrRedriveAllowPolicy:
		if cfg.RedriveAllowPolicy == "" {
			return "", false
		}
		return cfg.RedriveAllowPolicy, true
	}
	return "", false
}

// resolveAttributeNames expands "All" to the full readable set and
// validates every requested name, per spec §6.
func resolveAttributeNames(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	for _, n := range requested {
		if n == attrAll {
			return readableAttributes, nil
		}
	}
	for _, n := range requested {
		if !isKnownAttribute(n) {
			return nil, errInvalidAttributeName(n)
		}
	}
	return requested, nil
}

func isKnownAttribute(name string) bool {
	for _, n := range readableAttributes {
		if n == name {
			return true
		}
	}
	return false
}

// applyAttributeUpdate mutates cfg in place for one SetQueueAttributes
// Name/Value pair. FifoQueue is read-only after create per spec §6.
func applyAttributeUpdate(cfg *broker.Config, name, value string) error {
	switch name {
	case attrVisibilityTimeout:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errInvalidParameterValue("VisibilityTimeout must be an integer")
		}
		cfg.DefaultVisibilityTimeoutMillis = v * 1000
	case attrDelaySeconds:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errInvalidParameterValue("DelaySeconds must be an integer")
		}
		cfg.DelayMillis = v * 1000
	case attrReceiveMessageWaitTimeSeconds:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errInvalidParameterValue("ReceiveMessageWaitTimeSeconds must be an integer")
		}
		cfg.ReceiveMessageWaitMillis = v * 1000
	case attrMessageRetentionPeriod:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errInvalidParameterValue("MessageRetentionPeriod must be an integer")
		}
		cfg.MessageRetentionMillis = v * 1000
	case attrMaximumMessageSize:
		v, err := strconv.Atoi(value)
		if err != nil {
			return errInvalidParameterValue("MaximumMessageSize must be an integer")
		}
		cfg.MaxMessageSizeBytes = v
	case attrContentBasedDeduplication:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return errInvalidParameterValue("ContentBasedDeduplication must be a boolean")
		}
		cfg.ContentBasedDeduplication = v
	case attrPolicy:
		cfg.Policy = value
	case attrRedrivePolicy:
		cfg.RedrivePolicy = value
	case attrRedriveAllowPolicy:
		cfg.RedriveAllowPolicy = value
	case attrFifoQueue:
		return errInvalidParameterValue("FifoQueue cannot be changed after queue creation")
	case attrApproxMessages, attrApproxMessagesNotVisible, attrApproxMessagesDelayed,
		attrCreatedTimestamp, attrLastModifiedTimestamp:
		return errInvalidParameterValue("%q is read-only", name)
	default:
		return errInvalidAttributeName(name)
	}
	return nil
}
