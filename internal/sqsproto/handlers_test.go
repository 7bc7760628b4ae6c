// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essqueue/broker/internal/broker"
	"github.com/essqueue/broker/internal/clock"
)

func newTestHandler() *Handler {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	manager := broker.NewQueueManager(clk)
	return NewHandler(manager, zerolog.Nop())
}

func post(t *testing.T, h *Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateQueue_ThenGetQueueUrl(t *testing.T) {
	h := newTestHandler()

	rec := post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})
	require.Equal(t, http.StatusOK, rec.Code)

	type createQueueResponse struct {
		Result struct {
			QueueUrl string `xml:"QueueUrl"`
		} `xml:"CreateQueueResult"`
	}
	var created createQueueResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &created))
	assert.Contains(t, created.Result.QueueUrl, "orders")

	rec = post(t, h, url.Values{"Action": {"GetQueueUrl"}, "QueueName": {"orders"}})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateQueue_MissingName(t *testing.T) {
	h := newTestHandler()
	rec := post(t, h, url.Values{"Action": {"CreateQueue"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp xmlErrorResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "MissingParameter", errResp.Error.Code)
}

func TestSendAndReceiveMessage(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})

	queueURL := "http://example.com/orders"
	rec := post(t, h, url.Values{
		"Action":      {"SendMessage"},
		"QueueUrl":    {queueURL},
		"MessageBody": {"hi"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	type sendMessageResponse struct {
		Result struct {
			MessageId        string `xml:"MessageId"`
			MD5OfMessageBody string `xml:"MD5OfMessageBody"`
		} `xml:"SendMessageResult"`
	}
	var sent sendMessageResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Equal(t, "49f68a5c8493ec2c0bf489821c21fc3b", sent.Result.MD5OfMessageBody)
	require.NotEmpty(t, sent.Result.MessageId)

	rec = post(t, h, url.Values{
		"Action":              {"ReceiveMessage"},
		"QueueUrl":            {queueURL},
		"MaxNumberOfMessages": {"10"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	type receiveMessageResponse struct {
		Result struct {
			Messages []struct {
				MessageId     string `xml:"MessageId"`
				ReceiptHandle string `xml:"ReceiptHandle"`
				Body          string `xml:"Body"`
			} `xml:"Message"`
		} `xml:"ReceiveMessageResult"`
	}
	var received receiveMessageResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &received))
	require.Len(t, received.Result.Messages, 1)
	assert.Equal(t, sent.Result.MessageId, received.Result.Messages[0].MessageId)
	assert.Equal(t, "hi", received.Result.Messages[0].Body)

	rec = post(t, h, url.Values{
		"Action":        {"DeleteMessage"},
		"QueueUrl":      {queueURL},
		"ReceiptHandle": {received.Result.Messages[0].ReceiptHandle},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetQueueAttributes_AllExpandsReadableSet(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})

	rec := post(t, h, url.Values{
		"Action":          {"GetQueueAttributes"},
		"QueueUrl":        {"http://example.com/orders"},
		"AttributeName.1": {"All"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	type getQueueAttributesResponse struct {
		Result struct {
			Attributes []struct {
				Name  string `xml:"Name"`
				Value string `xml:"Value"`
			} `xml:"Attribute"`
		} `xml:"GetQueueAttributesResult"`
	}
	var resp getQueueAttributesResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Result.Attributes)
}

func TestGetQueueAttributes_UnknownNameRejected(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})

	rec := post(t, h, url.Values{
		"Action":          {"GetQueueAttributes"},
		"QueueUrl":        {"http://example.com/orders"},
		"AttributeName.1": {"NotARealAttribute"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp xmlErrorResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "InvalidAttributeName", errResp.Error.Code)
}

func TestSetQueueAttributes_RejectsFifoChange(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})

	rec := post(t, h, url.Values{
		"Action":            {"SetQueueAttributes"},
		"QueueUrl":          {"http://example.com/orders"},
		"Attribute.1.Name":  {"FifoQueue"},
		"Attribute.1.Value": {"true"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageBatch_EachSuccessfulEntryReported(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})

	rec := post(t, h, url.Values{
		"Action":                                  {"SendMessageBatch"},
		"QueueUrl":                                {"http://example.com/orders"},
		"SendMessageBatchRequestEntry.1.Id":        {"one"},
		"SendMessageBatchRequestEntry.1.MessageBody": {"hello"},
		"SendMessageBatchRequestEntry.2.Id":        {"two"},
		"SendMessageBatchRequestEntry.2.MessageBody": {"world"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	type sendMessageBatchResponse struct {
		Result struct {
			Successful []struct {
				Id string `xml:"Id"`
			} `xml:"SendMessageBatchResultEntry"`
		} `xml:"SendMessageBatchResult"`
	}
	var resp sendMessageBatchResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Result.Successful, 2)
}

func TestPurgeQueue(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})
	post(t, h, url.Values{"Action": {"SendMessage"}, "QueueUrl": {"http://example.com/orders"}, "MessageBody": {"x"}})

	rec := post(t, h, url.Values{"Action": {"PurgeQueue"}, "QueueUrl": {"http://example.com/orders"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, url.Values{"Action": {"ReceiveMessage"}, "QueueUrl": {"http://example.com/orders"}})
	var resp struct {
		Result struct {
			Messages []struct{} `xml:"Message"`
		} `xml:"ReceiveMessageResult"`
	}
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Result.Messages)
}

func TestUnknownAction(t *testing.T) {
	h := newTestHandler()
	rec := post(t, h, url.Values{"Action": {"DoesNotExist"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMessageBatch_DuplicateIdsRejectedBeforeAnyDelete(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})
	queueURL := "http://example.com/orders"
	post(t, h, url.Values{"Action": {"SendMessage"}, "QueueUrl": {queueURL}, "MessageBody": {"one"}})
	post(t, h, url.Values{"Action": {"SendMessage"}, "QueueUrl": {queueURL}, "MessageBody": {"two"}})

	rec := post(t, h, url.Values{"Action": {"ReceiveMessage"}, "QueueUrl": {queueURL}, "MaxNumberOfMessages": {"10"}})
	type receiveMessageResponse struct {
		Result struct {
			Messages []struct {
				ReceiptHandle string `xml:"ReceiptHandle"`
			} `xml:"Message"`
		} `xml:"ReceiveMessageResult"`
	}
	var received receiveMessageResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &received))
	require.Len(t, received.Result.Messages, 2)

	rec = post(t, h, url.Values{
		"Action":                                      {"DeleteMessageBatch"},
		"QueueUrl":                                    {queueURL},
		"DeleteMessageBatchRequestEntry.1.Id":          {"dup"},
		"DeleteMessageBatchRequestEntry.1.ReceiptHandle": {received.Result.Messages[0].ReceiptHandle},
		"DeleteMessageBatchRequestEntry.2.Id":          {"dup"},
		"DeleteMessageBatchRequestEntry.2.ReceiptHandle": {received.Result.Messages[1].ReceiptHandle},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp xmlErrorResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "BatchEntryIdsNotDistinct", errResp.Error.Code)

	// Neither entry's delete should have executed: both messages must
	// still be deletable, proving the duplicate-id check ran before any
	// DeleteMessage call.
	for _, m := range received.Result.Messages {
		rec = post(t, h, url.Values{"Action": {"DeleteMessage"}, "QueueUrl": {queueURL}, "ReceiptHandle": {m.ReceiptHandle}})
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSendMessageBatch_InvalidEntryIdRejected(t *testing.T) {
	h := newTestHandler()
	post(t, h, url.Values{"Action": {"CreateQueue"}, "QueueName": {"orders"}})

	rec := post(t, h, url.Values{
		"Action":                                      {"SendMessageBatch"},
		"QueueUrl":                                    {"http://example.com/orders"},
		"SendMessageBatchRequestEntry.1.Id":           {"has a space"},
		"SendMessageBatchRequestEntry.1.MessageBody":  {"hello"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp xmlErrorResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "InvalidBatchEntryId", errResp.Error.Code)
}
