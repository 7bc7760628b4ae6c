// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"encoding/xml"
	"net/http"
)

// --- SendMessage / SendMessageBatch ---

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	body := r.FormValue("MessageBody")
	if body == "" {
		return errMissingParameter("MessageBody")
	}
	attrs, err := parseMessageAttributes(r.Form)
	if err != nil {
		return err
	}

	result, err := q.SendMessage(body, attrs, parseSecondsToMillisPtr(r.FormValue("DelaySeconds")),
		r.FormValue("MessageGroupId"), r.FormValue("MessageDeduplicationId"))
	if err != nil {
		return err
	}

	type sendMessageResponse struct {
		XMLName xml.Name `xml:"SendMessageResponse"`
		Result  struct {
			MessageId              string `xml:"MessageId"`
			MD5OfMessageBody       string `xml:"MD5OfMessageBody"`
			MD5OfMessageAttributes string `xml:"MD5OfMessageAttributes,omitempty"`
			SequenceNumber         string `xml:"SequenceNumber,omitempty"`
		} `xml:"SendMessageResult"`
	}
	resp := sendMessageResponse{}
	resp.Result.MessageId = result.MessageID
	resp.Result.MD5OfMessageBody = result.BodyMD5
	resp.Result.MD5OfMessageAttributes = result.AttributesMD5
	resp.Result.SequenceNumber = result.SequenceNumber
	writeXMLOK(w, resp)
	return nil
}

func (h *Handler) sendMessageBatch(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}

	type entry struct {
		id, body string
	}
	var entries []entry
	seen := make(map[string]bool)
	for i := 1; ; i++ {
		prefix := "SendMessageBatchRequestEntry." + itoa(i)
		id := r.FormValue(prefix + ".Id")
		if id == "" {
			break
		}
		if err := validateBatchEntryID(id); err != nil {
			return err
		}
		if seen[id] {
			return errBatchEntryIdsNotDistinct()
		}
		seen[id] = true
		entries = append(entries, entry{id: id, body: r.FormValue(prefix + ".MessageBody")})
	}
	if len(entries) == 0 {
		return errEmptyBatchRequest()
	}
	if len(entries) > 10 {
		return errTooManyEntriesInBatchRequest()
	}

	type successEntry struct {
		Id                     string `xml:"Id"`
		MessageId              string `xml:"MessageId"`
		MD5OfMessageBody       string `xml:"MD5OfMessageBody"`
		MD5OfMessageAttributes string `xml:"MD5OfMessageAttributes,omitempty"`
		SequenceNumber         string `xml:"SequenceNumber,omitempty"`
	}
	type failedEntry struct {
		Id          string `xml:"Id"`
		SenderFault bool   `xml:"SenderFault"`
		Code        string `xml:"Code"`
		Message     string `xml:"Message"`
	}
	type sendMessageBatchResponse struct {
		XMLName xml.Name `xml:"SendMessageBatchResponse"`
		Result  struct {
			Successful []successEntry `xml:"SendMessageBatchResultEntry"`
			Failed     []failedEntry  `xml:"BatchResultErrorEntry"`
		} `xml:"SendMessageBatchResult"`
	}
	resp := sendMessageBatchResponse{}

	for i, e := range entries {
		prefix := "SendMessageBatchRequestEntry." + itoa(i+1)
		attrs, aerr := parseMessageAttributes(prefixedForm(r.Form, prefix))
		if aerr != nil {
			code, _, msg := classify(aerr)
			resp.Result.Failed = append(resp.Result.Failed, failedEntry{Id: e.id, SenderFault: true, Code: code, Message: msg})
			continue
		}
		delay := parseSecondsToMillisPtr(r.FormValue(prefix + ".DelaySeconds"))
		result, serr := q.SendMessage(e.body, attrs, delay,
			r.FormValue(prefix+".MessageGroupId"), r.FormValue(prefix+".MessageDeduplicationId"))
		if serr != nil {
			code, _, msg := classify(serr)
			resp.Result.Failed = append(resp.Result.Failed, failedEntry{Id: e.id, SenderFault: true, Code: code, Message: msg})
			continue
		}
		resp.Result.Successful = append(resp.Result.Successful, successEntry{
			Id: e.id, MessageId: result.MessageID, MD5OfMessageBody: result.BodyMD5,
			MD5OfMessageAttributes: result.AttributesMD5, SequenceNumber: result.SequenceNumber,
		})
	}
	writeXMLOK(w, resp)
	return nil
}

// --- ReceiveMessage ---

func (h *Handler) receiveMessage(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	maxMessages := parseIntDefault(r.FormValue("MaxNumberOfMessages"), 1)
	visOverride := parseSecondsToMillisPtr(r.FormValue("VisibilityTimeout"))
	waitOverride := parseSecondsToMillisPtr(r.FormValue("WaitTimeSeconds"))

	received := q.ReceiveMessages(r.Context(), maxMessages, visOverride, waitOverride)

	type attribute struct {
		Name  string `xml:"Name"`
		Value string `xml:"Value"`
	}
	type messageAttribute struct {
		Name  string `xml:"Name"`
		Value struct {
			StringValue string `xml:"StringValue,omitempty"`
			BinaryValue []byte `xml:"BinaryValue,omitempty"`
			DataType    string `xml:"DataType"`
		} `xml:"Value"`
	}
	type message struct {
		MessageId              string             `xml:"MessageId"`
		ReceiptHandle          string             `xml:"ReceiptHandle"`
		MD5OfBody              string             `xml:"MD5OfBody"`
		Body                   string             `xml:"Body"`
		Attribute              []attribute        `xml:"Attribute"`
		MD5OfMessageAttributes string             `xml:"MD5OfMessageAttributes,omitempty"`
		MessageAttribute       []messageAttribute `xml:"MessageAttribute,omitempty"`
	}
	type receiveMessageResponse struct {
		XMLName xml.Name `xml:"ReceiveMessageResponse"`
		Result  struct {
			Messages []message `xml:"Message"`
		} `xml:"ReceiveMessageResult"`
	}
	resp := receiveMessageResponse{}
	for _, m := range received {
		wm := message{
			MessageId:              m.ID,
			ReceiptHandle:          m.ReceiptHandle,
			MD5OfBody:              m.BodyMD5,
			Body:                   m.Body,
			MD5OfMessageAttributes: m.AttributesMD5,
		}
		wm.Attribute = append(wm.Attribute,
			attribute{Name: "SenderId", Value: "AIDACKCEVSQ6C2EXAMPLE"},
			attribute{Name: "SentTimestamp", Value: msTimestamp(m.SentTimestamp)},
			attribute{Name: "ApproximateReceiveCount", Value: itoa(m.ReceiveCount)},
			attribute{Name: "ApproximateFirstReceiveTimestamp", Value: msTimestamp(m.FirstReceivedAt)},
		)
		if m.MessageGroupID != "" {
			wm.Attribute = append(wm.Attribute, attribute{Name: "MessageGroupId", Value: m.MessageGroupID})
			wm.Attribute = append(wm.Attribute, attribute{Name: "SequenceNumber", Value: m.SequenceNumber})
		}
		for name, v := range m.Attributes {
			ma := messageAttribute{Name: name}
			ma.Value.DataType = v.DataType
			ma.Value.StringValue = v.StringValue
			ma.Value.BinaryValue = v.BinaryValue
			wm.MessageAttribute = append(wm.MessageAttribute, ma)
		}
		resp.Result.Messages = append(resp.Result.Messages, wm)
	}
	writeXMLOK(w, resp)
	return nil
}

// --- DeleteMessage / DeleteMessageBatch ---

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	handle := r.FormValue("ReceiptHandle")
	if handle == "" {
		return errMissingParameter("ReceiptHandle")
	}
	if err := q.DeleteMessage(handle); err != nil {
		return err
	}
	type deleteMessageResponse struct {
		XMLName xml.Name `xml:"DeleteMessageResponse"`
	}
	writeXMLOK(w, deleteMessageResponse{})
	return nil
}

func (h *Handler) deleteMessageBatch(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}

	type entry struct {
		id, handle string
	}
	var entries []entry
	seen := make(map[string]bool)
	for i := 1; ; i++ {
		prefix := "DeleteMessageBatchRequestEntry." + itoa(i)
		id := r.FormValue(prefix + ".Id")
		if id == "" {
			break
		}
		if err := validateBatchEntryID(id); err != nil {
			return err
		}
		if seen[id] {
			return errBatchEntryIdsNotDistinct()
		}
		seen[id] = true
		entries = append(entries, entry{id: id, handle: r.FormValue(prefix + ".ReceiptHandle")})
	}
	if len(entries) == 0 {
		return errEmptyBatchRequest()
	}
	if len(entries) > 10 {
		return errTooManyEntriesInBatchRequest()
	}

	type successEntry struct {
		Id string `xml:"Id"`
	}
	type failedEntry struct {
		Id          string `xml:"Id"`
		SenderFault bool   `xml:"SenderFault"`
		Code        string `xml:"Code"`
		Message     string `xml:"Message"`
	}
	type deleteMessageBatchResponse struct {
		XMLName xml.Name `xml:"DeleteMessageBatchResponse"`
		Result  struct {
			Successful []successEntry `xml:"DeleteMessageBatchResultEntry"`
			Failed     []failedEntry  `xml:"BatchResultErrorEntry"`
		} `xml:"DeleteMessageBatchResult"`
	}
	resp := deleteMessageBatchResponse{}

	for _, e := range entries {
		if err := q.DeleteMessage(e.handle); err != nil {
			code, _, msg := classify(err)
			resp.Result.Failed = append(resp.Result.Failed, failedEntry{Id: e.id, SenderFault: true, Code: code, Message: msg})
			continue
		}
		resp.Result.Successful = append(resp.Result.Successful, successEntry{Id: e.id})
	}
	writeXMLOK(w, resp)
	return nil
}

// --- ChangeMessageVisibility / ChangeMessageVisibilityBatch ---

func (h *Handler) changeMessageVisibility(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	handle := r.FormValue("ReceiptHandle")
	if handle == "" {
		return errMissingParameter("ReceiptHandle")
	}
	timeout := r.FormValue("VisibilityTimeout")
	if timeout == "" {
		return errMissingParameter("VisibilityTimeout")
	}
	millis := parseSecondsToMillisPtr(timeout)
	if millis == nil {
		return errInvalidParameterValue("VisibilityTimeout must be an integer")
	}
	if err := q.ChangeMessageVisibility(handle, *millis); err != nil {
		return err
	}
	type changeMessageVisibilityResponse struct {
		XMLName xml.Name `xml:"ChangeMessageVisibilityResponse"`
	}
	writeXMLOK(w, changeMessageVisibilityResponse{})
	return nil
}

func (h *Handler) changeMessageVisibilityBatch(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}

	type entry struct {
		id, handle string
		millis     *int64
	}
	var entries []entry
	seen := make(map[string]bool)
	for i := 1; ; i++ {
		prefix := "ChangeMessageVisibilityBatchRequestEntry." + itoa(i)
		id := r.FormValue(prefix + ".Id")
		if id == "" {
			break
		}
		if err := validateBatchEntryID(id); err != nil {
			return err
		}
		if seen[id] {
			return errBatchEntryIdsNotDistinct()
		}
		seen[id] = true
		entries = append(entries, entry{
			id:     id,
			handle: r.FormValue(prefix + ".ReceiptHandle"),
			millis: parseSecondsToMillisPtr(r.FormValue(prefix + ".VisibilityTimeout")),
		})
	}
	if len(entries) == 0 {
		return errEmptyBatchRequest()
	}
	if len(entries) > 10 {
		return errTooManyEntriesInBatchRequest()
	}

	type successEntry struct {
		Id string `xml:"Id"`
	}
	type failedEntry struct {
		Id          string `xml:"Id"`
		SenderFault bool   `xml:"SenderFault"`
		Code        string `xml:"Code"`
		Message     string `xml:"Message"`
	}
	type changeMessageVisibilityBatchResponse struct {
		XMLName xml.Name `xml:"ChangeMessageVisibilityBatchResponse"`
		Result  struct {
			Successful []successEntry `xml:"ChangeMessageVisibilityBatchResultEntry"`
			Failed     []failedEntry  `xml:"BatchResultErrorEntry"`
		} `xml:"ChangeMessageVisibilityBatchResult"`
	}
	resp := changeMessageVisibilityBatchResponse{}

	for _, e := range entries {
		if e.millis == nil {
			resp.Result.Failed = append(resp.Result.Failed, failedEntry{Id: e.id, SenderFault: true, Code: "InvalidParameterValue", Message: "VisibilityTimeout must be an integer"})
			continue
		}
		if err := q.ChangeMessageVisibility(e.handle, *e.millis); err != nil {
			code, _, msg := classify(err)
			resp.Result.Failed = append(resp.Result.Failed, failedEntry{Id: e.id, SenderFault: true, Code: code, Message: msg})
			continue
		}
		resp.Result.Successful = append(resp.Result.Successful, successEntry{Id: e.id})
	}
	writeXMLOK(w, resp)
	return nil
}
