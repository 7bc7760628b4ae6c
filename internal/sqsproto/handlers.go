// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/essqueue/broker/internal/broker"
)

// Handler adapts the SQS HTTP/Query protocol onto a broker.QueueManager.
type Handler struct {
	manager *broker.QueueManager
	log     zerolog.Logger
}

// NewHandler returns a Handler serving manager's queues.
func NewHandler(manager *broker.QueueManager, log zerolog.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

// ServeHTTP implements http.Handler: the single POST endpoint SQS
// clients speak to, dispatched by the Action form parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, errInvalidParameterValue("failed to parse request body"))
		return
	}
	action := r.FormValue("Action")
	h.log.Debug().Str("action", action).Msg("sqs request")

	var err error
	switch action {
	case "CreateQueue":
		err = h.createQueue(w, r)
	case "DeleteQueue":
		err = h.deleteQueue(w, r)
	case "ListQueues":
		err = h.listQueues(w, r)
	case "GetQueueUrl":
		err = h.getQueueURL(w, r)
	case "GetQueueAttributes":
		err = h.getQueueAttributes(w, r)
	case "SetQueueAttributes":
		err = h.setQueueAttributes(w, r)
	case "SendMessage":
		err = h.sendMessage(w, r)
	case "SendMessageBatch":
		err = h.sendMessageBatch(w, r)
	case "ReceiveMessage":
		err = h.receiveMessage(w, r)
	case "DeleteMessage":
		err = h.deleteMessage(w, r)
	case "DeleteMessageBatch":
		err = h.deleteMessageBatch(w, r)
	case "ChangeMessageVisibility":
		err = h.changeMessageVisibility(w, r)
	case "ChangeMessageVisibilityBatch":
		err = h.changeMessageVisibilityBatch(w, r)
	case "PurgeQueue":
		err = h.purgeQueue(w, r)
	default:
		err = errInvalidAction(action)
	}
	if err != nil {
		writeError(w, err)
	}
}

func (h *Handler) queueURL(r *http.Request, name string) string {
	return "http://" + r.Host + "/" + name
}

func (h *Handler) lookupQueue(r *http.Request) (*broker.Queue, error) {
	queueURL := r.FormValue("QueueUrl")
	if queueURL == "" {
		return nil, errMissingParameter("QueueUrl")
	}
	name := extractQueueName(queueURL)
	q, err := h.manager.GetQueue(name)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// --- Queue lifecycle ---

func (h *Handler) createQueue(w http.ResponseWriter, r *http.Request) error {
	name := r.FormValue("QueueName")
	if name == "" {
		return errMissingParameter("QueueName")
	}

	fifo := false
	cfg := broker.DefaultConfig()
	for _, pair := range parseIndexedPairs(r.Form, "Attribute") {
		if pair.Name == attrFifoQueue {
			v, err := strconv.ParseBool(pair.Value)
			if err != nil {
				return errInvalidParameterValue("FifoQueue must be a boolean")
			}
			fifo = v
			continue
		}
		if err := applyAttributeUpdate(&cfg, pair.Name, pair.Value); err != nil {
			return err
		}
	}

	kind := broker.Standard
	if fifo {
		kind = broker.Fifo
	}
	q, err := h.manager.CreateQueue(name, kind, cfg)
	if err != nil {
		return err
	}

	type createQueueResponse struct {
		XMLName xml.Name `xml:"CreateQueueResponse"`
		Result  struct {
			QueueUrl string `xml:"QueueUrl"`
		} `xml:"CreateQueueResult"`
	}
	resp := createQueueResponse{}
	resp.Result.QueueUrl = h.queueURL(r, q.Name)
	writeXMLOK(w, resp)
	return nil
}

func (h *Handler) deleteQueue(w http.ResponseWriter, r *http.Request) error {
	queueURL := r.FormValue("QueueUrl")
	if queueURL == "" {
		return errMissingParameter("QueueUrl")
	}
	name := extractQueueName(queueURL)
	if err := h.manager.DeleteQueue(name); err != nil {
		return err
	}
	type deleteQueueResponse struct {
		XMLName xml.Name `xml:"DeleteQueueResponse"`
	}
	writeXMLOK(w, deleteQueueResponse{})
	return nil
}

func (h *Handler) listQueues(w http.ResponseWriter, r *http.Request) error {
	prefix := r.FormValue("QueueNamePrefix")
	names := h.manager.ListQueues(prefix)

	type listQueuesResponse struct {
		XMLName xml.Name `xml:"ListQueuesResponse"`
		Result  struct {
			QueueUrls []string `xml:"QueueUrl"`
		} `xml:"ListQueuesResult"`
	}
	resp := listQueuesResponse{}
	for _, name := range names {
		resp.Result.QueueUrls = append(resp.Result.QueueUrls, h.queueURL(r, name))
	}
	writeXMLOK(w, resp)
	return nil
}

func (h *Handler) getQueueURL(w http.ResponseWriter, r *http.Request) error {
	name := r.FormValue("QueueName")
	if name == "" {
		return errMissingParameter("QueueName")
	}
	if _, err := h.manager.GetQueue(name); err != nil {
		return err
	}
	type getQueueUrlResponse struct {
		XMLName xml.Name `xml:"GetQueueUrlResponse"`
		Result  struct {
			QueueUrl string `xml:"QueueUrl"`
		} `xml:"GetQueueUrlResult"`
	}
	resp := getQueueUrlResponse{}
	resp.Result.QueueUrl = h.queueURL(r, name)
	writeXMLOK(w, resp)
	return nil
}

func (h *Handler) getQueueAttributes(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	var requested []string
	for _, pair := range indexedValues(r.Form, "AttributeName") {
		requested = append(requested, pair)
	}
	names, err := resolveAttributeNames(requested)
	if err != nil {
		return err
	}
	if names == nil {
		names = readableAttributes
	}

	type attribute struct {
		Name  string `xml:"Name"`
		Value string `xml:"Value"`
	}
	type getQueueAttributesResponse struct {
		XMLName xml.Name `xml:"GetQueueAttributesResponse"`
		Result  struct {
			Attributes []attribute `xml:"Attribute"`
		} `xml:"GetQueueAttributesResult"`
	}
	resp := getQueueAttributesResponse{}
	for _, name := range names {
		if v, ok := attributeValue(q, name); ok {
			resp.Result.Attributes = append(resp.Result.Attributes, attribute{Name: name, Value: v})
		}
	}
	writeXMLOK(w, resp)
	return nil
}

func (h *Handler) setQueueAttributes(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	pairs := parseIndexedPairs(r.Form, "Attribute")
	if len(pairs) == 0 {
		return errMissingParameter("Attribute")
	}
	var updateErr error
	err = q.UpdateAttributes(func(cfg *broker.Config) {
		for _, pair := range pairs {
			if updateErr != nil {
				return
			}
			updateErr = applyAttributeUpdate(cfg, pair.Name, pair.Value)
		}
	})
	if updateErr != nil {
		return updateErr
	}
	if err != nil {
		return err
	}

	type setQueueAttributesResponse struct {
		XMLName xml.Name `xml:"SetQueueAttributesResponse"`
	}
	writeXMLOK(w, setQueueAttributesResponse{})
	return nil
}

func (h *Handler) purgeQueue(w http.ResponseWriter, r *http.Request) error {
	q, err := h.lookupQueue(r)
	if err != nil {
		return err
	}
	q.Purge()
	type purgeQueueResponse struct {
		XMLName xml.Name `xml:"PurgeQueueResponse"`
	}
	writeXMLOK(w, purgeQueueResponse{})
	return nil
}

// indexedValues extracts AWS's Prefix.N convention for a flat list
// (e.g. AttributeName.1=All&AttributeName.2=Policy).
func indexedValues(form map[string][]string, prefix string) []string {
	var out []string
	for i := 1; ; i++ {
		key := prefix + "." + strconv.Itoa(i)
		vs, ok := form[key]
		if !ok || len(vs) == 0 || vs[0] == "" {
			break
		}
		out = append(out, vs[0])
	}
	return out
}
