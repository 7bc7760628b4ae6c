// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/essqueue/broker/internal/broker"
)

// apiError is the adapter's own typed error, used for parameter
// problems caught before a request ever reaches the core (missing
// QueueUrl, malformed batch, etc). broker.Error is mapped separately in
// classify.
type apiError struct {
	code    string
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func errMissingParameter(name string) *apiError {
	return &apiError{code: "MissingParameter", status: http.StatusBadRequest, message: fmt.Sprintf("missing required parameter %q", name)}
}

func errInvalidParameterValue(format string, args ...interface{}) *apiError {
	return &apiError{code: "InvalidParameterValue", status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func errInvalidBatchEntryID(id string) *apiError {
	return &apiError{code: "InvalidBatchEntryId", status: http.StatusBadRequest, message: fmt.Sprintf("batch entry id %q is not a valid identifier", id)}
}

func errInvalidAttributeName(name string) *apiError {
	return &apiError{code: "InvalidAttributeName", status: http.StatusBadRequest, message: fmt.Sprintf("unknown queue attribute %q", name)}
}

func errBatchEntryIdsNotDistinct() *apiError {
	return &apiError{code: "BatchEntryIdsNotDistinct", status: http.StatusBadRequest, message: "batch entry ids must be distinct"}
}

func errEmptyBatchRequest() *apiError {
	return &apiError{code: "EmptyBatchRequest", status: http.StatusBadRequest, message: "the batch request contains no entries"}
}

func errTooManyEntriesInBatchRequest() *apiError {
	return &apiError{code: "TooManyEntriesInBatchRequest", status: http.StatusBadRequest, message: "a batch request supports a maximum of 10 entries"}
}

func errInvalidAction(action string) *apiError {
	return &apiError{code: "InvalidAction", status: http.StatusBadRequest, message: fmt.Sprintf("unknown action %q", action)}
}

// xmlErrorResponse is the SQS <ErrorResponse> shape, per spec §6.
type xmlErrorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
}

// writeError renders any error (apiError or broker.Error) as an SQS
// <ErrorResponse>, mapping broker.ErrorKind onto HTTP status per spec §7:
// 400 for client errors, 500 for Internal.
func writeError(w http.ResponseWriter, err error) {
	code, status, message := classify(err)

	resp := xmlErrorResponse{}
	resp.Error.Type = "Sender"
	resp.Error.Code = code
	resp.Error.Message = message
	writeXML(w, status, resp)
}

func classify(err error) (code string, status int, message string) {
	if ae, ok := err.(*apiError); ok {
		return ae.code, ae.status, ae.message
	}
	if be, ok := err.(*broker.Error); ok {
		return be.Code, statusForKind(be.Kind), be.Message
	}
	return "InternalError", http.StatusInternalServerError, err.Error()
}

func statusForKind(kind broker.ErrorKind) int {
	if kind == broker.KindInternal {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
