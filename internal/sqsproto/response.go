// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"encoding/xml"
	"net/http"
)

func writeXML(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	_ = enc.Encode(v)
}

func writeXMLOK(w http.ResponseWriter, v interface{}) {
	writeXML(w, http.StatusOK, v)
}
