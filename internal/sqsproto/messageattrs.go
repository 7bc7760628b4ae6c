// SPDX-License-Identifier: Apache-2.0

package sqsproto

import (
	"encoding/base64"
	"net/url"
	"strconv"

	"github.com/essqueue/broker/internal/broker"
)

// parseMessageAttributes extracts MessageAttribute.N.Name /
// MessageAttribute.N.Value.{StringValue,BinaryValue,DataType} from
// Query-protocol form parameters into the broker's attribute map.
func parseMessageAttributes(form url.Values) (map[string]broker.MessageAttributeValue, error) {
	attrs := make(map[string]broker.MessageAttributeValue)
	for i := 1; ; i++ {
		base := "MessageAttribute." + strconv.Itoa(i)
		name := form.Get(base + ".Name")
		if name == "" {
			break
		}
		dataType := form.Get(base + ".Value.DataType")
		v := broker.MessageAttributeValue{DataType: dataType}

		if s := form.Get(base + ".Value.StringValue"); s != "" {
			v.StringValue = s
		}
		if b := form.Get(base + ".Value.BinaryValue"); b != "" {
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, errInvalidParameterValue("MessageAttribute.%d.Value.BinaryValue is not valid base64", i)
			}
			v.BinaryValue = decoded
		}
		attrs[name] = v
	}
	return attrs, nil
}
