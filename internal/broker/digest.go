// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// BodyMD5 computes MD5(body_bytes_utf8) as 32-hex lowercase, per spec §6.
func BodyMD5(body string) string {
	sum := md5.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// AttributesMD5 computes the SQS message-attribute digest: for each
// attribute sorted by name, write length-prefixed name, length-prefixed
// DataType, a type tag byte (1=String/Number, 2=Binary), and
// length-prefixed value bytes; MD5 of the concatenation. Returns "" if
// attrs is empty (caller omits the field entirely in that case).
func AttributesMD5(attrs map[string]MessageAttributeValue) string {
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	h := md5.New()
	for _, name := range names {
		v := attrs[name]
		writeLengthPrefixed(h, []byte(name))
		writeLengthPrefixed(h, []byte(v.DataType))

		switch v.baseType() {
		case "Binary":
			h.Write([]byte{2})
			writeLengthPrefixed(h, v.BinaryValue)
		default: // String, Number
			h.Write([]byte{1})
			writeLengthPrefixed(h, []byte(v.StringValue))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeLengthPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	h.Write(lenBuf[:])
	h.Write(b)
}
